package benchmarks

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/randalmurphal/fcomp/pkg/fcomp/snapshot"
)

// BenchmarkMemoryStore_Save measures in-memory snapshot save.
func BenchmarkMemoryStore_Save(b *testing.B) {
	store := snapshot.NewMemoryStore()
	data := mustEncode(b, snapshot.MsgPack)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Save(ctx, "x-bench", "el-1", data)
	}
}

// BenchmarkMemoryStore_Load measures in-memory snapshot load.
func BenchmarkMemoryStore_Load(b *testing.B) {
	store := snapshot.NewMemoryStore()
	ctx := context.Background()
	_ = store.Save(ctx, "x-bench", "el-1", mustEncode(b, snapshot.MsgPack))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Load(ctx, "x-bench", "el-1")
	}
}

// BenchmarkSQLiteStore_Save measures SQLite snapshot save.
func BenchmarkSQLiteStore_Save(b *testing.B) {
	store, cleanup := createSQLiteStore(b)
	defer cleanup()
	data := mustEncode(b, snapshot.MsgPack)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Save(ctx, "x-bench", "el-"+strconv.Itoa(i%100), data)
	}
}

// BenchmarkSQLiteStore_Load measures SQLite snapshot load.
func BenchmarkSQLiteStore_Load(b *testing.B) {
	store, cleanup := createSQLiteStore(b)
	defer cleanup()
	ctx := context.Background()
	_ = store.Save(ctx, "x-bench", "el-1", mustEncode(b, snapshot.MsgPack))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Load(ctx, "x-bench", "el-1")
	}
}

// BenchmarkEncode compares snapshot codecs.
func BenchmarkEncode(b *testing.B) {
	for _, codec := range []snapshot.Codec{snapshot.JSON, snapshot.MsgPack} {
		b.Run(codec.Name(), func(b *testing.B) {
			snap := snapshot.New("x-bench", "el-1", largeState())
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = snapshot.Encode(snap, codec)
			}
		})
	}
}

// BenchmarkDecode compares snapshot codecs.
func BenchmarkDecode(b *testing.B) {
	for _, codec := range []snapshot.Codec{snapshot.JSON, snapshot.MsgPack} {
		b.Run(codec.Name(), func(b *testing.B) {
			data := mustEncode(b, codec)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = snapshot.Decode(data)
			}
		})
	}
}

// Helper functions

func largeState() map[string]any {
	return map[string]any{
		"id":     "test-id",
		"values": []any{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		"metadata": map[string]any{
			"key1": "value1",
			"key2": "value2",
			"key3": "value3",
		},
		"count":  42,
		"active": true,
	}
}

func mustEncode(b *testing.B, codec snapshot.Codec) []byte {
	b.Helper()
	data, err := snapshot.Encode(snapshot.New("x-bench", "el-1", largeState()), codec)
	if err != nil {
		b.Fatal(err)
	}
	return data
}

func createSQLiteStore(b *testing.B) (*snapshot.SQLiteStore, func()) {
	b.Helper()
	tmpFile, err := os.CreateTemp("", "bench-*.db")
	if err != nil {
		b.Fatal(err)
	}
	tmpFile.Close()

	store, err := snapshot.NewSQLiteStore(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		b.Fatal(err)
	}

	return store, func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}
}

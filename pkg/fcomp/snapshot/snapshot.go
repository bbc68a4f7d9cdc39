package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/randalmurphal/fcomp/pkg/fcomp/registry"
)

// Version is the snapshot envelope format.
const Version = 1

// Snapshot is the envelope written to a Store.
type Snapshot struct {
	Version   int            `json:"version" msgpack:"version"`
	Component string         `json:"component" msgpack:"component"`
	Key       string         `json:"key" msgpack:"key"`
	Timestamp time.Time      `json:"timestamp" msgpack:"timestamp"`
	State     map[string]any `json:"state" msgpack:"state"`
}

// New builds a snapshot of state for (component, key).
func New(component, key string, state map[string]any) Snapshot {
	return Snapshot{
		Version:   Version,
		Component: component,
		Key:       key,
		Timestamp: time.Now().UTC(),
		State:     state,
	}
}

// Codec serializes snapshots.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON encodes snapshots as JSON. Numbers come back as float64.
var JSON Codec = jsonCodec{}

// MsgPack encodes snapshots as MessagePack. It is the default codec.
var MsgPack Codec = msgpackCodec{}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string                  { return "msgpack" }
func (msgpackCodec) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }

// Unmarshal decodes integers as int64 and floats as float64 regardless of
// their encoded width.
func (msgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(v)
}

var codecs = registry.New[string, Codec]()

func init() {
	codecs.Define(JSON.Name(), JSON)
	codecs.Define(MsgPack.Name(), MsgPack)
}

// RegisterCodec makes c available to CodecByName. Returns false when the
// name is taken.
func RegisterCodec(c Codec) bool {
	return codecs.Define(c.Name(), c)
}

// CodecByName looks up a registered codec.
func CodecByName(name string) (Codec, error) {
	c, ok := codecs.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
	return c, nil
}

// CodecNames lists registered codecs in sorted order.
func CodecNames() []string {
	return codecs.Keys()
}

// Encode serializes s with codec. A nil codec means MsgPack.
func Encode(s Snapshot, codec Codec) ([]byte, error) {
	if codec == nil {
		codec = MsgPack
	}
	data, err := codec.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot with %s: %w", codec.Name(), err)
	}
	return data, nil
}

// Decode parses data written by Encode. The codec is detected from the
// first byte: JSON objects start with '{', MessagePack maps never do.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if len(data) == 0 {
		return s, fmt.Errorf("decode snapshot: empty data")
	}

	codec := MsgPack
	if data[0] == '{' {
		codec = JSON
	}
	if err := codec.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode snapshot with %s: %w", codec.Name(), err)
	}
	if s.Version != Version {
		return s, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, s.Version, Version)
	}
	return s, nil
}

package config

import (
	"fmt"
	"time"
)

// Config is a read-only view over a decoded YAML or JSON document.
// Accessors never fail: a missing key or a value of the wrong shape yields
// the supplied default.
type Config struct {
	data map[string]any
}

// New wraps data. A nil map behaves as an empty document.
func New(data map[string]any) Config {
	if data == nil {
		data = map[string]any{}
	}
	return Config{data: data}
}

// get converts the value at key with conv, falling back to def.
func get[T any](c Config, key string, def T, conv func(any) (T, bool)) T {
	v, ok := c.data[key]
	if !ok {
		return def
	}
	if out, ok := conv(v); ok {
		return out
	}
	return def
}

func asType[T any](v any) (T, bool) {
	out, ok := v.(T)
	return out, ok
}

// String returns the string at key.
func (c Config) String(key, defaultVal string) string {
	return get(c, key, defaultVal, asType[string])
}

// Bool returns the boolean at key. Only real booleans count; YAML already
// decodes true/false literals.
func (c Config) Bool(key string, defaultVal bool) bool {
	return get(c, key, defaultVal, asType[bool])
}

// Duration returns the duration at key. Strings go through
// time.ParseDuration ("16ms"); bare numbers are seconds.
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	return get(c, key, defaultVal, func(v any) (time.Duration, bool) {
		switch val := v.(type) {
		case time.Duration:
			return val, true
		case string:
			d, err := time.ParseDuration(val)
			return d, err == nil
		}
		if f, ok := toFloat(v); ok {
			return time.Duration(f * float64(time.Second)), true
		}
		return 0, false
	})
}

// Int returns the integer at key. Floats qualify only when whole, which is
// how JSON numbers arrive.
func (c Config) Int(key string, defaultVal int) int {
	return get(c, key, defaultVal, func(v any) (int, bool) {
		f, ok := toFloat(v)
		if !ok || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	})
}

// Float returns the number at key.
func (c Config) Float(key string, defaultVal float64) float64 {
	return get(c, key, defaultVal, toFloat)
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	}
	return 0, false
}

// StringSlice returns the list at key when every item is a string.
func (c Config) StringSlice(key string, defaultVal []string) []string {
	return get(c, key, defaultVal, func(v any) ([]string, bool) {
		switch val := v.(type) {
		case []string:
			return val, true
		case []any:
			out := make([]string, len(val))
			for i, item := range val {
				s, ok := item.(string)
				if !ok {
					return nil, false
				}
				out[i] = s
			}
			return out, true
		}
		return nil, false
	})
}

// Map returns the nested mapping at key, or nil.
func (c Config) Map(key string) map[string]any {
	return get(c, key, nil, func(v any) (map[string]any, bool) {
		switch val := v.(type) {
		case map[string]any:
			return val, true
		case Config:
			return val.data, true
		}
		return nil, false
	})
}

// Sub returns the nested mapping at key as a Config.
func (c Config) Sub(key string) Config {
	return New(c.Map(key))
}

// StringMap returns the nested mapping at key with every value formatted
// as a string. Manifests use it for attribute and ref tables.
func (c Config) StringMap(key string) map[string]string {
	m := c.Map(key)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// List returns the sequence at key, or nil.
func (c Config) List(key string) []any {
	return get(c, key, nil, asType[[]any])
}

// Any returns the raw value at key.
func (c Config) Any(key string, defaultVal any) any {
	return get(c, key, defaultVal, func(v any) (any, bool) { return v, true })
}

// Has reports whether key is present.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Raw returns the underlying map. Callers must not modify it.
func (c Config) Raw() map[string]any {
	return c.data
}

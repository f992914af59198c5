package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalValue converts a trace value to JSON TEXT for storage.
// Values encoding/json cannot represent are stored as a placeholder string
// so one odd output never prevents a run from being persisted.
func marshalValue(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		placeholder, _ := json.Marshal(fmt.Sprintf("<unserializable: %T>", v))
		return string(placeholder)
	}
	return strings.TrimSpace(buf.String())
}

// unmarshalValue parses JSON TEXT. Integers decode as int64 where they fit,
// other numbers as float64.
func unmarshalValue(data string) (any, error) {
	if data == "" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case []any:
		for i := range val {
			val[i] = normalizeNumbers(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = normalizeNumbers(val[k])
		}
		return val
	}
	return v
}

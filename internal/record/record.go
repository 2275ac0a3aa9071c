// Package record holds feedback records as ordered JSON objects.
//
// Field values are kept as raw JSON so metadata the tool does not understand
// passes through untouched, and field order survives a load/save cycle.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Default field names used by the feedback exports
const (
	DefaultEmbeddingField = "Embedding"
	DefaultIdentityField  = "CustomerName"
	ClusterField          = "Cluster"
)

// Record is a single feedback item
type Record struct {
	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

// New creates an empty record
func New() *Record {
	return &Record{fields: orderedmap.New[string, json.RawMessage]()}
}

// Len returns the number of fields
func (r *Record) Len() int {
	return r.fields.Len()
}

// Keys returns field names in insertion order
func (r *Record) Keys() []string {
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Has reports whether the field is present
func (r *Record) Has(field string) bool {
	_, ok := r.fields.Get(field)
	return ok
}

// Raw returns the raw JSON value of a field
func (r *Record) Raw(field string) (json.RawMessage, bool) {
	return r.fields.Get(field)
}

// Set stores v under field. Existing fields keep their position.
func (r *Record) Set(field string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode field %q: %w", field, err)
	}
	r.fields.Set(field, data)
	return nil
}

// SetInt stores an integer field
func (r *Record) SetInt(field string, v int) {
	r.fields.Set(field, json.RawMessage(strconv.Itoa(v)))
}

// Delete removes a field, reporting whether it existed
func (r *Record) Delete(field string) bool {
	_, ok := r.fields.Delete(field)
	return ok
}

// Int decodes an integer field
func (r *Record) Int(field string) (int, bool) {
	raw, ok := r.fields.Get(field)
	if !ok {
		return 0, false
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

// String returns a field as text. JSON strings are unquoted, any other
// value is returned as its compact JSON form.
func (r *Record) String(field string) (string, bool) {
	raw, ok := r.fields.Get(field)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw), true
	}
	return buf.String(), true
}

// Float64s decodes a numeric array field. The boolean is false when the
// field is absent; the error is set when it is present but not numeric.
func (r *Record) Float64s(field string) ([]float64, bool, error) {
	raw, ok := r.fields.Get(field)
	if !ok {
		return nil, false, nil
	}
	var v []float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, true, err
	}
	if v == nil {
		return nil, true, fmt.Errorf("field %q is null", field)
	}
	return v, true, nil
}

// Clone returns a deep copy
func (r *Record) Clone() *Record {
	c := New()
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		c.fields.Set(pair.Key, append(json.RawMessage(nil), pair.Value...))
	}
	return c
}

// UnmarshalJSON implements json.Unmarshaler
func (r *Record) UnmarshalJSON(data []byte) error {
	fields := orderedmap.New[string, json.RawMessage]()
	if err := fields.UnmarshalJSON(data); err != nil {
		return err
	}
	r.fields = fields
	return nil
}

// MarshalJSON implements json.Marshaler. Values are written as stored.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := marshalNoEscape(pair.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(pair.Value) == 0 {
			buf.WriteString("null")
			continue
		}
		buf.Write(pair.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

package model

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
)

// Record maps metric keys to values for a single entity from a single
// source. Records are immutable: With returns a modified copy and the zero
// Record is an empty, usable record.
type Record struct {
	values map[string]Value
}

// NewRecord builds a record from a copy of values.
func NewRecord(values map[string]Value) Record {
	cp := make(map[string]Value, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Record{values: cp}
}

// RecordFromMap builds a record from loosely-typed values, as produced by
// decoding JSON into map[string]any.
func RecordFromMap(m map[string]any) Record {
	values := make(map[string]Value, len(m))
	for k, v := range m {
		values[k] = FromAny(v)
	}
	return Record{values: values}
}

// DecodeRecord parses a JSON object into a record. Any other JSON shape is
// an error.
func DecodeRecord(data []byte) (Record, error) {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Record{}, err
	}
	if v.Kind() != KindBundle {
		return Record{}, eris.Errorf("model: record must be a JSON object, got %s", v.Kind())
	}
	return Record{values: v.bundle}, nil
}

// Get returns the value for key, or null when the key is absent.
func (r Record) Get(key string) Value {
	return r.values[key]
}

// Has reports whether key is present, even with a null value.
func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// With returns a copy of r with key set to v.
func (r Record) With(key string, v Value) Record {
	cp := make(map[string]Value, len(r.values)+1)
	for k, existing := range r.values {
		cp[k] = existing
	}
	cp[key] = v
	return Record{values: cp}
}

// Without returns a copy of r with key removed.
func (r Record) Without(key string) Record {
	cp := make(map[string]Value, len(r.values))
	for k, existing := range r.values {
		if k != key {
			cp[k] = existing
		}
	}
	return Record{values: cp}
}

// Keys returns the sorted keys of r.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys in r.
func (r Record) Len() int { return len(r.values) }

// Empty reports whether r has no keys at all.
func (r Record) Empty() bool { return len(r.values) == 0 }

// AvailableCount returns how many values in r are available.
func (r Record) AvailableCount() int {
	n := 0
	for _, v := range r.values {
		if v.Available() {
			n++
		}
	}
	return n
}

// Equal reports whether r and o hold the same keys and values.
func (r Record) Equal(o Record) bool {
	if len(r.values) != len(o.values) {
		return false
	}
	for k, v := range r.values {
		ov, ok := o.values[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes r as a JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.values)
}

// UnmarshalJSON decodes a JSON object into r. JSON null yields an empty
// record.
func (r *Record) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = Record{}
		return nil
	}
	rec, err := DecodeRecord(data)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

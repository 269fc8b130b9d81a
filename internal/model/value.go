package model

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Kind identifies the shape of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindBool
	KindSeries
	KindBundle
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindSeries:
		return "series"
	case KindBundle:
		return "bundle"
	default:
		return "unknown"
	}
}

// Value is a single metric value. It is one of a closed set of shapes:
// null, a scalar (number, text, bool), a series of values ordered
// newest-first, or a bundle of named sub-values. The zero Value is null.
// Values are immutable; constructors copy their inputs.
type Value struct {
	kind   Kind
	num    float64
	text   string
	flag   bool
	series []Value
	bundle map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Number returns a numeric value. NaN and infinities become null.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// NumberPtr returns Number(*f), or null for a nil pointer.
func NumberPtr(f *float64) Value {
	if f == nil {
		return Value{}
	}
	return Number(*f)
}

// Text returns a string value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Series returns a series value. Items are expected newest-first.
func Series(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindSeries, series: cp}
}

// NumberSeries is a convenience for a series of plain numbers.
func NumberSeries(nums ...float64) Value {
	items := make([]Value, len(nums))
	for i, n := range nums {
		items[i] = Number(n)
	}
	return Value{kind: KindSeries, series: items}
}

// Bundle returns a nested value holding named sub-values.
func Bundle(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindBundle, bundle: cp}
}

// Kind reports the shape of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsScalar reports whether v is a non-container value (null included).
func (v Value) IsScalar() bool {
	return v.kind != KindSeries && v.kind != KindBundle
}

// Available reports whether v carries usable data. Scalars are available
// when not null. Series and bundles are available when they are non-empty
// and hold at least one available element, checked recursively.
func (v Value) Available() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindNumber, KindText, KindBool:
		return true
	case KindSeries:
		for _, item := range v.series {
			if item.Available() {
				return true
			}
		}
		return false
	case KindBundle:
		for _, item := range v.bundle {
			if item.Available() {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Float returns the numeric content of v and whether v is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Numeric returns v as a number. Text holding a finite decimal (as some
// providers send every field) is parsed; placeholders such as "None" are
// not numeric.
func (v Value) Numeric() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Str returns the text content of v and whether v is text.
func (v Value) Str() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// Flag returns the boolean content of v and whether v is a bool.
func (v Value) Flag() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.flag, true
}

// Items returns a copy of the series elements, or nil for non-series values.
func (v Value) Items() []Value {
	if v.kind != KindSeries {
		return nil
	}
	cp := make([]Value, len(v.series))
	copy(cp, v.series)
	return cp
}

// Field returns the named sub-value of a bundle, or null.
func (v Value) Field(name string) Value {
	if v.kind != KindBundle {
		return Value{}
	}
	return v.bundle[name]
}

// FieldNames returns the sorted sub-value names of a bundle.
func (v Value) FieldNames() []string {
	if v.kind != KindBundle {
		return nil
	}
	names := make([]string, 0, len(v.bundle))
	for k := range v.bundle {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of elements in a series or bundle, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindSeries:
		return len(v.series)
	case KindBundle:
		return len(v.bundle)
	default:
		return 0
	}
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindBool:
		return v.flag == o.flag
	case KindSeries:
		if len(v.series) != len(o.series) {
			return false
		}
		for i := range v.series {
			if !v.series[i].Equal(o.series[i]) {
				return false
			}
		}
		return true
	case KindBundle:
		if len(v.bundle) != len(o.bundle) {
			return false
		}
		for k, a := range v.bundle {
			b, ok := o.bundle[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v compactly for logs and reports.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.flag)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return v.kind.String()
		}
		return string(b)
	}
}

// FromAny converts a decoded JSON-like Go value into a Value. Unknown types
// become null.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Value{}
	case Value:
		return t
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case *float64:
		return NumberPtr(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Text(t.String())
		}
		return Number(f)
	case string:
		return Text(t)
	case bool:
		return Bool(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return Value{kind: KindSeries, series: items}
	case []float64:
		return NumberSeries(t...)
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			fields[k] = FromAny(item)
		}
		return Value{kind: KindBundle, bundle: fields}
	default:
		return Value{}
	}
}

// MarshalJSON encodes v as the natural JSON shape.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindNumber:
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.text)
	case KindBool:
		return json.Marshal(v.flag)
	case KindSeries:
		if v.series == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.series)
	case KindBundle:
		if v.bundle == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.bundle)
	default:
		return nil, eris.Errorf("model: unknown value kind %d", v.kind)
	}
}

// UnmarshalJSON decodes any JSON document into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return eris.Wrap(err, "model: decode value")
	}
	*v = FromAny(raw)
	return nil
}

package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Wire keys of the one-of objects.
const (
	keyArray   = "arrayValue"
	keyBlob    = "blobValue"
	keyBoolean = "booleanValue"
	keyDouble  = "doubleValue"
	keyNull    = "isNull"
	keyLong    = "longValue"
	keyString  = "stringValue"

	keyArrays   = "arrayValues"
	keyBooleans = "booleanValues"
	keyDoubles  = "doubleValues"
	keyLongs    = "longValues"
	keyStrings  = "stringValues"
)

// ErrInvalidWireValue is returned when a wire value is not a well formed
// one-of object.
var ErrInvalidWireValue = errors.New("invalid typed value")

func oneOf(key string, v any) ([]byte, error) {
	return json.Marshal(map[string]any{key: v})
}

func (f ArrayField) MarshalJSON() ([]byte, error) {
	if f.Value == nil {
		return nil, fmt.Errorf("%w: empty arrayValue", ErrInvalidWireValue)
	}
	return oneOf(keyArray, f.Value)
}
func (b Blob) MarshalJSON() ([]byte, error)    { return oneOf(keyBlob, string(b)) }
func (b Boolean) MarshalJSON() ([]byte, error) { return oneOf(keyBoolean, bool(b)) }
func (d Double) MarshalJSON() ([]byte, error)  { return oneOf(keyDouble, float64(d)) }
func (Null) MarshalJSON() ([]byte, error)      { return oneOf(keyNull, true) }
func (l Long) MarshalJSON() ([]byte, error)    { return oneOf(keyLong, int64(l)) }
func (s String) MarshalJSON() ([]byte, error)  { return oneOf(keyString, string(s)) }

func (a Arrays) MarshalJSON() ([]byte, error)   { return oneOf(keyArrays, []Array(nonNil(a))) }
func (a Booleans) MarshalJSON() ([]byte, error) { return oneOf(keyBooleans, []bool(nonNil(a))) }
func (a Doubles) MarshalJSON() ([]byte, error)  { return oneOf(keyDoubles, []float64(nonNil(a))) }
func (a Longs) MarshalJSON() ([]byte, error)    { return oneOf(keyLongs, []int64(nonNil(a))) }
func (a Strings) MarshalJSON() ([]byte, error)  { return oneOf(keyStrings, []string(nonNil(a))) }

// nonNil keeps empty arrays encoded as [] rather than null.
func nonNil[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}

// singleKey splits a one-of object into its only key and raw value.
func singleKey(data []byte, what string) (string, json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", nil, fmt.Errorf("%w: %s must be an object: %v", ErrInvalidWireValue, what, err)
	}
	if len(obj) != 1 {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", nil, fmt.Errorf("%w: %s must have exactly one key, got [%s]", ErrInvalidWireValue, what, strings.Join(keys, ", "))
	}
	var (
		key string
		raw json.RawMessage
	)
	for k, v := range obj {
		key, raw = k, v
	}
	if string(raw) == "null" {
		return "", nil, fmt.Errorf("%w: %s must not be null", ErrInvalidWireValue, key)
	}
	return key, raw, nil
}

func decodeInto(key string, raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidWireValue, key, err)
	}
	return nil
}

// DecodeField decodes a wire one-of object into a Field.
func DecodeField(data []byte) (Field, error) {
	key, raw, err := singleKey(data, "value")
	if err != nil {
		return nil, err
	}
	switch key {
	case keyArray:
		a, err := DecodeArray(raw)
		if err != nil {
			return nil, err
		}
		return ArrayField{Value: a}, nil
	case keyBlob:
		var s string
		if err := decodeInto(key, raw, &s); err != nil {
			return nil, err
		}
		return Blob(s), nil
	case keyBoolean:
		var b bool
		if err := decodeInto(key, raw, &b); err != nil {
			return nil, err
		}
		return Boolean(b), nil
	case keyDouble:
		var d float64
		if err := decodeInto(key, raw, &d); err != nil {
			return nil, err
		}
		return Double(d), nil
	case keyNull:
		var b bool
		if err := decodeInto(key, raw, &b); err != nil {
			return nil, err
		}
		if !b {
			return nil, fmt.Errorf("%w: isNull must be true", ErrInvalidWireValue)
		}
		return Null{}, nil
	case keyLong:
		var l int64
		if err := decodeInto(key, raw, &l); err != nil {
			return nil, err
		}
		return Long(l), nil
	case keyString:
		var s string
		if err := decodeInto(key, raw, &s); err != nil {
			return nil, err
		}
		return String(s), nil
	default:
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidWireValue, key)
	}
}

// DecodeArray decodes a wire array one-of object into an Array.
func DecodeArray(data []byte) (Array, error) {
	key, raw, err := singleKey(data, "arrayValue")
	if err != nil {
		return nil, err
	}
	switch key {
	case keyArrays:
		var items []json.RawMessage
		if err := decodeInto(key, raw, &items); err != nil {
			return nil, err
		}
		out := make(Arrays, 0, len(items))
		for _, item := range items {
			a, err := DecodeArray(item)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}
		return out, nil
	case keyBooleans:
		var v []bool
		err := decodeInto(key, raw, &v)
		return Booleans(nonNil(v)), err
	case keyDoubles:
		var v []float64
		err := decodeInto(key, raw, &v)
		return Doubles(nonNil(v)), err
	case keyLongs:
		var v []int64
		err := decodeInto(key, raw, &v)
		return Longs(nonNil(v)), err
	case keyStrings:
		var v []string
		err := decodeInto(key, raw, &v)
		return Strings(nonNil(v)), err
	default:
		return nil, fmt.Errorf("%w: unknown array key %q", ErrInvalidWireValue, key)
	}
}

type wireParameter struct {
	Name     string          `json:"name"`
	Value    json.RawMessage `json:"value"`
	TypeHint TypeHint        `json:"typeHint,omitempty"`
}

// UnmarshalJSON decodes {"name": ..., "value": {...}, "typeHint": ...}.
func (p *NamedParameter) UnmarshalJSON(data []byte) error {
	var w wireParameter
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: parameter: %v", ErrInvalidWireValue, err)
	}
	if len(w.Value) == 0 || string(w.Value) == "null" {
		return fmt.Errorf("%w: parameter %q has no value", ErrInvalidWireValue, w.Name)
	}
	if w.TypeHint != "" && !w.TypeHint.Valid() {
		return fmt.Errorf("%w: parameter %q has unknown typeHint %q", ErrInvalidWireValue, w.Name, w.TypeHint)
	}
	f, err := DecodeField(w.Value)
	if err != nil {
		return fmt.Errorf("parameter %q: %w", w.Name, err)
	}
	*p = NamedParameter{Name: w.Name, Value: f, TypeHint: w.TypeHint}
	return nil
}

// MarshalJSON encodes the parameter in its wire form.
func (p NamedParameter) MarshalJSON() ([]byte, error) {
	if p.Value == nil {
		return nil, fmt.Errorf("%w: parameter %q has no value", ErrInvalidWireValue, p.Name)
	}
	v, err := json.Marshal(p.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireParameter{Name: p.Name, Value: v, TypeHint: p.TypeHint})
}

// Record is an ordered list of fields, one per column. It exists so that
// responses can be decoded back into Fields.
type Record []Field

// UnmarshalJSON decodes a JSON array of one-of objects.
func (r *Record) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("%w: record: %v", ErrInvalidWireValue, err)
	}
	out := make(Record, 0, len(items))
	for _, item := range items {
		f, err := DecodeField(item)
		if err != nil {
			return err
		}
		out = append(out, f)
	}
	*r = out
	return nil
}

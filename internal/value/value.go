// Package value implements the typed value model of the Data API.
//
// What: Field is the tagged union a database value travels as (array, blob,
// boolean, double, null, long or string); Array is its recursive homogeneous
// array counterpart; NamedParameter pairs a Field with a name and an optional
// type hint.
// How: Both unions are closed interfaces with an unexported marker method, so
// only the concrete types declared here can satisfy them and type switches
// over them stay small and checkable.
// Why: The binder and the row marshaler dispatch on the variant; a closed set
// keeps that dispatch honest.
package value

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Field is one typed value. The concrete types are ArrayField, Blob,
// Boolean, Double, Null, Long and String.
type Field interface {
	isField()
}

// ArrayField wraps a nested array value.
type ArrayField struct {
	Value Array
}

// Blob is a binary payload. It holds the base64 text it travels as on the
// wire rather than the raw bytes: marshaled column bytes are encoded once,
// in NewBlob, and a decoded parameter is only turned back into bytes by
// Bytes when it is bound.
type Blob string

// Boolean is a boolean value.
type Boolean bool

// Double is a 64-bit floating point value.
type Double float64

// Null marks an absent value. It has a single meaningful state.
type Null struct{}

// Long is a 64-bit signed integer value.
type Long int64

// String is a text value.
type String string

func (ArrayField) isField() {}
func (Blob) isField()       {}
func (Boolean) isField()    {}
func (Double) isField()     {}
func (Null) isField()       {}
func (Long) isField()       {}
func (String) isField()     {}

// NewBlob encodes raw bytes into a Blob.
func NewBlob(b []byte) Blob {
	return Blob(base64.StdEncoding.EncodeToString(b))
}

// Bytes decodes the blob payload.
func (b Blob) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(string(b))
}

// Array is a homogeneous array value. The concrete types are Arrays,
// Booleans, Doubles, Longs and Strings; nesting through Arrays is the only
// way to mix shapes.
type Array interface {
	isArray()
}

// Arrays is an array of arrays.
type Arrays []Array

// Booleans is an array of booleans.
type Booleans []bool

// Doubles is an array of doubles.
type Doubles []float64

// Longs is an array of longs.
type Longs []int64

// Strings is an array of strings.
type Strings []string

func (Arrays) isArray()   {}
func (Booleans) isArray() {}
func (Doubles) isArray()  {}
func (Longs) isArray()    {}
func (Strings) isArray()  {}

// TypeHint is advisory metadata a caller may attach to a parameter. It is
// carried through decoding but does not change how a parameter binds.
type TypeHint string

// Supported type hints.
const (
	HintDate      TypeHint = "DATE"
	HintDecimal   TypeHint = "DECIMAL"
	HintJSON      TypeHint = "JSON"
	HintTime      TypeHint = "TIME"
	HintTimestamp TypeHint = "TIMESTAMP"
	HintUUID      TypeHint = "UUID"
)

// Valid reports whether h is one of the supported hints.
func (h TypeHint) Valid() bool {
	switch h {
	case HintDate, HintDecimal, HintJSON, HintTime, HintTimestamp, HintUUID:
		return true
	default:
		return false
	}
}

// NamedParameter is a value bound to a :name reference in a statement.
type NamedParameter struct {
	Name     string
	Value    Field
	TypeHint TypeHint // empty when absent
}

// Kind returns the wire key of a field, e.g. "longValue".
func Kind(f Field) string {
	switch f.(type) {
	case ArrayField:
		return keyArray
	case Blob:
		return keyBlob
	case Boolean:
		return keyBoolean
	case Double:
		return keyDouble
	case Null:
		return keyNull
	case Long:
		return keyLong
	case String:
		return keyString
	default:
		return fmt.Sprintf("%T", f)
	}
}

// Format renders a field for humans, e.g. in CLI output and log lines.
func Format(f Field) string {
	switch v := f.(type) {
	case ArrayField:
		return formatArray(v.Value)
	case Blob:
		return "blob(" + string(v) + ")"
	case Boolean:
		return fmt.Sprint(bool(v))
	case Double:
		return fmt.Sprint(float64(v))
	case Null:
		return "NULL"
	case Long:
		return fmt.Sprint(int64(v))
	case String:
		return string(v)
	default:
		return fmt.Sprintf("%v", f)
	}
}

func formatArray(a Array) string {
	var parts []string
	switch v := a.(type) {
	case Arrays:
		for _, inner := range v {
			parts = append(parts, formatArray(inner))
		}
	case Booleans:
		for _, x := range v {
			parts = append(parts, fmt.Sprint(x))
		}
	case Doubles:
		for _, x := range v {
			parts = append(parts, fmt.Sprint(x))
		}
	case Longs:
		for _, x := range v {
			parts = append(parts, fmt.Sprint(x))
		}
	case Strings:
		parts = append(parts, v...)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

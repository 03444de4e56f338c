package engine

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/SimonWaldherr/dataapi/internal/value"
)

// Category is the kind of a native column type as far as the wire
// representation is concerned.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryText
	CategoryBoolean
	CategoryInteger
	CategoryFloat
	CategoryTemporal
	CategoryBinary
)

func (c Category) String() string {
	switch c {
	case CategoryText:
		return "text"
	case CategoryBoolean:
		return "boolean"
	case CategoryInteger:
		return "integer"
	case CategoryFloat:
		return "floating"
	case CategoryTemporal:
		return "temporal"
	case CategoryBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Column describes one result column as reported by the engine.
type Column struct {
	Name     string
	TypeName string
}

// Catalog is an engine's type catalog. Category must match type names the
// way the engine reports them.
type Catalog interface {
	Category(typeName string) Category
	// FormatTime renders a temporal value in the engine's canonical form.
	FormatTime(t time.Time, typeName string) string
}

// MarshalRow converts one native row into typed fields, one per column.
// A nil value is always Null regardless of the column type.
func MarshalRow(values []any, columns []Column, catalog Catalog) ([]value.Field, error) {
	if len(values) != len(columns) {
		return nil, fmt.Errorf("row has %d values for %d columns", len(values), len(columns))
	}
	fields := make([]value.Field, len(values))
	for i, v := range values {
		f, err := marshalValue(v, columns[i], catalog)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", columns[i].Name, err)
		}
		fields[i] = f
	}
	return fields, nil
}

func marshalValue(v any, col Column, catalog Catalog) (value.Field, error) {
	if v == nil {
		return value.Null{}, nil
	}
	category := catalog.Category(col.TypeName)
	switch category {
	case CategoryText:
		if s, ok := asText(v, col, catalog); ok {
			return value.String(s), nil
		}
	case CategoryBoolean:
		b, err := asBool(v)
		if err != nil {
			return nil, err
		}
		return value.Boolean(b), nil
	case CategoryInteger:
		n, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		return value.Long(n), nil
	case CategoryFloat:
		f, err := asFloat64(v)
		if err != nil {
			return nil, err
		}
		return value.Double(f), nil
	case CategoryTemporal:
		if s, ok := asText(v, col, catalog); ok {
			return value.String(s), nil
		}
	case CategoryBinary:
		switch b := v.(type) {
		case []byte:
			return value.NewBlob(b), nil
		case string:
			return value.NewBlob([]byte(b)), nil
		}
	default:
		if s, ok := asText(v, col, catalog); ok {
			return value.String(s), nil
		}
		return value.Null{}, nil
	}
	return nil, fmt.Errorf("cannot convert %T to %s (%s)", v, category, col.TypeName)
}

func asText(v any, col Column, catalog Catalog) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case time.Time:
		return catalog.FormatTime(x, col.TypeName), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

func asBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case uint64:
		return x != 0, nil
	case []byte:
		return strconv.ParseBool(string(x))
	case string:
		return strconv.ParseBool(x)
	default:
		return false, fmt.Errorf("cannot convert %T to boolean", v)
	}
}

func asInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows a long", x)
		}
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", v)
	}
}

func asFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to floating point", v)
	}
}

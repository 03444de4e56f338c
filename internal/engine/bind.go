package engine

import (
	"fmt"

	"github.com/SimonWaldherr/dataapi/internal/value"
)

// Bind resolves the placeholder names produced by Rewrite against one
// parameter set and returns the values to pass to the engine, one per
// placeholder. Blobs bind as []byte and nulls as nil.
func Bind(names []string, params []value.NamedParameter) ([]any, error) {
	byName := make(map[string]value.NamedParameter, len(params))
	for _, p := range params {
		if _, ok := byName[p.Name]; ok {
			return nil, newError(ErrDuplicateParameter, p.Name, nil)
		}
		byName[p.Name] = p
	}

	args := make([]any, 0, len(names))
	for _, name := range names {
		p, ok := byName[name]
		if !ok {
			return nil, newError(ErrMissingParameter, name, nil)
		}
		arg, err := bindValue(p)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func bindValue(p value.NamedParameter) (any, error) {
	switch v := p.Value.(type) {
	case value.ArrayField:
		return nil, newError(ErrUnsupportedParameterType, p.Name, nil)
	case value.Blob:
		b, err := v.Bytes()
		if err != nil {
			return nil, newError(ErrInvalidBlobEncoding, p.Name, err)
		}
		return b, nil
	case value.Boolean:
		return bool(v), nil
	case value.Double:
		return float64(v), nil
	case value.Long:
		return int64(v), nil
	case value.String:
		return string(v), nil
	case value.Null:
		return nil, nil
	default:
		return nil, newError(ErrUnsupportedParameterType, fmt.Sprintf("%s (%T)", p.Name, p.Value), nil)
	}
}

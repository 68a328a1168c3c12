package dataset

import (
	"strconv"
	"strings"

	"geopoints/pkg/geoerr"
)

// coerceAttributes normalizes the Attributes parameter into named float vectors.
func coerceAttributes(v any) (map[string][]float64, error) {
	switch a := v.(type) {
	case nil:
		return map[string][]float64{}, nil
	case map[string][]float64:
		return copyAttributes(a), nil
	case map[string]any:
		out := make(map[string][]float64, len(a))
		for name, raw := range a {
			values, err := toFloats(raw)
			if err != nil {
				return nil, geoerr.Validationf("attribute %q: %v", name, err)
			}
			out[name] = values
		}
		return out, nil
	default:
		values, err := toFloats(v)
		if err != nil {
			return nil, geoerr.Validationf("attribute %q: %v", DefaultAttributeName, err)
		}
		return map[string][]float64{DefaultAttributeName: values}, nil
	}
}

func toFloats(v any) ([]float64, error) {
	switch a := v.(type) {
	case []float64:
		out := make([]float64, len(a))
		copy(out, a)
		return out, nil
	case []float32:
		return convert(a, func(x float32) (float64, error) { return float64(x), nil })
	case []int:
		return convert(a, func(x int) (float64, error) { return float64(x), nil })
	case []int64:
		return convert(a, func(x int64) (float64, error) { return float64(x), nil })
	case []string:
		return convert(a, parseFloat)
	case []any:
		return convert(a, toFloat)
	default:
		return nil, geoerr.Validationf("unsupported attribute type %T", v)
	}
}

func convert[T any](in []T, f func(T) (float64, error)) ([]float64, error) {
	out := make([]float64, len(in))
	for i, x := range in {
		v, err := f(x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case string:
		return parseFloat(x)
	default:
		return 0, geoerr.Validationf("value %v (%T) is not numeric", v, v)
	}
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, geoerr.Validationf("value %q is not numeric", s)
	}
	return v, nil
}

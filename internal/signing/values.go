package signing

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueError reports a parameter whose value cannot be rendered as a scalar.
type ValueError struct {
	Key string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("signing: parameter %q must be a string or number", e.Key)
}

// ParamsFromValues coerces decoded JSON scalars into a Params set. Numbers are
// rendered in plain decimal without exponent; nested objects, arrays and
// nulls are rejected.
func ParamsFromValues(values map[string]any) (Params, error) {
	out := make(Params, len(values))
	for k, v := range values {
		s, ok := scalarString(v)
		if !ok {
			return nil, &ValueError{Key: k}
		}
		out[k] = s
	}
	return out, nil
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		f, err := t.Float64()
		if err != nil {
			return "", false
		}
		return formatFloat(f)
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float32:
		return formatFloat(float64(t))
	case float64:
		return formatFloat(t)
	default:
		return "", false
	}
}

func formatFloat(f float64) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

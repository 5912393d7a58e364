package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Arguments arrive decoded from JSON, so numbers are usually float64 but may
// also be json.Number, Go integers or numeric strings.

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// Scalar formats a scalar argument for a path segment or query parameter.
// Integral floats lose their fractional part.
func Scalar(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case float32:
		return formatFloat(float64(x)), nil
	case float64:
		return formatFloat(x), nil
	default:
		return "", fmt.Errorf("catalog: unsupported scalar %T", v)
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Number converts a numeric argument (or numeric string) to float64.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Int converts a numeric argument to int.
func Int(v any) (int, bool) {
	f, ok := Number(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func intArg(args map[string]any, name string, def int) int {
	if v, ok := args[name]; ok && !isBlank(v) {
		if n, ok := Int(v); ok {
			return n
		}
	}
	return def
}

func stringArg(args map[string]any, name string) (string, bool) {
	v, ok := args[name]
	if !ok || isBlank(v) {
		return "", false
	}
	s, err := Scalar(v)
	if err != nil {
		return "", false
	}
	return s, true
}

// cloneArgs makes a shallow copy so request building never mutates the
// caller's map (it is also the fingerprint input).
func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}

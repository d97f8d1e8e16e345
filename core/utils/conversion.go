package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ToInt64 converts database and JSON scalar values to int64.
// The boolean is false for nil or values that do not parse.
func ToInt64(val any) (int64, bool) {
	switch v := val.(type) {
	case nil:
		return 0, false
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint8:
		return int64(v), true
	case float64:
		return int64(v), isFinite(v)
	case float32:
		return int64(v), isFinite(float64(v))
	case string:
		return parseInt(v)
	case []byte:
		return parseInt(string(v))
	default:
		return parseInt(fmt.Sprintf("%v", v))
	}
}

func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	// DECIMAL columns come back as "12.0000".
	if f, ok := parseFloat(s); ok {
		return int64(f), true
	}
	return 0, false
}

// ToFloat64 converts database and JSON scalar values to float64.
// The boolean is false for nil, values that do not parse, and NaN or infinities.
func ToFloat64(val any) (float64, bool) {
	switch v := val.(type) {
	case nil:
		return 0, false
	case float64:
		return v, isFinite(v)
	case float32:
		return float64(v), isFinite(float64(v))
	case int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8:
		i, ok := ToInt64(v)
		return float64(i), ok
	case string:
		return parseFloat(v)
	case []byte:
		return parseFloat(string(v))
	default:
		return parseFloat(fmt.Sprintf("%v", v))
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ToString converts various types to string. Nil becomes the empty string.
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToBool converts various types to bool.
// It handles bool, numeric types (1=true), and strings ("1", "true").
func ToBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8:
		i, _ := ToInt64(v)
		return i == 1
	case string:
		return v == "1" || strings.ToLower(v) == "true"
	case []byte:
		s := string(v)
		return s == "1" || strings.ToLower(s) == "true"
	default:
		return false
	}
}

// Float64Ptr returns a pointer to the converted value, or nil when val is not numeric.
func Float64Ptr(val any) *float64 {
	f, ok := ToFloat64(val)
	if !ok {
		return nil
	}
	return &f
}

// Int64Ptr returns a pointer to the converted value, or nil when val is not numeric.
func Int64Ptr(val any) *int64 {
	i, ok := ToInt64(val)
	if !ok {
		return nil
	}
	return &i
}

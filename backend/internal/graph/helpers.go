package graph

import (
	"math"
	"strconv"
)

// ============================================================================
// Helper Functions
// ============================================================================

func getInt64FromRecord(record Record, key string) (int64, bool) {
	return toInt64(record[key])
}

func getFloat64FromRecord(record Record, key string) (float64, bool) {
	return toFloat64(record[key])
}

func getStringFromRecord(record Record, key string) string {
	if str, ok := record[key].(string); ok {
		return str
	}
	return ""
}

func getOptionalString(record Record, key string) *string {
	str, ok := record[key].(string)
	if !ok {
		return nil
	}
	return &str
}

func getStringSliceFromRecord(record Record, key string) []string {
	val, ok := record[key]
	if !ok || val == nil {
		return []string{}
	}
	switch slice := val.(type) {
	case []string:
		return append([]string(nil), slice...)
	case []any:
		result := make([]string, 0, len(slice))
		for _, v := range slice {
			switch s := v.(type) {
			case string:
				result = append(result, s)
			case int64:
				// Some ingests stored artist ids as integers
				result = append(result, strconv.FormatInt(s, 10))
			}
		}
		return result
	}
	return []string{}
}

// getInt64SliceFromRecord reads a list of ids. A nil or missing list is
// empty; any element that is not a whole number makes the list invalid.
func getInt64SliceFromRecord(record Record, key string) ([]int64, bool) {
	val, ok := record[key]
	if !ok || val == nil {
		return []int64{}, true
	}
	slice, ok := val.([]any)
	if !ok {
		if ints, ok := val.([]int64); ok {
			return append([]int64(nil), ints...), true
		}
		return nil, false
	}
	result := make([]int64, 0, len(slice))
	for _, v := range slice {
		i, ok := toInt64(v)
		if !ok {
			return nil, false
		}
		result = append(result, i)
	}
	return result, true
}

func getMapFromRecord(record Record, key string) map[string]any {
	if m, ok := record[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func getFloat64FromMap(m map[string]any, key string, defaultValue float64) float64 {
	if f, ok := toFloat64(m[key]); ok {
		return f
	}
	return defaultValue
}

func toInt64(val any) (int64, bool) {
	switch v := val.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		// Whole numbers only; ids must not be silently truncated
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

func toFloat64(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

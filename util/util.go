package util

import (
	"math"
	"sort"
	"strconv"
)

// Computes a percentile (0-100) from an array. The input is not modified.
func Percentile(a []float64, p int) float64 {
	if len(a) == 0 {
		return math.NaN()
	}
	if len(a) == 1 {
		return a[0]
	}

	sorted := make([]float64, len(a))
	copy(sorted, a)
	sort.Float64s(sorted)

	r := (float64(p)/100)*float64(len(sorted)) - 1
	if r < 0 {
		return sorted[0]
	}
	if r >= float64(len(sorted)-1) {
		return sorted[len(sorted)-1]
	}

	if r == float64(int(r)) {
		return sorted[int(r)]
	} else {
		ri := int(r)
		rf := r - float64(ri)
		return sorted[ri] + rf*(sorted[ri+1]-sorted[ri])
	}
}

// Reports whether s is an optionally signed run of decimal digits
func IsInteger(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Formats a value read from a record as text
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []byte:
		return string(x)
	default:
		return ""
	}
}

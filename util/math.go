package util

import "math"

// SafeAdd returns a+b and false if the sum overflows uint64.
func SafeAdd(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// SafeSub returns a-b and false if b is greater than a.
func SafeSub(a, b uint64) (uint64, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

// SafeSum adds all values, false on overflow.
func SafeSum(values ...uint64) (uint64, bool) {
	var total uint64
	for _, v := range values {
		var ok bool
		if total, ok = SafeAdd(total, v); !ok {
			return 0, false
		}
	}
	return total, true
}

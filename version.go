package stamp

import "strings"

// Compare orders two dotted version strings numerically, component by
// component. Missing trailing components count as zero and each segment
// contributes only its leading decimal digits, so "2.10.0" sorts after
// "2.9.0" and "2.1.0-beta" equals "2.1.0". It returns -1, 0 or 1.
func Compare(a, b string) int {
	left := segments(a)
	right := segments(b)
	n := len(left)
	if len(right) > n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		l, r := segmentAt(left, i), segmentAt(right, i)
		switch {
		case l < r:
			return -1
		case l > r:
			return 1
		}
	}
	return 0
}

// IsLower reports whether a is strictly lower than b.
func IsLower(a, b string) bool {
	return Compare(a, b) < 0
}

// Major returns the leading numeric component of v.
func Major(v string) int {
	return segmentAt(segments(v), 0)
}

// Valid reports whether v is a non-empty dotted string made only of
// decimal segments. Comparison never requires validity.
func Valid(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	for _, part := range strings.Split(v, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

func segments(v string) []int {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, part := range parts {
		out[i] = leadingNumber(part)
	}
	return out
}

func segmentAt(values []int, i int) int {
	if i < len(values) {
		return values[i]
	}
	return 0
}

// leadingNumber mirrors parseInt: digits up to the first non-digit, zero
// when there are none. Overlong segments saturate instead of wrapping.
func leadingNumber(part string) int {
	const maxInt = int(^uint(0) >> 1)
	n := 0
	for _, r := range strings.TrimSpace(part) {
		if r < '0' || r > '9' {
			break
		}
		digit := int(r - '0')
		if n > (maxInt-digit)/10 {
			return maxInt
		}
		n = n*10 + digit
	}
	return n
}

package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ParseSelection interprets a subscription selection string: the word "all"
// (any case) or a comma-separated list of 1-based indices. count is the
// number of items on offer. Returned indices are zero-based, in the order
// given. Out-of-range and repeated indices are rejected.
func ParseSelection(input string, count int) ([]int, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, errors.New("nothing selected")
	}

	if strings.EqualFold(trimmed, "all") {
		out := make([]int, count)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}

	seen := make(map[int]bool)
	var out []int
	for _, part := range strings.Split(trimmed, ",") {
		part = strings.TrimSpace(part)
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", part)
		}
		if n < 1 || n > count {
			return nil, fmt.Errorf("index %d is out of range 1..%d", n, count)
		}
		if seen[n] {
			return nil, fmt.Errorf("index %d appears more than once", n)
		}
		seen[n] = true
		out = append(out, n-1)
	}
	return out, nil
}

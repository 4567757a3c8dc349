package dataprep

import (
	"fmt"
	"sort"
	"strconv"
)

// FormatLevel renders a numeric cell as a factor level label ("1", "2.5").
func FormatLevel(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Levels returns the distinct values of a categorical column in factor order:
// numerically when every level parses as a number, lexically otherwise.
func Levels(data []string) []string {
	unique := map[string]struct{}{}
	for _, v := range data {
		unique[v] = struct{}{}
	}
	out := make([]string, 0, len(unique))
	numeric := true
	for v := range unique {
		out = append(out, v)
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			numeric = false
		}
	}
	if numeric {
		sort.Slice(out, func(i, j int) bool {
			a, _ := strconv.ParseFloat(out[i], 64)
			b, _ := strconv.ParseFloat(out[j], 64)
			if a == b {
				// "01" and "1" parse alike; keep the order stable
				return out[i] < out[j]
			}
			return a < b
		})
	} else {
		sort.Strings(out)
	}
	return out
}

// DummyCode encodes a categorical column with treatment contrasts: one 0/1
// column per level except the first (the reference level). Values outside
// levels are an error so new data cannot silently map to the reference.
func DummyCode(data []string, levels []string) ([][]float64, error) {
	return indicators(data, levels, 1)
}

// OneHot encodes a categorical column with one 0/1 column per level. Used for
// the first factor of a model without an intercept.
func OneHot(data []string, levels []string) ([][]float64, error) {
	return indicators(data, levels, 0)
}

func indicators(data []string, levels []string, skip int) ([][]float64, error) {
	index := make(map[string]int, len(levels))
	for i, l := range levels {
		index[l] = i
	}
	out := make([][]float64, len(levels)-skip)
	for k := range out {
		out[k] = make([]float64, len(data))
	}
	for i, v := range data {
		li, ok := index[v]
		if !ok {
			return nil, fmt.Errorf("unknown level %q", v)
		}
		if li >= skip {
			out[li-skip][i] = 1
		}
	}
	return out, nil
}

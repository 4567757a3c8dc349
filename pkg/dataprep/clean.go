package dataprep

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(v string) bool {
	return v == "" || v == "NA" || v == "NaN" || v == "na" || v == "nan"
}

// CompleteRows returns the indices of rows that are not missing in any of the
// given per-column missingness masks (listwise deletion).
func CompleteRows(missing [][]bool, nrows int) []int {
	keep := make([]int, 0, nrows)
	for i := 0; i < nrows; i++ {
		ok := true
		for _, m := range missing {
			if m[i] {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}
	return keep
}

package dataprep

import "math"

// Interact returns the element-wise product of two feature columns.
func Interact(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return out
}

// Power raises each value to the k-th power.
func Power(x []float64, k int) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Pow(v, float64(k))
	}
	return out
}

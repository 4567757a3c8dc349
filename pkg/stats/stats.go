package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// madConstant makes the median absolute deviation consistent with the
// standard deviation of a normal distribution.
const madConstant = 1.4826

// Mean computes the average of a slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Variance computes the unbiased sample variance (n-1 denominator).
func Variance(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.Variance(x, nil)
}

// Std computes the sample standard deviation of a slice.
func Std(x []float64) float64 {
	return math.Sqrt(Variance(x))
}

// MinMax returns the minimum and maximum values in the slice.
func MinMax(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	return floats.Min(x), floats.Max(x)
}

// Sum returns the sum of all elements in the slice.
func Sum(x []float64) float64 {
	return floats.Sum(x)
}

// Median returns the median value of the slice (allocates a copy).
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, x)
	sort.Float64s(cp)
	mid := n >> 1
	if n&1 == 0 {
		return (cp[mid-1] + cp[mid]) * 0.5
	}
	return cp[mid]
}

// MAD returns the median absolute deviation scaled to be consistent with
// the standard deviation under normality (R's mad()).
func MAD(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	med := Median(x)
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = math.Abs(v - med)
	}
	return madConstant * Median(dev)
}

// Percentile returns the p-th percentile value of the slice (0 <= p <= 100),
// interpolating linearly between order statistics.
func Percentile(x []float64, p float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	min, max := MinMax(x)
	if p <= 0 {
		return min
	}
	if p >= 100 {
		return max
	}
	cp := make([]float64, n)
	copy(cp, x)
	sort.Float64s(cp)
	rank := p / 100 * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	weight := rank - float64(lower)
	if upper >= n {
		return cp[lower]
	}
	return cp[lower]*(1-weight) + cp[upper]*weight
}

// Quantile is Percentile with q in [0, 1].
func Quantile(x []float64, q float64) float64 {
	return Percentile(x, q*100)
}

// CentralInterval returns the equal-tailed interval holding prob of the mass.
func CentralInterval(x []float64, prob float64) (lo, hi float64) {
	tail := (1 - prob) / 2
	return Quantile(x, tail), Quantile(x, 1-tail)
}

// LogSumExp computes log(sum(exp(x))) without overflow.
func LogSumExp(x []float64) float64 {
	if len(x) == 0 {
		return math.Inf(-1)
	}
	return floats.LogSumExp(x)
}

// LogMeanExp computes log(mean(exp(x))).
func LogMeanExp(x []float64) float64 {
	return LogSumExp(x) - math.Log(float64(len(x)))
}

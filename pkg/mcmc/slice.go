package mcmc

import (
	"math"
	"math/rand/v2"
)

// sliceSample performs one univariate slice sampling update from x0 using
// the stepping-out and shrinkage procedure (Neal, 2003). w is the initial
// bracket width and maxSteps bounds the stepping out.
func sliceSample(x0 float64, logf func(float64) float64, w float64, maxSteps int, rng *rand.Rand) float64 {
	ly := logf(x0) - rng.ExpFloat64()

	left := x0 - w*rng.Float64()
	right := left + w
	j := int(rng.Float64() * float64(maxSteps))
	k := maxSteps - 1 - j
	for ; j > 0 && logf(left) > ly; j-- {
		left -= w
	}
	for ; k > 0 && logf(right) > ly; k-- {
		right += w
	}

	for {
		x1 := left + rng.Float64()*(right-left)
		if lf := logf(x1); lf > ly && !math.IsNaN(lf) {
			return x1
		}
		if x1 < x0 {
			left = x1
		} else {
			right = x1
		}
		if right-left < 1e-12 {
			return x0
		}
	}
}

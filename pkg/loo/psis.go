package loo

import (
	"math"
	"sort"

	"github.com/BayesianBoi/methods-2-course/pkg/stats"
)

// minTail is the smallest tail for which a generalized Pareto fit is tried.
const minTail = 5

// KThreshold returns the Pareto k̂ above which importance sampling with S
// draws is unreliable: min(1 - 1/log10(S), 0.7).
func KThreshold(S int) float64 {
	return math.Min(1-1/math.Log10(float64(S)), 0.7)
}

// TailLength is the number of largest ratios smoothed for S draws with
// relative efficiency rEff.
func TailLength(S int, rEff float64) int {
	if rEff <= 0 || math.IsNaN(rEff) {
		rEff = 1
	}
	return int(math.Ceil(math.Min(0.2*float64(S), 3*math.Sqrt(float64(S)/rEff))))
}

// PSIS Pareto-smooths one vector of log importance ratios. It returns the
// normalized log weights (logsumexp = 0) and the tail shape estimate k̂,
// which is +Inf when the tail was too short or flat to fit.
func PSIS(logRatios []float64, rEff float64) ([]float64, float64) {
	S := len(logRatios)
	lw := make([]float64, S)
	_, hi := stats.MinMax(logRatios)
	for s, r := range logRatios {
		lw[s] = r - hi
	}

	khat := math.Inf(1)
	M := TailLength(S, rEff)
	if M >= minTail && M < S {
		ord := make([]int, S)
		for i := range ord {
			ord[i] = i
		}
		sort.SliceStable(ord, func(a, b int) bool { return lw[ord[a]] < lw[ord[b]] })
		tailIdx := ord[S-M:]
		tail := make([]float64, M)
		for i, id := range tailIdx {
			tail[i] = lw[id]
		}
		cutoff := lw[ord[S-M-1]]
		if tail[M-1]-tail[0] > math.SmallestNonzeroFloat64 {
			smoothed, k := smoothTail(tail, cutoff)
			khat = k
			for i, id := range tailIdx {
				lw[id] = smoothed[i]
			}
		}
	}

	for s := range lw {
		if lw[s] > 0 {
			lw[s] = 0
		}
	}
	norm := stats.LogSumExp(lw)
	for s := range lw {
		lw[s] -= norm
	}
	return lw, khat
}

// smoothTail replaces sorted tail log weights by the expected order
// statistics of a generalized Pareto fitted above exp(cutoff).
func smoothTail(tail []float64, cutoff float64) ([]float64, float64) {
	expCut := math.Exp(cutoff)
	x := make([]float64, len(tail))
	for i, v := range tail {
		x[i] = math.Exp(v) - expCut
	}
	k, sigma := gpdFit(x)
	if math.IsInf(k, 0) || math.IsNaN(k) {
		return tail, k
	}
	M := float64(len(tail))
	out := make([]float64, len(tail))
	for i := range out {
		p := (float64(i) + 0.5) / M
		out[i] = math.Log(gpdQuantile(p, k, sigma) + expCut)
	}
	return out, k
}

// gpdFit estimates the shape k and scale sigma of a generalized Pareto
// distribution from ascending exceedances x, using the profile posterior
// grid of Zhang and Stephens (2009) and a weakly informative prior that
// pulls k towards 0.5.
func gpdFit(x []float64) (k, sigma float64) {
	n := len(x)
	const prior = 3.0
	m := 30 + int(math.Sqrt(float64(n)))
	xstar := x[int(float64(n)/4+0.5)-1]
	if xstar <= 0 || x[n-1] <= 0 {
		return math.Inf(1), math.NaN()
	}

	theta := make([]float64, m)
	ll := make([]float64, m)
	for j := range theta {
		theta[j] = 1/x[n-1] + (1-math.Sqrt(float64(m)/(float64(j+1)-0.5)))/prior/xstar
		a := -theta[j]
		kj := 0.0
		for _, v := range x {
			kj += math.Log1p(a * v)
		}
		kj /= float64(n)
		ll[j] = float64(n) * (math.Log(a/kj) - kj - 1)
	}
	norm := stats.LogSumExp(ll)
	thetaHat := 0.0
	for j := range theta {
		thetaHat += theta[j] * math.Exp(ll[j]-norm)
	}

	for _, v := range x {
		k += math.Log1p(-thetaHat * v)
	}
	k /= float64(n)
	sigma = -k / thetaHat

	const a = 10.0
	nf := float64(n)
	k = k*nf/(nf+a) + a*0.5/(nf+a)
	return k, sigma
}

func gpdQuantile(p, k, sigma float64) float64 {
	if k == 0 {
		return -sigma * math.Log1p(-p)
	}
	return sigma * math.Expm1(-k*math.Log1p(-p)) / k
}

package mcmc

import (
	"math"

	"github.com/BayesianBoi/methods-2-course/pkg/stats"
)

// SplitRhat computes the potential scale reduction factor after splitting
// every chain in half. Values near 1 indicate the chains agree. Returns NaN
// when the within-chain variance is zero or the chains are too short.
func SplitRhat(chains [][]float64) float64 {
	var halves [][]float64
	for _, c := range chains {
		h := len(c) / 2
		if h < 2 {
			return math.NaN()
		}
		halves = append(halves, c[:h], c[len(c)-h:])
	}
	h := float64(len(halves[0]))

	means := make([]float64, len(halves))
	vars := make([]float64, len(halves))
	for i, c := range halves {
		means[i] = stats.Mean(c)
		vars[i] = stats.Variance(c)
	}
	W := stats.Mean(vars)
	if W == 0 {
		return math.NaN()
	}
	B := h * stats.Variance(means)
	varPlus := (h-1)/h*W + B/h
	return math.Sqrt(varPlus / W)
}

// ESS estimates the effective sample size of equally long chains using
// the multi-chain autocorrelation estimate with Geyer's initial monotone
// sequence truncation.
func ESS(chains [][]float64) float64 {
	m := len(chains)
	if m == 0 {
		return math.NaN()
	}
	n := len(chains[0])
	for _, c := range chains {
		if len(c) != n {
			return math.NaN()
		}
	}
	if n < 4 {
		return math.NaN()
	}

	means := make([]float64, m)
	vars := make([]float64, m)
	for i, c := range chains {
		means[i] = stats.Mean(c)
		vars[i] = stats.Variance(c)
	}
	meanVar := stats.Mean(vars)
	varPlus := meanVar * float64(n-1) / float64(n)
	if m > 1 {
		varPlus += stats.Variance(means)
	}
	if varPlus == 0 {
		return math.NaN()
	}

	acov := func(t int) float64 {
		total := 0.0
		for i, c := range chains {
			s := 0.0
			for k := 0; k+t < n; k++ {
				s += (c[k] - means[i]) * (c[k+t] - means[i])
			}
			total += s / float64(n)
		}
		return total / float64(m)
	}
	rho := func(t int) float64 {
		return 1 - (meanVar-acov(t))/varPlus
	}

	sum := 0.0
	prev := math.Inf(1)
	for t := 0; t+1 < n; t += 2 {
		p := rho(t) + rho(t+1)
		if p < 0 {
			break
		}
		if p > prev {
			p = prev
		}
		prev = p
		sum += p
	}
	total := float64(m * n)
	tau := -1 + 2*sum
	if floor := 1 / math.Log10(total); tau < floor {
		tau = floor
	}
	return total / tau
}

package mcmc

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/BayesianBoi/methods-2-course/pkg/core"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options controls chain layout.
type Options struct {
	Chains int
	Iter   int
	Warmup int
	Thin   int
	Seed   uint64
}

// DefaultOptions mirrors the usual 4 chains × 2000 iterations with half
// used as warmup.
func DefaultOptions() Options {
	return Options{Chains: 4, Iter: 2000, Warmup: 1000, Thin: 1, Seed: 1}
}

func (o Options) Validate() error {
	switch {
	case o.Chains < 1:
		return errors.New("mcmc: need at least one chain")
	case o.Iter < 1:
		return errors.New("mcmc: iter must be positive")
	case o.Warmup < 0 || o.Warmup >= o.Iter:
		return fmt.Errorf("mcmc: warmup %d must be in [0, iter=%d)", o.Warmup, o.Iter)
	case o.Thin < 1:
		return errors.New("mcmc: thin must be positive")
	}
	return nil
}

// DrawsPerChain returns the number of retained draws in each chain.
func (o Options) DrawsPerChain() int {
	return (o.Iter - o.Warmup + o.Thin - 1) / o.Thin
}

// Samples holds retained draws, one matrix per chain, rows are draws and
// columns are the coefficients followed by sigma.
type Samples struct {
	Chains []*core.Matrix
}

// Merge stacks all chains into one draws matrix, chain by chain.
func (s *Samples) Merge() *core.Matrix {
	m, _ := core.VStack(s.Chains...)
	return m
}

// Param returns the draws of column j split by chain.
func (s *Samples) Param(j int) [][]float64 {
	out := make([][]float64, len(s.Chains))
	for c, m := range s.Chains {
		out[c] = m.Col(j)
	}
	return out
}

// Run samples the posterior of lm.
func Run(ctx context.Context, lm *LinearModel, opts Options, logger *zap.Logger) (*Samples, error) {
	if err := lm.check(); err != nil {
		return nil, err
	}
	return run(ctx, lm, opts, logger, "posterior", func(rng *rand.Rand) kernel { return newGibbs(lm, rng) })
}

// RunPrior draws from the priors of lm only. Every prior must be proper.
func RunPrior(ctx context.Context, lm *LinearModel, opts Options, logger *zap.Logger) (*Samples, error) {
	if err := lm.check(); err != nil {
		return nil, err
	}
	for _, sp := range lm.Coef {
		if !sp.Proper() {
			return nil, errors.New("mcmc: cannot draw from an improper prior")
		}
	}
	if !lm.Aux.Proper() {
		return nil, errors.New("mcmc: cannot draw from an improper prior")
	}
	return run(ctx, lm, opts, logger, "prior", func(rng *rand.Rand) kernel { return &priorKernel{lm: lm, rng: rng} })
}

// run executes the chains concurrently. Chain c uses the PCG stream
// (Seed, c+1), so output does not depend on scheduling.
func run(ctx context.Context, lm *LinearModel, opts Options, logger *zap.Logger, mode string, newKernel func(*rand.Rand) kernel) (*Samples, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	width := lm.Width()
	keep := opts.DrawsPerChain()
	out := &Samples{Chains: make([]*core.Matrix, opts.Chains)}

	g, gctx := errgroup.WithContext(ctx)
	for c := 0; c < opts.Chains; c++ {
		g.Go(func() error {
			start := time.Now()
			rng := rand.New(rand.NewPCG(opts.Seed, uint64(c)+1))
			k := newKernel(rng)
			draws := core.NewMatrix(keep, width)
			row := make([]float64, width)
			r := 0
			for it := 0; it < opts.Iter; it++ {
				if it%100 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				if err := k.step(row); err != nil {
					return fmt.Errorf("chain %d iteration %d: %w", c+1, it, err)
				}
				if it >= opts.Warmup && (it-opts.Warmup)%opts.Thin == 0 {
					copy(draws.Data[r*width:(r+1)*width], row)
					r++
				}
			}
			out.Chains[c] = draws
			logger.Debug("chain finished",
				zap.String("mode", mode),
				zap.Int("chain", c+1),
				zap.Int("draws", keep),
				zap.Duration("elapsed", time.Since(start)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

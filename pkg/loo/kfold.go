package loo

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/BayesianBoi/methods-2-course/pkg/core"
	"github.com/BayesianBoi/methods-2-course/pkg/data"
	"github.com/BayesianBoi/methods-2-course/pkg/loader"
	"github.com/BayesianBoi/methods-2-course/pkg/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HeldOut scores rows that were not used for fitting.
type HeldOut interface {
	LogLikNew(frame *data.Frame) (*core.Matrix, error)
}

// Refit fits the model to a training subset.
type Refit func(ctx context.Context, train *data.Frame) (HeldOut, error)

// KFold estimates elpd by refitting k times, each time leaving out one fold
// of frame. Folds are assigned by a permutation drawn from seed. Refits run
// concurrently, bounded by GOMAXPROCS.
func KFold(ctx context.Context, name string, frame *data.Frame, k int, seed uint64, refit Refit, logger *zap.Logger) (*Estimate, error) {
	n := frame.NRows()
	if k < 2 || k > n {
		return nil, fmt.Errorf("loo: k=%d folds for %d rows", k, n)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	folds := loader.KFoldSplit(n, k, seed)
	est := &Estimate{Name: name, Method: MethodKFold, NObs: n, Pointwise: make([]float64, n)}

	draws := make([]int, k)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for f, test := range folds {
		g.Go(func() error {
			start := time.Now()
			m, err := refit(gctx, frame.Rows(loader.Complement(n, test)))
			if err != nil {
				return fmt.Errorf("fold %d: %w", f+1, err)
			}
			ll, err := m.LogLikNew(frame.Rows(test))
			if err != nil {
				return fmt.Errorf("fold %d: %w", f+1, err)
			}
			for j, i := range test {
				est.Pointwise[i] = stats.LogMeanExp(ll.Col(j))
			}
			draws[f] = ll.R
			logger.Debug("fold finished",
				zap.String("model", name),
				zap.Int("fold", f+1),
				zap.Int("held_out", len(test)),
				zap.Duration("elapsed", time.Since(start)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	est.NDraws = draws[0]
	est.finish(nil)
	return est, nil
}

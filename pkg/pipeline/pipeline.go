// Package pipeline runs a prior-versus-posterior experiment end to end:
// load data, fit each model with and without the likelihood, simulate
// predictive draws for new data, summarize, and compare models by
// leave-one-out cross-validation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BayesianBoi/methods-2-course/pkg/core"
	"github.com/BayesianBoi/methods-2-course/pkg/data"
	"github.com/BayesianBoi/methods-2-course/pkg/loo"
	"github.com/BayesianBoi/methods-2-course/pkg/mcmc"
	"github.com/BayesianBoi/methods-2-course/pkg/model"
	"github.com/BayesianBoi/methods-2-course/pkg/prior"
	"github.com/BayesianBoi/methods-2-course/pkg/summary"
	"go.uber.org/zap"
)

// ModelSpec is one candidate model.
type ModelSpec struct {
	Name    string
	Formula string
	Priors  prior.Set
}

// Experiment is the input of a run. Frame, when set, is used instead of
// loading DataPath.
type Experiment struct {
	DataPath string
	Frame    *data.Frame
	NewData  *data.Frame
	Models   []ModelSpec
	Sampler  mcmc.Options
	Prob     float64
	LOO      bool
	WAIC     bool
	// KFold > 1 adds K-fold cross-validation with that many folds.
	KFold int
}

// Stage is one step of a run.
type Stage interface {
	Name() string
	Run(ctx context.Context, st *State) error
}

// State is passed from stage to stage.
type State struct {
	Exp    Experiment
	Frame  *data.Frame
	Report *Report
	logger *zap.Logger
}

// Pipeline runs stages in order and stops at the first error.
type Pipeline struct {
	stages []Stage
	logger *zap.Logger
}

// NewPipeline chains stages. A nil logger discards output.
func NewPipeline(logger *zap.Logger, stages ...Stage) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{stages: stages, logger: logger}
}

// Default returns the standard load, fit, predict, summarize, compare run.
func Default(logger *zap.Logger) *Pipeline {
	return NewPipeline(logger, LoadStage{}, FitStage{}, PredictStage{}, SummarizeStage{}, CompareStage{})
}

// Run executes the stages against exp.
func (p *Pipeline) Run(ctx context.Context, exp Experiment) (*Report, error) {
	if len(exp.Models) == 0 {
		return nil, errors.New("pipeline: no models")
	}
	if exp.Prob == 0 {
		exp.Prob = summary.DefaultProb
	}
	st := &State{Exp: exp, Report: &Report{Prob: exp.Prob}, logger: p.logger}
	for _, s := range p.stages {
		start := time.Now()
		if err := s.Run(ctx, st); err != nil {
			return nil, fmt.Errorf("pipeline: %s: %w", s.Name(), err)
		}
		p.logger.Info("stage finished", zap.String("stage", s.Name()), zap.Duration("elapsed", time.Since(start)))
	}
	return st.Report, nil
}

// LoadStage reads the data and checks the new-data table against it.
type LoadStage struct{}

func (LoadStage) Name() string { return "load" }

func (LoadStage) Run(_ context.Context, st *State) error {
	st.Frame = st.Exp.Frame
	if st.Frame == nil {
		f, err := data.LoadCSV(st.Exp.DataPath)
		if err != nil {
			return err
		}
		st.Frame = f
	}
	st.Report.NObs = st.Frame.NRows()
	for _, m := range st.Exp.Models {
		mr := &ModelReport{Name: m.Name, Formula: m.Formula}
		st.Report.Models = append(st.Report.Models, mr)
	}
	return nil
}

// FitStage fits every model twice: prior only and with the data.
type FitStage struct{}

func (FitStage) Name() string { return "fit" }

func (FitStage) Run(ctx context.Context, st *State) error {
	for i, spec := range st.Exp.Models {
		mr := st.Report.Models[i]
		for _, priorOnly := range []bool{true, false} {
			m := model.NewBayesLinearRegression(spec.Priors,
				model.WithSampler(st.Exp.Sampler),
				model.WithPriorOnly(priorOnly),
				model.WithLogger(st.logger.With(zap.String("model", spec.Name))))
			fit, err := m.Fit(ctx, spec.Formula, st.Frame)
			if err != nil {
				return fmt.Errorf("%s: %w", spec.Name, err)
			}
			if priorOnly {
				mr.Prior = fit
			} else {
				mr.Posterior = fit
			}
		}
	}
	return nil
}

// PredictStage simulates prior and posterior predictive draws for the new
// data. It is a no-op without new data.
type PredictStage struct{}

func (PredictStage) Name() string { return "predict" }

func (PredictStage) Run(_ context.Context, st *State) error {
	nd := st.Exp.NewData
	if nd == nil {
		return nil
	}
	for _, mr := range st.Report.Models {
		schema, err := SchemaOf(st.Frame, mr.Posterior.Design.Formula.Predictors())
		if err != nil {
			return err
		}
		if err := schema.Check(nd); err != nil {
			return fmt.Errorf("%s: %w", mr.Name, err)
		}
		mr.RowLabels = schema.RowLabels(nd)
		if mr.PriorDraws, err = mr.Prior.PosteriorPredict(nd); err != nil {
			return fmt.Errorf("%s: %w", mr.Name, err)
		}
		if mr.PosteriorDraws, err = mr.Posterior.PosteriorPredict(nd); err != nil {
			return fmt.Errorf("%s: %w", mr.Name, err)
		}
	}
	return nil
}

// SummarizeStage builds the parameter and predictive tables.
type SummarizeStage struct{}

func (SummarizeStage) Name() string { return "summarize" }

func (SummarizeStage) Run(_ context.Context, st *State) error {
	prob := st.Report.Prob
	for _, mr := range st.Report.Models {
		var err error
		if mr.PriorParams, err = summary.Params(mr.Prior, prob); err != nil {
			return err
		}
		if mr.PosteriorParams, err = summary.Params(mr.Posterior, prob); err != nil {
			return err
		}
		if mr.R2, err = summary.BayesR2(mr.Posterior, prob); err != nil {
			return err
		}
		point, err := mr.Posterior.PointPredict()
		if err != nil {
			return err
		}
		mr.RMSE = model.RMSE(mr.Posterior.Y, point)
		if mr.PriorDraws != nil {
			title := fmt.Sprintf("%s prior predictive", mr.Name)
			if mr.PriorPredictive, err = summary.Predictive(title, mr.PriorDraws, mr.RowLabels, prob); err != nil {
				return err
			}
		}
		if mr.PosteriorDraws != nil {
			title := fmt.Sprintf("%s posterior predictive", mr.Name)
			if mr.PosteriorPredictive, err = summary.Predictive(title, mr.PosteriorDraws, mr.RowLabels, prob); err != nil {
				return err
			}
		}
	}
	return nil
}

// CompareStage estimates elpd for every posterior fit and ranks the models.
type CompareStage struct{}

func (CompareStage) Name() string { return "compare" }

func (CompareStage) Run(ctx context.Context, st *State) error {
	if !st.Exp.LOO && !st.Exp.WAIC && st.Exp.KFold < 2 {
		return nil
	}
	var loos, waics, kfolds []*loo.Estimate
	for i, mr := range st.Report.Models {
		if st.Exp.LOO || st.Exp.WAIC {
			ll, err := mr.Posterior.LogLik()
			if err != nil {
				return err
			}
			if st.Exp.LOO {
				if mr.LOO, err = loo.LOO(mr.Name, ll, mr.Posterior.Chains); err != nil {
					return fmt.Errorf("%s: %w", mr.Name, err)
				}
				if bad := mr.LOO.BadK(); len(bad) > 0 {
					st.logger.Warn("high Pareto k",
						zap.String("model", mr.Name),
						zap.Int("observations", len(bad)),
						zap.Float64("threshold", mr.LOO.KThreshold))
				}
				loos = append(loos, mr.LOO)
			}
			if st.Exp.WAIC {
				if mr.WAIC, err = loo.WAIC(mr.Name, ll); err != nil {
					return fmt.Errorf("%s: %w", mr.Name, err)
				}
				waics = append(waics, mr.WAIC)
			}
		}
		if st.Exp.KFold >= 2 {
			spec := st.Exp.Models[i]
			refit := func(ctx context.Context, train *data.Frame) (loo.HeldOut, error) {
				m := model.NewBayesLinearRegression(spec.Priors, model.WithSampler(st.Exp.Sampler))
				return m.Fit(ctx, spec.Formula, train)
			}
			// folds over the complete cases so every held-out row can be scored
			complete, _, err := st.Frame.DropIncomplete(mr.Posterior.Design.Formula.Variables())
			if err != nil {
				return err
			}
			if mr.KFold, err = loo.KFold(ctx, mr.Name, complete, st.Exp.KFold, st.Exp.Sampler.Seed, refit, st.logger); err != nil {
				return fmt.Errorf("%s: %w", mr.Name, err)
			}
			kfolds = append(kfolds, mr.KFold)
		}
	}
	st.Report.Comparison = compare(st.logger, loo.MethodLOO, loos)
	st.Report.WAICComparison = compare(st.logger, loo.MethodWAIC, waics)
	st.Report.KFoldComparison = compare(st.logger, loo.MethodKFold, kfolds)
	return nil
}

// compare ranks estimates. Models fitted to different complete cases cannot
// be ranked; that is logged and the comparison left out of the report.
func compare(logger *zap.Logger, method string, estimates []*loo.Estimate) *loo.Comparison {
	if len(estimates) < 2 {
		return nil
	}
	c, err := loo.Compare(estimates...)
	if err != nil {
		logger.Warn("models not compared", zap.String("method", method), zap.Error(err))
		return nil
	}
	return c
}

// ModelReport collects everything computed for one model.
type ModelReport struct {
	Name    string
	Formula string

	Prior     *model.FittedModel
	Posterior *model.FittedModel

	RowLabels      []string
	PriorDraws     *core.Matrix
	PosteriorDraws *core.Matrix

	PriorParams         *summary.Table
	PosteriorParams     *summary.Table
	PriorPredictive     *summary.Table
	PosteriorPredictive *summary.Table
	R2                  summary.Row
	// RMSE of the posterior mean fit on the training rows.
	RMSE float64

	LOO   *loo.Estimate
	WAIC  *loo.Estimate
	KFold *loo.Estimate
}

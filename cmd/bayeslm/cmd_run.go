package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/BayesianBoi/methods-2-course/pkg/model"
	"github.com/BayesianBoi/methods-2-course/pkg/pipeline"
	"github.com/BayesianBoi/methods-2-course/pkg/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured prior versus posterior experiment",
	Long: `For every configured model: fit prior-only and posterior, simulate
predictive draws for the newdata rows, summarize both, then compare the
models by LOO. Plots and fits are written to output.dir when enabled.`,
	RunE: runExperiment,
}

func init() {
	runCmd.Flags().Bool("plots", false, "Write density and interval plots")
	runCmd.Flags().Bool("save-fits", false, "Save every fit")
	runCmd.Flags().String("out-dir", "", "Output directory (overrides output.dir)")
	addSamplerFlags(runCmd)
}

func runExperiment(cmd *cobra.Command, args []string) error {
	applySamplerFlags(cmd)
	f := cmd.Flags()
	if f.Changed("plots") {
		cfg.Output.Plots, _ = f.GetBool("plots")
	}
	if f.Changed("save-fits") {
		cfg.Output.SaveFits, _ = f.GetBool("save-fits")
	}
	if f.Changed("out-dir") {
		cfg.Output.Dir, _ = f.GetString("out-dir")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	exp, err := cfg.Experiment()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	rep, err := pipeline.Default(logger).Run(ctx, exp)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), rep.Render())

	if cfg.Output.SaveFits {
		for _, m := range rep.Models {
			for _, fit := range []*model.FittedModel{m.Prior, m.Posterior} {
				path := filepath.Join(cfg.Output.Dir, fmt.Sprintf("%s_%s.fit", m.Name, fit.Kind()))
				if err := model.SaveFit(path, fit); err != nil {
					return err
				}
			}
		}
	}
	if cfg.Output.Plots {
		if err := writePlots(rep); err != nil {
			return err
		}
	}
	return nil
}

func writePlots(rep *pipeline.Report) error {
	for _, m := range rep.Models {
		path := filepath.Join(cfg.Output.Dir, m.Name+"_intervals.png")
		if err := viz.Intervals(path, m.Posterior, rep.Prob); err != nil {
			return fmt.Errorf("plot %s: %w", path, err)
		}
		if m.PriorDraws == nil {
			continue
		}
		for i, label := range m.RowLabels {
			path := filepath.Join(cfg.Output.Dir, fmt.Sprintf("%s_predictive_%d.png", m.Name, i+1))
			title := fmt.Sprintf("%s: %s", m.Name, label)
			if err := viz.Density(path, title, m.PriorDraws.Col(i), m.PosteriorDraws.Col(i)); err != nil {
				return fmt.Errorf("plot %s: %w", path, err)
			}
		}
	}
	logger.Info("plots written", zap.String("dir", cfg.Output.Dir))
	return nil
}

// postFitStage fits only the posterior of each model, for commands that
// do not need the prior predictive side.
type postFitStage struct{}

func (postFitStage) Name() string { return "fit" }

func (postFitStage) Run(ctx context.Context, st *pipeline.State) error {
	for i, spec := range st.Exp.Models {
		m := model.NewBayesLinearRegression(spec.Priors,
			model.WithSampler(st.Exp.Sampler),
			model.WithLogger(logger.With(zap.String("model", spec.Name))))
		fit, err := m.Fit(ctx, spec.Formula, st.Frame)
		if err != nil {
			return fmt.Errorf("%s: %w", spec.Name, err)
		}
		st.Report.Models[i].Posterior = fit
	}
	return nil
}

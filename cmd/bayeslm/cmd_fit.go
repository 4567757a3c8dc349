package main

import (
	"fmt"

	"github.com/BayesianBoi/methods-2-course/internal/config"
	"github.com/BayesianBoi/methods-2-course/pkg/data"
	"github.com/BayesianBoi/methods-2-course/pkg/model"
	"github.com/BayesianBoi/methods-2-course/pkg/prior"
	"github.com/BayesianBoi/methods-2-course/pkg/summary"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fitModel     string
	fitFormula   string
	fitPriorOnly bool
	fitCoefScale float64
	fitOut       string
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit one model and print its parameter summary",
	Long: `Fits a configured model (--model) or an ad hoc formula (--formula).
With --prior-only the likelihood is left out and the draws come from the
priors; the data only sets autoscaled prior scales.

Example:
  bayeslm fit --formula "kid_score ~ mom_iq" --coef-scale 0.1 --out iq.fit`,
	RunE: runFit,
}

func init() {
	fitCmd.Flags().StringVarP(&fitModel, "model", "m", "", "Configured model name")
	fitCmd.Flags().StringVarP(&fitFormula, "formula", "f", "", "Model formula, e.g. \"kid_score ~ mom_hs\"")
	fitCmd.Flags().BoolVar(&fitPriorOnly, "prior-only", false, "Sample from the priors only")
	fitCmd.Flags().Float64Var(&fitCoefScale, "coef-scale", 0, "Scale of a normal(0, scale) coefficient prior (0 keeps the configured prior)")
	fitCmd.Flags().StringVarP(&fitOut, "out", "o", "", "Write the fit to this file")
	addSamplerFlags(fitCmd)
}

// selectModel resolves --model and --formula against the config.
func selectModel(name, formula string) (config.ModelConfig, error) {
	if name != "" {
		for _, m := range cfg.Models {
			if m.Name == name {
				if formula != "" {
					m.Formula = formula
				}
				return m, nil
			}
		}
		return config.ModelConfig{}, fmt.Errorf("no model named %q in config", name)
	}
	if formula == "" {
		return config.ModelConfig{}, fmt.Errorf("need --model or --formula")
	}
	return config.ModelConfig{Name: "model", Formula: formula}, nil
}

func loadFrame() (*data.Frame, error) {
	return data.LoadCSV(cfg.Data.Path, data.WithComma(cfg.Data.Comma()))
}

func runFit(cmd *cobra.Command, args []string) error {
	applySamplerFlags(cmd)
	mc, err := selectModel(fitModel, fitFormula)
	if err != nil {
		return err
	}
	priors := mc.PriorSet()
	if fitCoefScale > 0 {
		priors.Coefficients = prior.NewNormal(0, fitCoefScale)
		priors.Coefficients.Autoscale = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	frame, err := loadFrame()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	m := model.NewBayesLinearRegression(priors,
		model.WithSampler(cfg.Sampler.Options()),
		model.WithPriorOnly(fitPriorOnly),
		model.WithLogger(logger.With(zap.String("model", mc.Name))))
	fit, err := m.Fit(ctx, mc.Formula, frame)
	if err != nil {
		return err
	}

	tab, err := summary.Params(fit, cfg.Summary.Prob)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tab.Render())
	if !fit.PriorOnly {
		r2, err := summary.BayesR2(fit, cfg.Summary.Prob)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Bayes R2: median %.3f [%.3f, %.3f]\n", r2.Median, r2.Lo, r2.Hi)
	}

	if fitOut != "" {
		if err := model.SaveFit(fitOut, fit); err != nil {
			return err
		}
		logger.Info("fit saved", zap.String("path", fitOut), zap.String("id", fit.ID.String()))
	}
	return nil
}

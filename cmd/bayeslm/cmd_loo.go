package main

import (
	"fmt"

	"github.com/BayesianBoi/methods-2-course/internal/config"
	"github.com/BayesianBoi/methods-2-course/pkg/loo"
	"github.com/BayesianBoi/methods-2-course/pkg/pipeline"
	"github.com/BayesianBoi/methods-2-course/pkg/summary"
	"github.com/spf13/cobra"
)

var (
	looModels []string
	looKFold  int
	looWAIC   bool
)

var looCmd = &cobra.Command{
	Use:   "loo",
	Short: "Compare configured models by leave-one-out cross-validation",
	Long: `Fits the posterior of each configured model (or only those named with
--model) and ranks them by PSIS-LOO elpd. With --kfold K the models are also
refitted K times for K-fold cross-validation. --waic adds WAIC estimates.`,
	RunE: runLOO,
}

func init() {
	looCmd.Flags().StringSliceVarP(&looModels, "model", "m", nil, "Models to compare (default: all)")
	looCmd.Flags().IntVar(&looKFold, "kfold", 0, "Also run K-fold cross-validation with K folds")
	looCmd.Flags().BoolVar(&looWAIC, "waic", false, "Also compute WAIC")
	addSamplerFlags(looCmd)
}

func runLOO(cmd *cobra.Command, args []string) error {
	applySamplerFlags(cmd)
	if len(looModels) > 0 {
		var keep []config.ModelConfig
		for _, name := range looModels {
			mc, err := selectModel(name, "")
			if err != nil {
				return err
			}
			keep = append(keep, mc)
		}
		cfg.Models = keep
	}
	cfg.Compare.LOO = true
	if cmd.Flags().Changed("waic") {
		cfg.Compare.WAIC = looWAIC
	}
	if cmd.Flags().Changed("kfold") {
		cfg.Compare.KFold = looKFold
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

	p := pipeline.NewPipeline(logger, pipeline.LoadStage{}, postFitStage{}, pipeline.CompareStage{})
	rep, err := p.Run(ctx, exp)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, m := range rep.Models {
		for _, e := range []*loo.Estimate{m.LOO, m.WAIC, m.KFold} {
			if e != nil {
				fmt.Fprintln(out, summary.RenderEstimate(e))
			}
		}
		fmt.Fprintln(out)
	}
	for _, c := range []*loo.Comparison{rep.Comparison, rep.WAICComparison, rep.KFoldComparison} {
		if c != nil {
			fmt.Fprintln(out, summary.RenderComparison(c))
		}
	}
	return nil
}

package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/BayesianBoi/methods-2-course/pkg/core"
	"github.com/BayesianBoi/methods-2-course/pkg/data"
	"github.com/BayesianBoi/methods-2-course/pkg/model"
	"github.com/BayesianBoi/methods-2-course/pkg/pipeline"
	"github.com/BayesianBoi/methods-2-course/pkg/summary"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	predictFit     string
	predictNewData string
	predictSeed    uint64
	predictDraws   int
	predictLinpred bool
	predictOut     string
	predictProb    float64
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Simulate predictive draws from a saved fit",
	Long: `Loads a fit written by "bayeslm fit --out" and simulates outcomes for
every row of a new-data table (--newdata, or the config's newdata). A
prior-only fit gives prior predictive draws.`,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVar(&predictFit, "fit", "", "Saved fit (required)")
	predictCmd.Flags().StringVar(&predictNewData, "newdata", "", "New-data table")
	predictCmd.Flags().Uint64Var(&predictSeed, "seed", 0, "Noise seed (default: the fit's seed)")
	predictCmd.Flags().IntVar(&predictDraws, "draws", 0, "Use only the first n draws")
	predictCmd.Flags().BoolVar(&predictLinpred, "linpred", false, "Expected values instead of simulated outcomes")
	predictCmd.Flags().StringVarP(&predictOut, "out", "o", "", "Write the draws matrix as CSV")
	predictCmd.Flags().Float64Var(&predictProb, "prob", summary.DefaultProb, "Central interval probability")
	_ = predictCmd.MarkFlagRequired("fit")
}

func runPredict(cmd *cobra.Command, args []string) error {
	fit, err := model.LoadFit(predictFit)
	if err != nil {
		return err
	}
	var nd *data.Frame
	if predictNewData != "" {
		nd, err = data.LoadCSV(predictNewData)
	} else {
		nd, err = data.FromRecords(cfg.NewData)
	}
	if err != nil {
		return fmt.Errorf("newdata: %w", err)
	}

	opts := []model.PredictOption{model.WithDraws(predictDraws)}
	if cmd.Flags().Changed("seed") {
		opts = append(opts, model.WithPredictSeed(predictSeed))
	}
	var draws *core.Matrix
	kind := fit.Kind() + " predictive"
	if predictLinpred {
		draws, err = fit.PosteriorLinpred(nd, opts...)
		kind = fit.Kind() + " linear predictor"
	} else {
		draws, err = fit.PosteriorPredict(nd, opts...)
	}
	if err != nil {
		return err
	}

	schema := pipeline.Schema{FeatureNames: fit.Design.Formula.Predictors()}
	labels := schema.RowLabels(nd)
	tab, err := summary.Predictive(fmt.Sprintf("%s: %s", kind, fit.Formula), draws, labels, predictProb)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tab.Render())

	if predictOut != "" {
		if err := writeDraws(predictOut, draws, labels); err != nil {
			return err
		}
		logger.Info("draws written", zap.String("path", predictOut), zap.Int("draws", draws.R), zap.Int("rows", draws.C))
	}
	return nil
}

// writeDraws writes one CSV row per draw with the new-data rows as columns.
func writeDraws(path string, m *core.Matrix, header []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	rec := make([]string, m.C)
	for s := 0; s < m.R; s++ {
		for i, v := range m.Row(s) {
			rec[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

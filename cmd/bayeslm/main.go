package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BayesianBoi/methods-2-course/internal/config"
	"github.com/BayesianBoi/methods-2-course/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bayeslm",
	Short: "Bayesian linear regression with prior and posterior predictive checks",
	Long: `bayeslm fits Gaussian linear regression models by MCMC, once with the
priors alone and once with the data, and compares what each implies.

  bayeslm fit --formula "kid_score ~ mom_hs + mom_iq"
  bayeslm run --config bayeslm.yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "bayeslm.yaml", "Config file")

	rootCmd.AddCommand(fitCmd, predictCmd, looCmd, runCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// applySamplerFlags copies explicitly set sampler flags over the config.
func applySamplerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("chains") {
		cfg.Sampler.Chains, _ = f.GetInt("chains")
	}
	if f.Changed("iter") {
		cfg.Sampler.Iter, _ = f.GetInt("iter")
	}
	if f.Changed("warmup") {
		cfg.Sampler.Warmup, _ = f.GetInt("warmup")
	}
	if f.Changed("thin") {
		cfg.Sampler.Thin, _ = f.GetInt("thin")
	}
	if f.Changed("seed") {
		cfg.Sampler.Seed, _ = f.GetUint64("seed")
	}
	if f.Changed("data") {
		cfg.Data.Path, _ = f.GetString("data")
	}
	if f.Changed("prob") {
		cfg.Summary.Prob, _ = f.GetFloat64("prob")
	}
}

func addSamplerFlags(cmd *cobra.Command) {
	cmd.Flags().Int("chains", 4, "Number of chains")
	cmd.Flags().Int("iter", 2000, "Iterations per chain, warmup included")
	cmd.Flags().Int("warmup", 1000, "Warmup iterations per chain")
	cmd.Flags().Int("thin", 1, "Keep every n-th draw")
	cmd.Flags().Uint64("seed", 1, "Random seed")
	cmd.Flags().String("data", "", "Input table (overrides data.path)")
	cmd.Flags().Float64("prob", 0.9, "Central interval probability")
}

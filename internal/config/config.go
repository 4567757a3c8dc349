// Package config loads the YAML configuration of a bayeslm run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BayesianBoi/methods-2-course/pkg/data"
	"github.com/BayesianBoi/methods-2-course/pkg/mcmc"
	"github.com/BayesianBoi/methods-2-course/pkg/pipeline"
	"github.com/BayesianBoi/methods-2-course/pkg/prior"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all bayeslm configuration.
type Config struct {
	Data    DataConfig       `yaml:"data"`
	Sampler SamplerConfig    `yaml:"sampler"`
	Models  []ModelConfig    `yaml:"models" validate:"required,min=1,dive"`
	NewData []map[string]any `yaml:"newdata,omitempty"`
	Summary SummaryConfig    `yaml:"summary"`
	Compare CompareConfig    `yaml:"compare"`
	Output  OutputConfig     `yaml:"output"`
	Logging LoggingConfig    `yaml:"logging"`
}

// DataConfig points at the input table.
type DataConfig struct {
	Path      string `yaml:"path" validate:"required"`
	Delimiter string `yaml:"delimiter,omitempty" validate:"omitempty,len=1"`
}

// SamplerConfig configures the MCMC chains.
type SamplerConfig struct {
	Chains int    `yaml:"chains" validate:"gte=1,lte=64"`
	Iter   int    `yaml:"iter" validate:"gte=2"`
	Warmup int    `yaml:"warmup" validate:"gte=0,ltfield=Iter"`
	Thin   int    `yaml:"thin" validate:"gte=1"`
	Seed   uint64 `yaml:"seed"`
}

// ModelConfig is one candidate model. Priors left out fall back to the
// defaults of prior.Default.
type ModelConfig struct {
	Name    string     `yaml:"name" validate:"required"`
	Formula string     `yaml:"formula" validate:"required"`
	Priors  *prior.Set `yaml:"priors,omitempty" validate:"-"`
}

// SummaryConfig configures the printed summaries.
type SummaryConfig struct {
	Prob float64 `yaml:"prob" validate:"gt=0,lt=1"`
}

// CompareConfig selects the cross-validation estimates.
type CompareConfig struct {
	LOO   bool `yaml:"loo"`
	WAIC  bool `yaml:"waic"`
	KFold int  `yaml:"kfold" validate:"gte=0"`
}

// OutputConfig says what to write besides console output.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Plots    bool   `yaml:"plots"`
	SaveFits bool   `yaml:"save_fits"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// DefaultConfig returns the kidiq experiment with weakly informative priors.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{Path: "data/kidiq.csv"},
		Sampler: SamplerConfig{
			Chains: 4,
			Iter:   2000,
			Warmup: 1000,
			Thin:   1,
			Seed:   1,
		},
		Models: []ModelConfig{
			{Name: "hs", Formula: "kid_score ~ mom_hs"},
			{Name: "iq", Formula: "kid_score ~ mom_iq"},
			{Name: "hs_iq", Formula: "kid_score ~ mom_hs + mom_iq"},
			{Name: "full", Formula: "kid_score ~ mom_hs + mom_iq + factor(mom_work) + mom_age"},
		},
		NewData: []map[string]any{
			{"mom_hs": 0, "mom_iq": 100, "mom_work": 1, "mom_age": 23},
			{"mom_hs": 1, "mom_iq": 100, "mom_work": 1, "mom_age": 23},
		},
		Summary: SummaryConfig{Prob: 0.9},
		Compare: CompareConfig{LOO: true},
		Output:  OutputConfig{Dir: "out"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// models and newdata replace the defaults rather than merge with them
	cfg.Models, cfg.NewData = nil, nil
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BAYESLM_DATA"); v != "" {
		c.Data.Path = v
	}
	if v := os.Getenv("BAYESLM_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Sampler.Seed = seed
		}
	}
	if v := os.Getenv("BAYESLM_CHAINS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sampler.Chains = n
		}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges, unique model names and every prior set.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := map[string]bool{}
	for _, m := range c.Models {
		if seen[m.Name] {
			return fmt.Errorf("invalid config: duplicate model name %q", m.Name)
		}
		seen[m.Name] = true
		if err := m.PriorSet().Validate(); err != nil {
			return fmt.Errorf("invalid config: model %s: %w", m.Name, err)
		}
	}
	return nil
}

// PriorSet returns the configured priors with unset parts filled from
// prior.Default.
func (m ModelConfig) PriorSet() prior.Set {
	def := prior.Default()
	if m.Priors == nil {
		return def
	}
	ps := *m.Priors
	if ps.Coefficients.Family == "" {
		ps.Coefficients = def.Coefficients
	}
	if ps.Intercept.Family == "" {
		ps.Intercept = def.Intercept
	}
	if ps.Aux.Family == "" {
		ps.Aux = def.Aux
	}
	return ps
}

// Options returns the sampler settings.
func (s SamplerConfig) Options() mcmc.Options {
	return mcmc.Options{Chains: s.Chains, Iter: s.Iter, Warmup: s.Warmup, Thin: s.Thin, Seed: s.Seed}
}

// Comma returns the field delimiter, ',' by default.
func (d DataConfig) Comma() rune {
	if d.Delimiter == "" {
		return ','
	}
	return []rune(d.Delimiter)[0]
}

// Experiment loads the data and new-data table and assembles a pipeline
// experiment.
func (c *Config) Experiment() (pipeline.Experiment, error) {
	frame, err := data.LoadCSV(c.Data.Path, data.WithComma(c.Data.Comma()))
	if err != nil {
		return pipeline.Experiment{}, err
	}
	exp := pipeline.Experiment{
		DataPath: c.Data.Path,
		Frame:    frame,
		Sampler:  c.Sampler.Options(),
		Prob:     c.Summary.Prob,
		LOO:      c.Compare.LOO,
		WAIC:     c.Compare.WAIC,
		KFold:    c.Compare.KFold,
	}
	if len(c.NewData) > 0 {
		if exp.NewData, err = data.FromRecords(c.NewData); err != nil {
			return pipeline.Experiment{}, fmt.Errorf("newdata: %w", err)
		}
	}
	for _, m := range c.Models {
		exp.Models = append(exp.Models, pipeline.ModelSpec{Name: m.Name, Formula: m.Formula, Priors: m.PriorSet()})
	}
	return exp, nil
}

// Package config loads pricecast settings from a YAML file and PRICECAST_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/sartorproj/pricecast/arimax"
	"github.com/sartorproj/pricecast/changepoint"
	"github.com/sartorproj/pricecast/forecast"
	"github.com/sartorproj/pricecast/smooth"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g.
// PRICECAST_PIPELINE_WINDOW or PRICECAST_DATA_POSTGRES_DSN.
const EnvPrefix = "PRICECAST"

// Data sources.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config represents the complete application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Data     DataConfig     `yaml:"data"`
	Server   ServerConfig   `yaml:"server"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
	// Output is stdout, stderr or a file path.
	Output string `yaml:"output" validate:"required"`
}

// DataConfig selects where prices are read from.
type DataConfig struct {
	Source      string `yaml:"source" validate:"oneof=csv postgres"`
	CSVDir      string `yaml:"csv_dir" split_words:"true" validate:"required_if=Source csv"`
	PostgresDSN string `yaml:"postgres_dsn" split_words:"true" validate:"required_if=Source postgres"`
	Table       string `yaml:"table" validate:"required"`
	DaysBack    int    `yaml:"days_back" split_words:"true" validate:"gte=2"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true" validate:"gt=0"`
	MetricsPath     string        `yaml:"metrics_path" split_words:"true" validate:"startswith=/"`
}

// PipelineConfig mirrors forecast.Config with names instead of enums.
type PipelineConfig struct {
	// Smoother is empty for no smoothing.
	Smoother     string            `yaml:"smoother" validate:"omitempty,oneof=lowess exponential sma"`
	Window       int               `yaml:"window" validate:"gte=1"`
	CI           float64           `yaml:"ci" validate:"gt=0,lt=100"`
	Signif       float64           `yaml:"signif" validate:"gt=0,lt=1"`
	Strict       bool              `yaml:"strict"`
	Alpha        float64           `yaml:"alpha" validate:"gt=0,lt=1"`
	Search       SearchConfig      `yaml:"search"`
	Changepoints ChangepointConfig `yaml:"changepoints"`
}

// SearchConfig bounds the ARIMAX order grid.
type SearchConfig struct {
	MinObs      int `yaml:"min_obs" split_words:"true" validate:"gte=1"`
	MaxP        int `yaml:"max_p" split_words:"true" validate:"gte=1,lte=6"`
	MaxD        int `yaml:"max_d" split_words:"true" validate:"gte=1,lte=3"`
	MaxQ        int `yaml:"max_q" split_words:"true" validate:"gte=1,lte=6"`
	Parallelism int `yaml:"parallelism" validate:"gte=0"`
}

// ChangepointConfig configures level shift detection.
type ChangepointConfig struct {
	Model   string  `yaml:"model" validate:"oneof=l1 l2 rbf linear normal"`
	Penalty float64 `yaml:"penalty" validate:"gte=0"`
	MinSize int     `yaml:"min_size" split_words:"true" validate:"gte=1"`
	Jump    int     `yaml:"jump" validate:"gte=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	search := arimax.DefaultSearchOptions()
	cp := changepoint.DefaultOptions()
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Data: DataConfig{
			Source:   SourceCSV,
			CSVDir:   "data",
			Table:    "asset_prices",
			DaysBack: 150,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MetricsPath:     "/metrics",
		},
		Pipeline: PipelineConfig{
			Window: smooth.DefaultWindow,
			CI:     smooth.DefaultCI,
			Signif: 0.05,
			Strict: true,
			Alpha:  arimax.DefaultAlpha,
			Search: SearchConfig{
				MinObs: search.MinObs,
				MaxP:   search.MaxP,
				MaxD:   search.MaxD,
				MaxQ:   search.MaxQ,
			},
			Changepoints: ChangepointConfig{
				Model:   cp.Model.String(),
				Penalty: cp.Penalty,
				MinSize: cp.MinSize,
				Jump:    cp.Jump,
			},
		},
	}
}

// Load starts from Default, applies the YAML file at path when path is not
// empty, then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("%s: failed %q constraint (value %v)", first.Namespace(), first.Tag(), first.Value())
		}
		return err
	}
	return nil
}

// Forecast converts the pipeline section into a forecast.Config.
func (c *Config) Forecast() (forecast.Config, error) {
	p := c.Pipeline
	out := forecast.DefaultConfig()

	if p.Smoother != "" {
		kind, err := smooth.ParseKind(p.Smoother)
		if err != nil {
			return forecast.Config{}, err
		}
		out.Smoother = &kind
	}
	model, err := changepoint.ParseModel(p.Changepoints.Model)
	if err != nil {
		return forecast.Config{}, err
	}

	out.Window = p.Window
	out.CI = p.CI
	out.Signif = p.Signif
	out.Strict = p.Strict
	out.Alpha = p.Alpha
	out.Search = arimax.SearchOptions{
		MinObs:      p.Search.MinObs,
		MaxP:        p.Search.MaxP,
		MaxD:        p.Search.MaxD,
		MaxQ:        p.Search.MaxQ,
		Parallelism: p.Search.Parallelism,
	}
	out.Changepoints = changepoint.Options{
		Model:   model,
		Penalty: p.Changepoints.Penalty,
		MinSize: p.Changepoints.MinSize,
		Jump:    p.Changepoints.Jump,
	}
	return out, nil
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"trend-pipeline/internal/model"
	"trend-pipeline/internal/pipeline"
	"trend-pipeline/internal/source"
)

// EnvPrefix prefixes every environment override, e.g. TREND_PIPELINE_BUCKET.
const EnvPrefix = "TREND"

// Config represents the complete application configuration
type Config struct {
	Pipeline    PipelineConfig    `yaml:"pipeline" envconfig:"PIPELINE"`
	Sources     []SourceConfig    `yaml:"sources" ignored:"true" validate:"dive"`
	Export      ExportConfig      `yaml:"export" envconfig:"EXPORT"`
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" envconfig:"CONCURRENCY"`
}

// PipelineConfig holds the stage settings shared by all sources.
type PipelineConfig struct {
	DateFormat    string `yaml:"date_format" envconfig:"DATE_FORMAT" validate:"required"`
	MissingPolicy string `yaml:"missing_policy" envconfig:"MISSING_POLICY" validate:"oneof=dropRow keepWithSentinel"`
	Reduce        string `yaml:"reduce" envconfig:"REDUCE" validate:"oneof=sum count"`
	Bucket        string `yaml:"bucket" envconfig:"BUCKET" validate:"oneof=day month year"`
	Horizon       int    `yaml:"horizon" envconfig:"HORIZON" validate:"min=0"`
	Collapse      bool   `yaml:"collapse" envconfig:"COLLAPSE"`
}

// SourceConfig is one input dataset.
type SourceConfig struct {
	source.Spec `yaml:",inline"`
	Kind        string `yaml:"kind" validate:"required"`
	HasHeader   *bool  `yaml:"has_header"`
	Reduce      string `yaml:"reduce" validate:"omitempty,oneof=sum count"`
	Bucket      string `yaml:"bucket" validate:"omitempty,oneof=day month year"`
}

// ExportConfig selects where results go.
type ExportConfig struct {
	Dir        string   `yaml:"dir" envconfig:"DIR"`
	Formats    []string `yaml:"formats" envconfig:"FORMATS" validate:"dive,oneof=json csv"`
	SQLitePath string   `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// ConcurrencyConfig bounds parallel work.
type ConcurrencyConfig struct {
	Sources     int           `yaml:"sources" envconfig:"SOURCES" validate:"min=1"`
	JobTimeout  time.Duration `yaml:"job_timeout" envconfig:"JOB_TIMEOUT"`
	HTTPTimeout time.Duration `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Pipeline: PipelineConfig{
			DateFormat:    pipeline.DefaultDateFormat,
			MissingPolicy: string(model.DropRow),
			Reduce:        string(model.ReduceSum),
			Bucket:        string(model.BucketDay),
			Horizon:       3,
		},
		Export: ExportConfig{
			Dir:     "output",
			Formats: []string{"json"},
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "console",
			FilePath: "logs/pipeline.log",
		},
		Concurrency: ConcurrencyConfig{
			Sources:     4,
			JobTimeout:  10 * time.Minute,
			HTTPTimeout: time.Minute,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then TREND_* environment overrides. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint and reports all violations.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}

// PipelineOptions converts the stage settings for the runner.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		DateFormat:  c.Pipeline.DateFormat,
		Policy:      model.MissingPolicy(c.Pipeline.MissingPolicy),
		Reduce:      model.Reduce(c.Pipeline.Reduce),
		Bucket:      model.Bucket(c.Pipeline.Bucket),
		Horizon:     c.Pipeline.Horizon,
		Collapse:    c.Pipeline.Collapse,
		Concurrency: c.Concurrency.Sources,
	}
}

// Jobs builds one pipeline job per configured source.
func (c *Config) Jobs(logger *slog.Logger) ([]pipeline.Job, error) {
	client := &http.Client{Timeout: c.Concurrency.HTTPTimeout}
	jobs := make([]pipeline.Job, 0, len(c.Sources))
	for _, sc := range c.Sources {
		src, err := source.New(sc.Spec, client, logger)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, pipeline.Job{Source: src, Spec: sc.PipelineSpec()})
	}
	return jobs, nil
}

// PipelineSpec is the runner's view of the source. Sources have a header
// row unless has_header is false.
func (sc SourceConfig) PipelineSpec() pipeline.SourceSpec {
	hasHeader := true
	if sc.HasHeader != nil {
		hasHeader = *sc.HasHeader
	}
	return pipeline.SourceSpec{
		Kind:      sc.Kind,
		HasHeader: hasHeader,
		Reduce:    model.Reduce(sc.Reduce),
		Bucket:    model.Bucket(sc.Bucket),
	}
}

// Package config loads the application configuration from defaults, an
// optional YAML file, and environment variable overrides, in that order.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("coworker.yaml").
//	    WithEnvPrefix("COWORKER").
//	    Load()
//
// Environment keys are derived from the yaml tags, upper-cased and joined
// with underscores: COWORKER_STORE_REDIS_ADDR overrides store.redis.addr.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/edtronaut/coworker/director"
	"github.com/edtronaut/coworker/gateway"
	"github.com/edtronaut/coworker/internal/telemetry"
	"github.com/edtronaut/coworker/npc"
	"github.com/edtronaut/coworker/orchestrator"
	"github.com/edtronaut/coworker/store"
)

// Config is the full application configuration.
type Config struct {
	// Log configures the zap logger.
	Log LogConfig `yaml:"log"`

	// Telemetry configures tracing.
	Telemetry telemetry.Config `yaml:"telemetry"`

	// Store selects and configures the conversation store backend.
	Store store.Config `yaml:"store"`

	// Orchestrator configures the turn state machine.
	Orchestrator orchestrator.Config `yaml:"orchestrator"`

	// NPC configures prompt assembly and generation parameters.
	NPC npc.Config `yaml:"npc"`

	// Director configures audit heuristics.
	Director director.Config `yaml:"director"`

	// Generation configures the gateway retry policy and tokenizer model.
	Generation GenerationConfig `yaml:"generation"`

	// PersonaFile optionally points at a YAML file with extra personas,
	// merged over the builtins.
	PersonaFile string `yaml:"persona_file"`

	// MetricsNamespace prefixes all prometheus metric names.
	MetricsNamespace string `yaml:"metrics_namespace"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is json or console.
	Format string `yaml:"format"`
	// OutputPaths are zap sink URLs; defaults to stderr.
	OutputPaths []string `yaml:"output_paths"`
}

// GenerationConfig configures the generation gateway wrapper.
type GenerationConfig struct {
	// Retry is the resilient-wrapper policy for transient failures.
	Retry gateway.RetryConfig `yaml:"retry"`
	// TokenizerModel selects the tiktoken encoding used for prompt budgeting.
	TokenizerModel string `yaml:"tokenizer_model"`
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stderr"},
		},
		Telemetry:    telemetry.DefaultConfig(),
		Store:        store.DefaultConfig(),
		Orchestrator: orchestrator.DefaultConfig(),
		NPC:          npc.DefaultConfig(),
		Director:     director.DefaultConfig(),
		Generation: GenerationConfig{
			Retry:          gateway.RetryConfig{MaxRetries: 2, Backoff: time.Second},
			TokenizerModel: "gpt-4o",
		},
		MetricsNamespace: "coworker",
	}
}

// Validate checks cross-field constraints not enforced by the components.
func (c *Config) Validate() error {
	var errs []string

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}
	if c.Orchestrator.MaxRevisions < 0 {
		errs = append(errs, "orchestrator.max_revisions must not be negative")
	}
	if c.NPC.Temperature < 0 || c.NPC.Temperature > 2 {
		errs = append(errs, "npc.temperature must be between 0 and 2")
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		errs = append(errs, "telemetry.otlp_endpoint is required when tracing is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// BuildLogger constructs a zap logger from the log configuration.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(defaultString(c.Log.Level, "info"))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	var zc zap.Config
	if defaultString(c.Log.Format, "json") == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level
	if len(c.Log.OutputPaths) > 0 {
		zc.OutputPaths = c.Log.OutputPaths
	}
	return zc.Build()
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Loader loads configuration with builder-style options.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the COWORKER env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "COWORKER"}
}

// WithConfigPath sets the YAML file path. A missing file is not an error.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds an extra validation step run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration: defaults, then file, then environment.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

// MustLoad loads the configuration from path, panicking on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// setFieldsFromEnv walks the struct and overrides fields from environment
// variables keyed by the upper-cased yaml tags.
func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		tag := fieldType.Tag.Get("yaml")
		if tag == "" || tag == "-" {
			continue
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		envKey := prefix + "_" + strings.ToUpper(tag)

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}) {
			if err := setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("set %s: %w", envKey, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}

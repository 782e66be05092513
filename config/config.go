/*
config.go - Application configuration

PURPOSE:
  One Config struct for the server and the CLI. Values come from, in order:
  1. Defaults (Default())
  2. An optional YAML file
  3. CASELOAD_* environment variables

EXAMPLE FILE:
  server:
    port: 8080
    allowed_origins: ["http://localhost:5173"]
  database:
    path: caseload.db
  engine:
    skim_fraction: "0.2"
    apply_concurrency: 4
  scheduler:
    enabled: false
    interval: 24h
  log:
    level: info
    format: text
  metrics:
    enabled: true
    path: /metrics

ENVIRONMENT:
  CASELOAD_PORT, CASELOAD_DB, CASELOAD_SKIM_FRACTION,
  CASELOAD_APPLY_CONCURRENCY, CASELOAD_SCHEDULER_ENABLED,
  CASELOAD_SCHEDULER_INTERVAL, CASELOAD_LOG_LEVEL, CASELOAD_LOG_FORMAT,
  CASELOAD_METRICS_ENABLED
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/caseload-engine/workload"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Engine struct {
		SkimFraction     string `yaml:"skim_fraction"`
		ApplyConcurrency int    `yaml:"apply_concurrency"`
	} `yaml:"engine"`

	Scheduler struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"scheduler"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.Server.Port = 8080
	c.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	c.Database.Path = "caseload.db"
	c.Engine.SkimFraction = workload.DefaultSkimFraction.String()
	c.Engine.ApplyConcurrency = 4
	c.Scheduler.Enabled = false
	c.Scheduler.Interval = 24 * time.Hour
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	return c
}

// Load reads path (if non-empty) over the defaults, applies the environment
// and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// SkimFraction parses Engine.SkimFraction.
func (c Config) SkimFraction() (decimal.Decimal, error) {
	f, err := decimal.NewFromString(c.Engine.SkimFraction)
	if err != nil {
		return decimal.Zero, fmt.Errorf("engine.skim_fraction %q: %w", c.Engine.SkimFraction, err)
	}
	return f, nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	var errs []error
	if f, err := c.SkimFraction(); err != nil {
		errs = append(errs, err)
	} else if err := workload.ValidateFraction(f); err != nil {
		errs = append(errs, fmt.Errorf("engine.skim_fraction: %w", err))
	}
	if c.Engine.ApplyConcurrency < 1 {
		errs = append(errs, errors.New("engine.apply_concurrency must be >= 1"))
	}
	if c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("scheduler.interval must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	return errors.Join(errs...)
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

const envPrefix = "CASELOAD_"

func (c *Config) applyEnv(getenv func(string) string) error {
	get := func(key string) string { return getenv(envPrefix + key) }

	if v := get("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", envPrefix, err)
		}
		c.Server.Port = n
	}
	if v := get("DB"); v != "" {
		c.Database.Path = v
	}
	if v := get("SKIM_FRACTION"); v != "" {
		c.Engine.SkimFraction = v
	}
	if v := get("APPLY_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sAPPLY_CONCURRENCY: %w", envPrefix, err)
		}
		c.Engine.ApplyConcurrency = n
	}
	if v := get("SCHEDULER_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSCHEDULER_ENABLED: %w", envPrefix, err)
		}
		c.Scheduler.Enabled = b
	}
	if v := get("SCHEDULER_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSCHEDULER_INTERVAL: %w", envPrefix, err)
		}
		c.Scheduler.Interval = d
	}
	if v := get("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := get("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := get("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sMETRICS_ENABLED: %w", envPrefix, err)
		}
		c.Metrics.Enabled = b
	}
	return nil
}

// Package config loads and validates the dashboard configuration.
//
// Configuration layers, later wins: built-in defaults, the YAML config
// file, then environment variables (a .env file is honored for local
// development). Validation runs once at startup and fails fast; an invalid
// interval or timeout aborts the process rather than silently defaulting
// mid-session.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked for when --config is not given.
const DefaultPath = "memberboard.yaml"

// Defaults.
const (
	DefaultCacheTimeoutMS    = 300000 // 5 minutes
	DefaultRefreshIntervalMS = 60000  // 1 minute
	DefaultRequestTimeoutMS  = 30000  // 30 seconds
	DefaultMaxRetries        = 3
	DefaultRetryBaseDelayMS  = 250
	DefaultRetryMaxDelayMS   = 5000
)

// Config is the process-wide configuration. It is read-only after Load;
// nothing on the query path mutates it.
type Config struct {
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Cache     CacheConfig     `yaml:"cache"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Request   RequestConfig   `yaml:"request"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// WarehouseConfig locates the remote SQL warehouse.
type WarehouseConfig struct {
	Host        string `yaml:"host"`
	WarehouseID string `yaml:"warehouse_id"`
	Token       string `yaml:"token"`
	Catalog     string `yaml:"catalog"`
	Schema      string `yaml:"schema"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	Enabled   bool `yaml:"enabled"`
	TimeoutMS int  `yaml:"timeout_ms"`
}

// TTL returns the cache freshness window as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// RefreshConfig controls the periodic refresh scheduler.
type RefreshConfig struct {
	IntervalMS int `yaml:"interval_ms"`
}

// Interval returns the refresh interval as a duration.
func (c RefreshConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// RequestConfig controls per-request timeout and retry policy.
type RequestConfig struct {
	TimeoutMS        int `yaml:"timeout_ms"`
	MaxRetries       int `yaml:"max_retries"`
	RetryBaseDelayMS int `yaml:"retry_base_delay_ms"`
	RetryMaxDelayMS  int `yaml:"retry_max_delay_ms"`
}

// Timeout returns the per-request wall-clock budget.
func (c RequestConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// RetryBaseDelay returns the first backoff delay.
func (c RequestConfig) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMS) * time.Millisecond
}

// RetryMaxDelay returns the backoff cap.
func (c RequestConfig) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMS) * time.Millisecond
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Warehouse: WarehouseConfig{
			Catalog: "mv_catalog",
			Schema:  "demo_health",
		},
		Cache: CacheConfig{
			Enabled:   true,
			TimeoutMS: DefaultCacheTimeoutMS,
		},
		Refresh: RefreshConfig{
			IntervalMS: DefaultRefreshIntervalMS,
		},
		Request: RequestConfig{
			TimeoutMS:        DefaultRequestTimeoutMS,
			MaxRetries:       DefaultMaxRetries,
			RetryBaseDelayMS: DefaultRetryBaseDelayMS,
			RetryMaxDelayMS:  DefaultRetryMaxDelayMS,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path, and
// environment variables, then validates it.
//
// An explicit path that does not exist is an error; the default path is
// optional. A .env file in the working directory is loaded first so local
// development matches deployed environment configuration.
func Load(path string, lookupEnv func(string) (string, bool)) (Config, error) {
	// Best-effort: absence of a .env file is the normal case.
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(data, &cfg); unmarshalErr != nil {
			return Config{}, fmt.Errorf("invalid config file %s: %w", path, unmarshalErr)
		}
	case explicit:
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	case !os.IsNotExist(err):
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if envErr := cfg.applyEnv(lookupEnv); envErr != nil {
		return Config{}, envErr
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return Config{}, validateErr
	}
	return cfg, nil
}

// applyEnv overrides config fields from environment variables. Both the
// MEMBERBOARD_* names and the warehouse-native names the original
// deployment used (CATALOG_NAME, SCHEMA_NAME, SQL_WAREHOUSE_ID,
// DATABRICKS_HOST, DATABRICKS_TOKEN) are honored. A variable that is set
// but unparseable is an error, never a silent fallback to the default.
func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	var envErr error

	setString := func(target *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookupEnv(key); ok && v != "" {
				*target = v
				return
			}
		}
	}
	setInt := func(target *int, keys ...string) {
		for _, key := range keys {
			if v, ok := lookupEnv(key); ok && v != "" {
				n, err := strconv.Atoi(v)
				if err != nil && envErr == nil {
					envErr = fmt.Errorf("invalid value %q for %s: expected an integer", v, key)
				}
				if err == nil {
					*target = n
				}
				return
			}
		}
	}
	setBool := func(target *bool, keys ...string) {
		for _, key := range keys {
			if v, ok := lookupEnv(key); ok && v != "" {
				b, err := strconv.ParseBool(v)
				if err != nil && envErr == nil {
					envErr = fmt.Errorf("invalid value %q for %s: expected a boolean", v, key)
				}
				if err == nil {
					*target = b
				}
				return
			}
		}
	}

	setString(&c.Warehouse.Host, "MEMBERBOARD_WAREHOUSE_HOST", "DATABRICKS_HOST")
	setString(&c.Warehouse.WarehouseID, "MEMBERBOARD_WAREHOUSE_ID", "SQL_WAREHOUSE_ID")
	setString(&c.Warehouse.Token, "MEMBERBOARD_WAREHOUSE_TOKEN", "DATABRICKS_TOKEN")
	setString(&c.Warehouse.Catalog, "MEMBERBOARD_CATALOG", "CATALOG_NAME")
	setString(&c.Warehouse.Schema, "MEMBERBOARD_SCHEMA", "SCHEMA_NAME")

	setBool(&c.Cache.Enabled, "MEMBERBOARD_CACHE_ENABLED")
	setInt(&c.Cache.TimeoutMS, "MEMBERBOARD_CACHE_TIMEOUT_MS")
	setInt(&c.Refresh.IntervalMS, "MEMBERBOARD_REFRESH_INTERVAL_MS")
	setInt(&c.Request.TimeoutMS, "MEMBERBOARD_REQUEST_TIMEOUT_MS")
	setInt(&c.Request.MaxRetries, "MEMBERBOARD_MAX_RETRIES")

	setString(&c.Logging.Level, "MEMBERBOARD_LOG_LEVEL")
	setString(&c.Logging.Format, "MEMBERBOARD_LOG_FORMAT")
	setString(&c.Logging.File, "MEMBERBOARD_LOG_FILE")

	return envErr
}

// Validate checks the configuration for values that would misbehave at
// runtime. It returns the first problem found.
func (c *Config) Validate() error {
	if c.Warehouse.Catalog == "" {
		return errors.New("warehouse catalog cannot be empty")
	}
	if c.Warehouse.Schema == "" {
		return errors.New("warehouse schema cannot be empty")
	}
	if c.Cache.TimeoutMS <= 0 {
		return fmt.Errorf("cache timeout_ms must be > 0, got %d", c.Cache.TimeoutMS)
	}
	if c.Refresh.IntervalMS <= 0 {
		return fmt.Errorf("refresh interval_ms must be > 0, got %d", c.Refresh.IntervalMS)
	}
	if c.Request.TimeoutMS <= 0 {
		return fmt.Errorf("request timeout_ms must be > 0, got %d", c.Request.TimeoutMS)
	}
	if c.Request.MaxRetries < 0 {
		return fmt.Errorf("request max_retries must be >= 0, got %d", c.Request.MaxRetries)
	}
	if c.Request.RetryBaseDelayMS <= 0 {
		return fmt.Errorf("request retry_base_delay_ms must be > 0, got %d", c.Request.RetryBaseDelayMS)
	}
	if c.Request.RetryMaxDelayMS < c.Request.RetryBaseDelayMS {
		return fmt.Errorf("request retry_max_delay_ms must be >= retry_base_delay_ms, got %d < %d",
			c.Request.RetryMaxDelayMS, c.Request.RetryBaseDelayMS)
	}
	return nil
}

// RequireWarehouse verifies the fields needed to reach the warehouse.
// Commands that never touch the network (views, version) skip this.
func (c *Config) RequireWarehouse() error {
	if c.Warehouse.Host == "" {
		return errors.New("warehouse host is not configured (set MEMBERBOARD_WAREHOUSE_HOST or warehouse.host)")
	}
	if c.Warehouse.WarehouseID == "" {
		return errors.New("warehouse ID is not configured (set MEMBERBOARD_WAREHOUSE_ID or warehouse.warehouse_id)")
	}
	return nil
}

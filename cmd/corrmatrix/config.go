package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/hupe1980/corrmatrix"
)

const (
	envPrefix     = "CORRMATRIX_"
	envConfigPath = "CORRMATRIX_CONFIG"
)

// Config is the complete CLI configuration.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Build     BuildConfig     `koanf:"build"`
	Neighbors NeighborsConfig `koanf:"neighbors"`
	Store     StoreConfig     `koanf:"store"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type BuildConfig struct {
	MinCommonItems   int    `koanf:"min_common_items"`
	PrecomputedMeans bool   `koanf:"precomputed_means"`
	BudgetElements   int64  `koanf:"budget_elements"`
	InitialChunk     int    `koanf:"initial_chunk"`
	SpillDir         string `koanf:"spill_dir"`
	SpillCompression string `koanf:"spill_compression"`
	SpillIOLimit     int64  `koanf:"spill_io_limit"`
	Compress         bool   `koanf:"compress"`
}

type NeighborsConfig struct {
	K int `koanf:"k"`
}

// StoreConfig selects where matrices live.
type StoreConfig struct {
	// Kind is local, minio or s3.
	Kind string `koanf:"kind"`

	// Root is the directory of the local store.
	Root string `koanf:"root"`

	Bucket       string `koanf:"bucket"`
	Prefix       string `koanf:"prefix"`
	Endpoint     string `koanf:"endpoint"`
	Region       string `koanf:"region"`
	AccessKey    string `koanf:"access_key"`
	SecretKey    string `koanf:"secret_key"`
	Secure       bool   `koanf:"secure"`
	UsePathStyle bool   `koanf:"use_path_style"`

	// RegistryTable enables the DynamoDB registry (s3 only).
	RegistryTable string `koanf:"registry_table"`
}

type MetricsConfig struct {
	// Textfile receives Prometheus metrics after each run.
	Textfile string `koanf:"textfile"`
}

func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Build: BuildConfig{
			MinCommonItems:   1,
			BudgetElements:   64 << 20,
			InitialChunk:     10000,
			SpillCompression: "none",
		},
		Neighbors: NeighborsConfig{
			K: 1000,
		},
		Store: StoreConfig{
			Kind:   "local",
			Root:   ".",
			Secure: true,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// $CORRMATRIX_CONFIG) and CORRMATRIX_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// CORRMATRIX_BUILD_MIN_COMMON_ITEMS -> build.min_common_items
	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if key == "config" {
		return ""
	}
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + rest
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	var errs []error

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
	}

	if c.Build.MinCommonItems < 1 {
		errs = append(errs, fmt.Errorf("build.min_common_items: %w", corrmatrix.ErrInvalidThreshold))
	}
	if c.Build.BudgetElements < 0 {
		errs = append(errs, errors.New("build.budget_elements: must not be negative"))
	}
	if c.Build.InitialChunk < 0 {
		errs = append(errs, errors.New("build.initial_chunk: must not be negative"))
	}
	if _, err := corrmatrix.ParseCompression(c.Build.SpillCompression); err != nil {
		errs = append(errs, fmt.Errorf("build.spill_compression: %w", err))
	}
	if c.Neighbors.K < 1 {
		errs = append(errs, fmt.Errorf("neighbors.k: %w", corrmatrix.ErrInvalidK))
	}

	switch c.Store.Kind {
	case "local":
		if c.Store.Root == "" {
			errs = append(errs, errors.New("store.root: required for the local store"))
		}
	case "minio":
		if c.Store.Endpoint == "" {
			errs = append(errs, errors.New("store.endpoint: required for minio"))
		}
		fallthrough
	case "s3":
		if c.Store.Bucket == "" {
			errs = append(errs, fmt.Errorf("store.bucket: required for %s", c.Store.Kind))
		}
	default:
		errs = append(errs, fmt.Errorf("store.kind: must be local, minio or s3, got %q", c.Store.Kind))
	}
	if c.Store.RegistryTable != "" && c.Store.Kind != "s3" {
		errs = append(errs, errors.New("store.registry_table: only supported with s3"))
	}

	return errors.Join(errs...)
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "medscan-server-go/internal/platform/errors"
)

const (
	// EnvConfigPath points the loader at a YAML file other than ./config.yaml.
	EnvConfigPath = "MEDSCAN_CONFIG"

	defaultConfigPath = "config.yaml"
)

// Loader reads configuration from YAML, an optional .env file and the process
// environment, in that order of increasing precedence.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader that honours MEDSCAN_CONFIG and .env.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath pins the YAML file, bypassing MEDSCAN_CONFIG.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// WithEnv replaces environment lookup (useful for tests).
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// Result captures the loaded configuration and its origin path. Path is empty
// when no file was found and defaults were used.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the effective configuration.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// a missing .env is normal outside development
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	path, explicit := l.resolvePath()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.load", "parse "+path, err)
		}
	case os.IsNotExist(err) && !explicit:
		path = ""
	default:
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.load", "read "+path, err)
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: path}, nil
}

// resolvePath reports the YAML file to read and whether it was named
// explicitly. Only the implicit ./config.yaml may be missing.
func (l *Loader) resolvePath() (string, bool) {
	if l.path != "" {
		return l.path, true
	}
	if p, ok := l.lookupEnv(EnvConfigPath); ok && strings.TrimSpace(p) != "" {
		return strings.TrimSpace(p), true
	}
	return defaultConfigPath, false
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.lookupEnv("MEDSCAN_SERVER_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindConfig, "config.env", "MEDSCAN_SERVER_PORT", err)
		}
		cfg.Server.Port = port
	}
	if v, ok := l.lookupEnv("MEDSCAN_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := l.lookupEnv("MEDSCAN_STORE_DRIVER"); ok {
		cfg.Store.Driver = v
	}
	if v, ok := l.lookupEnv("MEDSCAN_SQLITE_DSN"); ok {
		cfg.Store.SQLite.DSN = v
	}
	if v, ok := l.lookupEnv("MEDSCAN_REDIS_ADDR"); ok {
		cfg.Store.Redis.Addr = v
	}
	if v, ok := l.lookupEnv("MEDSCAN_REDIS_PASSWORD"); ok {
		cfg.Store.Redis.Password = v
	}
	if v, ok := l.lookupEnv("MEDSCAN_ANALYSIS_SEED"); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindConfig, "config.env", "MEDSCAN_ANALYSIS_SEED", err)
		}
		cfg.Analysis.Seed = seed
	}
	return nil
}

func (l *Loader) validate(cfg *Config) error {
	invalid := func(format string, args ...any) error {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", fmt.Sprintf(format, args...))
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return invalid("invalid server port: %d", cfg.Server.Port)
	}
	for name, raw := range map[string]string{
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout,
		"decode.timeout":          cfg.Decode.Timeout,
		"store.ttl":               cfg.Store.TTL,
		"store.cleanup":           cfg.Store.Cleanup,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return invalid("%s: %v", name, err)
		}
	}
	if cfg.Decode.MaxFileSize <= 0 {
		return invalid("decode.max_file_size must be positive")
	}
	if cfg.Decode.MaxWidth <= 0 || cfg.Decode.MaxHeight <= 0 || cfg.Decode.MaxPixels <= 0 {
		return invalid("decode dimension limits must be positive")
	}
	if cfg.Analysis.MaxConcurrency <= 0 {
		return invalid("analysis.max_concurrency must be positive")
	}
	if cfg.Events.Workers < 0 || cfg.Events.QueueSize < 0 {
		return invalid("events.workers and events.queue_size must not be negative")
	}

	switch strings.ToLower(cfg.Store.Driver) {
	case "", "memory", "sqlite", "redis":
	default:
		return invalid("unsupported store driver %q", cfg.Store.Driver)
	}

	r := cfg.Analysis.Thresholds.Report
	if r.MinConfidence > r.MaxConfidence {
		return invalid("report confidence bounds inverted: %d > %d", r.MinConfidence, r.MaxConfidence)
	}
	if r.SecondFindingChance < 0 || r.SecondFindingChance > 1 {
		return invalid("second_finding_chance must be within [0,1]")
	}
	if cfg.Analysis.Thresholds.Pixel.GrayscaleSampleSize <= 0 {
		return invalid("grayscale_sample_size must be positive")
	}
	return nil
}

// Duration parses a config duration string, falling back when empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

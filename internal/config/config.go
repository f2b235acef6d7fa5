// config.go — YAML-backed engine configuration, loaded once at startup.
//
// Grounded on the one config-loading library present anywhere in the
// example pack (gopkg.in/yaml.v3, used by 99souls-ariadne's
// packages/engine/config). Zero-value YAML fields fall back to
// documented defaults in Load: a field the caller genuinely set to zero
// is indistinguishable from an absent field at the YAML layer, so every
// tunable here has a default that is itself a meaningful, positive
// value — never a collapsed "0 means use stored value" hazard. The one
// exception is worker_pool_size, whose default 0 means "one worker per
// CPU" (see Workers).
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the engine's full runtime configuration.
type Config struct {
	CacheDir           string `yaml:"cache_dir"`
	WorkerPoolSize     int    `yaml:"worker_pool_size"`
	LoadTimeoutSeconds int    `yaml:"load_timeout_seconds"`
	FrameRateHz        int    `yaml:"frame_rate_hz"`
	HysteresisMeters   float64 `yaml:"hysteresis_meters"`
	GridLockSeconds    float64 `yaml:"grid_lock_seconds"`
	MetricsAddr        string `yaml:"metrics_addr"`
	LogLevel           string `yaml:"log_level"`
	HTTPAddr           string `yaml:"http_addr"`
}

// Default returns a Config populated with the engine's documented
// defaults, independent of any file on disk.
func Default() Config {
	return Config{
		CacheDir:           "./cache",
		WorkerPoolSize:     0,
		LoadTimeoutSeconds: 300,
		FrameRateHz:        25,
		HysteresisMeters:   5,
		GridLockSeconds:    5,
		MetricsAddr:        ":9090",
		LogLevel:           "info",
		HTTPAddr:           ":8080",
	}
}

// Load reads a YAML config file and overlays it on Default(). A missing
// file is not an error — the defaults alone are a usable configuration.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config_load: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config_load: parse %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

// withDefaults fills any zero-valued field with its documented default.
func (c Config) withDefaults() Config {
	d := Default()
	if c.CacheDir == "" {
		c.CacheDir = d.CacheDir
	}
	if c.LoadTimeoutSeconds == 0 {
		c.LoadTimeoutSeconds = d.LoadTimeoutSeconds
	}
	if c.FrameRateHz == 0 {
		c.FrameRateHz = d.FrameRateHz
	}
	if c.HysteresisMeters == 0 {
		c.HysteresisMeters = d.HysteresisMeters
	}
	if c.GridLockSeconds == 0 {
		c.GridLockSeconds = d.GridLockSeconds
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = d.MetricsAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = d.HTTPAddr
	}
	return c
}

// Workers resolves WorkerPoolSize against the host. The caller
// (telemetry.RunPipeline) clamps this further by driver count, since
// running more workers than drivers wastes goroutines.
func (c Config) Workers() int {
	if c.WorkerPoolSize > 0 {
		return c.WorkerPoolSize
	}
	return runtime.NumCPU()
}

// LoadTimeout is the bounded wall-clock wait for a session load.
func (c Config) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutSeconds) * time.Second
}

// FrameDelta is the fixed timeline step Δt.
func (c Config) FrameDelta() time.Duration {
	return time.Second / time.Duration(c.FrameRateHz)
}

// FrameDeltaSeconds is Δt as a float64 seconds value, used throughout the
// pipeline's timeline math.
func (c Config) FrameDeltaSeconds() float64 {
	return 1.0 / float64(c.FrameRateHz)
}

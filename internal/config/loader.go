// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/apiai"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath      string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty configPath skips the file layer.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath:      configPath,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load resolves the configuration: defaults, then file (strict), then env,
// then Validate.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	if err := l.mergeEnvConfig(&cfg); err != nil {
		return cfg, fmt.Errorf("merge env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile loads configuration from a YAML file with strict parsing.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *Config, f *FileConfig) error {
	setString(&cfg.AccessToken, f.AccessToken)
	setString(&cfg.BaseURL, f.BaseURL)
	setString(&cfg.Version, f.Version)
	setString(&cfg.LogLevel, f.LogLevel)

	if f.Lang != nil {
		lang, err := apiai.ParseLanguage(*f.Lang)
		if err != nil {
			return fmt.Errorf("lang: %w", err)
		}
		cfg.Language = lang
	}
	if f.Timeout != nil {
		d, err := time.ParseDuration(*f.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if rl := f.RateLimit; rl != nil {
		if rl.PerSecond != nil {
			cfg.RateLimit = *rl.PerSecond
		}
		if rl.Burst != nil {
			cfg.RateLimitBurst = *rl.Burst
		}
	}
	if tr := f.Tracing; tr != nil {
		if tr.Enabled != nil {
			cfg.Telemetry.Enabled = *tr.Enabled
		}
		setString(&cfg.Telemetry.Exporter, tr.Exporter)
		setString(&cfg.Telemetry.Endpoint, tr.Endpoint)
		if tr.SamplingRate != nil {
			cfg.Telemetry.SamplingRate = *tr.SamplingRate
		}
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *Config) error {
	cfg.AccessToken = l.envString(EnvAccessToken, cfg.AccessToken)
	cfg.BaseURL = l.envString(EnvBaseURL, cfg.BaseURL)
	cfg.Version = l.envString(EnvVersion, cfg.Version)
	cfg.Timeout = l.envDuration(EnvTimeout, cfg.Timeout)
	cfg.RateLimit = l.envFloat(EnvRateLimit, cfg.RateLimit)
	cfg.RateLimitBurst = l.envInt(EnvRateBurst, cfg.RateLimitBurst)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	cfg.Telemetry.Enabled = l.envBool(EnvTracingEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvTracingExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvTracingEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvTracingSampling, cfg.Telemetry.SamplingRate)

	// Unsupported codes fail the load instead of falling back to English.
	if code := l.envString(EnvLanguage, ""); code != "" {
		lang, err := apiai.ParseLanguage(code)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLanguage, err)
		}
		cfg.Language = lang
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

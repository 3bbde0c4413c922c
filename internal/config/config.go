// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/apiai"
	"github.com/ManuGH/apiai/internal/telemetry"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Config is the resolved configuration after defaults, file and env.
type Config struct {
	AccessToken    string
	BaseURL        string
	Version        string
	Language       apiai.Language
	Timeout        time.Duration
	RateLimit      float64 // queries per second, 0 disables
	RateLimitBurst int
	LogLevel       string
	Telemetry      TelemetryConfig
}

// TelemetryConfig mirrors telemetry.Config for the file and env layers.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		BaseURL:  apiai.DefaultBaseURL,
		Version:  apiai.DefaultVersion,
		Language: apiai.DefaultLanguage,
		Timeout:  30 * time.Second,
		LogLevel: "info",
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// Validate reports every problem at once. The access token is not required
// here because the mock server runs without one.
func (c Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("baseURL: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("baseURL: scheme must be http or https, got %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, errors.New("baseURL: host is required"))
	}
	if strings.TrimSpace(c.Version) == "" {
		errs = append(errs, errors.New("version: must not be empty"))
	}
	if !c.Language.Valid() {
		errs = append(errs, fmt.Errorf("lang: %d is not a supported language", int(c.Language)))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout: must be positive, got %s", c.Timeout))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rateLimit.perSecond: must not be negative, got %g", c.RateLimit))
	}
	if c.RateLimitBurst < 0 {
		errs = append(errs, fmt.Errorf("rateLimit.burst: must not be negative, got %d", c.RateLimitBurst))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("logLevel: %w", err))
	}
	if c.Telemetry.Enabled {
		switch c.Telemetry.Exporter {
		case "grpc", "http":
		default:
			errs = append(errs, fmt.Errorf("tracing.exporter: %q (supported: grpc, http)", c.Telemetry.Exporter))
		}
		if c.Telemetry.Endpoint == "" {
			errs = append(errs, errors.New("tracing.endpoint: required when tracing is enabled"))
		}
	}
	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		errs = append(errs, fmt.Errorf("tracing.samplingRate: must be within [0,1], got %g", c.Telemetry.SamplingRate))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// ClientOptions bridges the configuration to apiai.Options.
func (c Config) ClientOptions(logger *zerolog.Logger) apiai.Options {
	opts := apiai.Options{
		BaseURL: c.BaseURL,
		Version: c.Version,
		Timeout: c.Timeout,
		Logger:  logger,
	}
	if c.RateLimit > 0 {
		opts.RateLimit = rate.Limit(c.RateLimit)
		opts.RateLimitBurst = c.RateLimitBurst
	}
	return opts
}

// TelemetryOptions converts the tracing section for telemetry.NewProvider.
func (c Config) TelemetryOptions(service, version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    service,
		ServiceVersion: version,
		ExporterType:   c.Telemetry.Exporter,
		Endpoint:       c.Telemetry.Endpoint,
		SamplingRate:   c.Telemetry.SamplingRate,
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/apiai/internal/log"
	"github.com/rs/zerolog"
)

// Environment keys read by the Loader.
const (
	EnvAccessToken     = "APIAI_ACCESS_TOKEN"
	EnvBaseURL         = "APIAI_BASE_URL"
	EnvVersion         = "APIAI_VERSION"
	EnvLanguage        = "APIAI_LANG"
	EnvTimeout         = "APIAI_TIMEOUT"
	EnvRateLimit       = "APIAI_RATE_LIMIT"
	EnvRateBurst       = "APIAI_RATE_BURST"
	EnvLogLevel        = "LOG_LEVEL"
	EnvTracingEnabled  = "APIAI_TRACING_ENABLED"
	EnvTracingExporter = "APIAI_TRACING_EXPORTER"
	EnvTracingEndpoint = "APIAI_TRACING_ENDPOINT"
	EnvTracingSampling = "APIAI_TRACING_SAMPLING"
)

// ParseString reads a string from environment variable or returns default value.
// Sensitive keys are logged without their value.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logDefault(logger, key, ok).Str("default", maskIfSensitive(key, defaultValue)).Msg("using default value")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Str("value", maskIfSensitive(key, v)).
		Bool("sensitive", isSensitiveKey(key)).
		Str("source", "environment").
		Msg("using environment variable")
	return v
}

// ParseInt reads an integer from environment variable or returns default value.
// Unparseable input falls back to the default with a warning.
func ParseInt(key string, defaultValue int) int {
	return parseWith(key, defaultValue, strconv.Atoi, func(e *zerolog.Event, k string, v int) *zerolog.Event {
		return e.Int(k, v)
	})
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	parse := func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
	return parseWith(key, defaultValue, parse, func(e *zerolog.Event, k string, v float64) *zerolog.Event {
		return e.Float64(k, v)
	})
}

// ParseDuration reads a duration in Go syntax ("5s") from environment variable.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseWith(key, defaultValue, time.ParseDuration, func(e *zerolog.Event, k string, v time.Duration) *zerolog.Event {
		return e.Dur(k, v)
	})
}

// ParseBool accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseWith(key, defaultValue, parseBool, func(e *zerolog.Event, k string, v bool) *zerolog.Event {
		return e.Bool(k, v)
	})
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

func parseWith[T any](key string, defaultValue T, parse func(string) (T, error), field func(*zerolog.Event, string, T) *zerolog.Event) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		field(logDefault(logger, key, ok), "default", defaultValue).Msg("using default value")
		return defaultValue
	}
	parsed, err := parse(strings.TrimSpace(v))
	if err != nil {
		field(logger.Warn().Str("key", key).Str("value", v), "default", defaultValue).
			Msg("invalid value in environment variable, using default")
		return defaultValue
	}
	field(logger.Debug().Str("key", key).Str("source", "environment"), "value", parsed).
		Msg("using environment variable")
	return parsed
}

func logDefault(logger zerolog.Logger, key string, present bool) *zerolog.Event {
	e := logger.Debug().Str("key", key).Str("source", "default")
	if present {
		e = e.Bool("empty", true)
	}
	return e
}

func maskIfSensitive(key, value string) string {
	if isSensitiveKey(key) {
		return MaskToken(value)
	}
	return value
}

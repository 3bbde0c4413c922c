// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// FileConfig is the on-disk YAML shape. Pointer fields distinguish "absent"
// from the zero value so the file only overrides what it sets.
type FileConfig struct {
	AccessToken *string            `yaml:"accessToken"`
	BaseURL     *string            `yaml:"baseURL"`
	Version     *string            `yaml:"version"`
	Lang        *string            `yaml:"lang"`
	Timeout     *string            `yaml:"timeout"`
	RateLimit   *RateLimitFileConf `yaml:"rateLimit"`
	LogLevel    *string            `yaml:"logLevel"`
	Tracing     *TracingFileConf   `yaml:"tracing"`
}

// RateLimitFileConf is the rateLimit section.
type RateLimitFileConf struct {
	PerSecond *float64 `yaml:"perSecond"`
	Burst     *int     `yaml:"burst"`
}

// TracingFileConf is the tracing section.
type TracingFileConf struct {
	Enabled      *bool    `yaml:"enabled"`
	Exporter     *string  `yaml:"exporter"`
	Endpoint     *string  `yaml:"endpoint"`
	SamplingRate *float64 `yaml:"samplingRate"`
}

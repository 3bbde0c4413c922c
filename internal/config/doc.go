// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the settings shared by the apiai command line tools.
//
// Precedence is environment over file over defaults. Files are YAML and are
// parsed strictly: unknown keys and trailing documents are rejected.
package config

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldService   = "service"
	FieldVersion   = "version"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Query fields
	FieldAction      = "action"
	FieldIntent      = "intent"
	FieldScore       = "score"
	FieldLang        = "lang"
	FieldStatusCode  = "status_code"
	FieldStatusClass = "status_class"
	FieldErrorKind   = "error_kind"
	FieldDuration    = "duration"

	// Network fields
	FieldBaseURL = "base_url"
	FieldPath    = "path"
	FieldListen  = "listen"
)

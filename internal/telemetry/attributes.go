// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the module.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Query attributes
	QueryLangKey       = "apiai.lang"
	QueryPayloadKey    = "apiai.payload"
	QueryActionKey     = "apiai.action"
	QueryScoreKey      = "apiai.score"
	QueryIncompleteKey = "apiai.action_incomplete"
	QueryStatusCodeKey = "apiai.status_code"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// RequestAttributes describes an outgoing query before it is sent.
// payload is "query" or "event".
func RequestAttributes(lang, payload string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(QueryLangKey, lang),
		attribute.String(QueryPayloadKey, payload),
	}
}

// ResultAttributes describes the decoded agent result.
func ResultAttributes(action string, score float64, incomplete bool, statusCode int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if action != "" {
		attrs = append(attrs, attribute.String(QueryActionKey, action))
	}
	return append(attrs,
		attribute.Float64(QueryScoreKey, score),
		attribute.Bool(QueryIncompleteKey, incomplete),
		attribute.Int(QueryStatusCodeKey, statusCode),
	)
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package apiai

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrTransport           = errors.New("apiai: transport failure")
	ErrDecode              = errors.New("apiai: response could not be decoded")
	ErrMissingToken        = errors.New("apiai: access token is required")
	ErrEmptyRequest        = errors.New("apiai: request has neither query nor event")
	ErrAmbiguousRequest    = errors.New("apiai: request has both query and event")
	ErrUnsupportedLanguage = errors.New("apiai: unsupported language")
	ErrUnsupportedMessage  = errors.New("apiai: unsupported message type")
	ErrMissingField        = errors.New("apiai: required field missing")
)

// maxErrorBody bounds the response excerpt kept on a DecodeError.
const maxErrorBody = 512

// TransportError reports a failure to complete the HTTP round trip:
// dial, TLS, timeout, cancellation or reading the body.
type TransportError struct {
	Operation string
	URL       string
	Err       error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("apiai: %s: transport failure", e.Operation)
	if e.URL != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.URL)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// DecodeError reports a response body that does not match the expected shape.
// Err holds the underlying parse failure (e.g. *json.SyntaxError).
type DecodeError struct {
	Status int    // HTTP status of the response, 0 when decoding outside a round trip
	Body   string // truncated excerpt of the offending body
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "apiai: decode response"
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches ErrDecode.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// StatusError is returned by Status.Err for a non-2xx status reported in the
// response body.
type StatusError struct {
	Code         int
	ErrorType    string
	ErrorDetails string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("apiai: agent status %d %s", e.Code, e.ErrorType)
	if e.ErrorDetails != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.ErrorDetails)
	}
	return msg
}

func truncateBody(b []byte) string {
	if len(b) <= maxErrorBody {
		return string(b)
	}
	return string(b[:maxErrorBody]) + "..."
}

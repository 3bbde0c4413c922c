// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package apiai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// webhookFlagDefault is the value of a webhook flag the service left out.
// The flags travel as the strings "true"/"false".
const webhookFlagDefault = "false"

// Response is the decoded reply of the query endpoint.
type Response struct {
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Lang      Language `json:"lang"`
	Result    Result   `json:"result"`
	Status    Status   `json:"status"`
	SessionID string   `json:"sessionId"`
}

// Result describes the matched intent and its fulfillment.
type Result struct {
	Source           string            `json:"source"`
	ResolvedQuery    string            `json:"resolvedQuery"`
	Action           string            `json:"action"`
	ActionIncomplete bool              `json:"actionIncomplete"`
	Parameters       map[string]string `json:"parameters"`
	Contexts         []Context         `json:"contexts"`
	Metadata         Metadata          `json:"metadata"`
	Fulfillment      Fulfillment       `json:"fulfillment"`
	Score            float64           `json:"score"`
}

// Metadata identifies the matched intent.
type Metadata struct {
	IntentID                  *string `json:"intentId,omitempty"`
	WebhookUsed               string  `json:"webhookUsed"`
	WebhookForSlotFillingUsed string  `json:"webhookForSlotFillingUsed"`
	IntentName                *string `json:"intentName,omitempty"`
}

// Fulfillment is the reply to present to the user.
type Fulfillment struct {
	Speech   string   `json:"speech"`
	Messages Messages `json:"messages,omitzero"`
}

// Status reports the outcome of the request as seen by the service.
type Status struct {
	Code         int     `json:"code"`
	ErrorType    string  `json:"errorType"`
	ErrorDetails *string `json:"errorDetails,omitempty"`
}

var (
	responseRequired    = []string{"id", "timestamp", "result", "status", "sessionId"}
	resultRequired      = []string{"source", "resolvedQuery", "action", "parameters", "metadata", "fulfillment", "score"}
	fulfillmentRequired = []string{"speech"}
	statusRequired      = []string{"code", "errorType"}
)

// DecodeResponse parses a query endpoint reply. Failures are *DecodeError.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &DecodeError{Body: truncateBody(data), Err: err}
	}
	return &resp, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Response) UnmarshalJSON(data []byte) error {
	if err := requireKeys(data, "response", responseRequired...); err != nil {
		return err
	}
	type plain Response
	p := plain{Lang: DefaultLanguage}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Response(p)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Result) UnmarshalJSON(data []byte) error {
	if err := requireKeys(data, "result", resultRequired...); err != nil {
		return err
	}
	type plain Result
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Contexts == nil {
		p.Contexts = []Context{}
	}
	*r = Result(p)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	if err := requireKeys(data, "metadata"); err != nil {
		return err
	}
	type plain Metadata
	p := plain{
		WebhookUsed:               webhookFlagDefault,
		WebhookForSlotFillingUsed: webhookFlagDefault,
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Metadata(p)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Fulfillment) UnmarshalJSON(data []byte) error {
	if err := requireKeys(data, "fulfillment", fulfillmentRequired...); err != nil {
		return err
	}
	type plain Fulfillment
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = Fulfillment(p)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	if err := requireKeys(data, "status", statusRequired...); err != nil {
		return err
	}
	type plain Status
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Status(p)
	return nil
}

// requireKeys checks that data is a JSON object carrying every key with a
// non-null value.
func requireKeys(data []byte, scope string, keys ...string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%s: %w", scope, err)
	}
	if fields == nil {
		return fmt.Errorf("%w: %s is null", ErrMissingField, scope)
	}
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || isJSONNull(v) {
			return fmt.Errorf("%w: %s.%s", ErrMissingField, scope, k)
		}
	}
	return nil
}

// Time parses the ISO-8601 timestamp.
func (r *Response) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.Timestamp)
}

// Param returns a result parameter.
func (r *Result) Param(name string) (string, bool) {
	v, ok := r.Parameters[name]
	return v, ok
}

// Intent returns the matched intent name, or "" when the service sent none.
func (m Metadata) Intent() string {
	if m.IntentName == nil {
		return ""
	}
	return *m.IntentName
}

// WebhookWasUsed reports whether the agent called its fulfillment webhook.
func (m Metadata) WebhookWasUsed() bool {
	return m.WebhookUsed == "true"
}

// Texts returns the speech of every text message in order.
func (f Fulfillment) Texts() []string {
	var out []string
	for _, m := range f.Messages {
		if t, ok := m.(TextMessage); ok {
			out = append(out, t.Speech)
		}
	}
	return out
}

// OK reports a 2xx status code.
func (s Status) OK() bool {
	return s.Code >= http.StatusOK && s.Code < http.StatusMultipleChoices
}

// Err returns nil for a 2xx status and a *StatusError otherwise.
func (s Status) Err() error {
	if s.OK() {
		return nil
	}
	e := &StatusError{Code: s.Code, ErrorType: s.ErrorType}
	if s.ErrorDetails != nil {
		e.ErrorDetails = *s.ErrorDetails
	}
	return e
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package apiai

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// MaxQueryLength is the service's documented limit for a text query.
// It is not enforced client side.
const MaxQueryLength = 256

// Payload is what a Request asks the agent to process: a Query or an Event.
type Payload interface {
	isPayload()
}

// Query is natural-language input.
type Query string

func (Query) isPayload() {}

// Event triggers an intent by event name instead of text.
// A nil Data map is sent as an explicit null.
type Event struct {
	Name string            `json:"name"`
	Data map[string]string `json:"data"`
}

func (Event) isPayload() {}

// Context is a conversational state token. Lifespan is the number of turns the
// context stays active; nil leaves it to the agent.
type Context struct {
	Name       string            `json:"name"`
	Parameters map[string]string `json:"parameters"`
	Lifespan   *int              `json:"lifespan,omitempty"`
}

// Lifespan is a convenience for building Context literals.
func Lifespan(turns int) *int {
	return &turns
}

// Request is a single query to the agent.
type Request struct {
	Payload   Payload
	SessionID string
	Lang      Language
	Contexts  []Context
}

// RequestOption customises a Request built by NewQueryRequest or NewEventRequest.
type RequestOption func(*Request)

// WithSessionID reuses an existing conversation session.
func WithSessionID(id string) RequestOption {
	return func(r *Request) {
		if id != "" {
			r.SessionID = id
		}
	}
}

// WithLanguage sets the request language.
func WithLanguage(l Language) RequestOption {
	return func(r *Request) { r.Lang = l }
}

// WithContexts sets the conversation contexts, preserving order.
func WithContexts(contexts ...Context) RequestOption {
	return func(r *Request) { r.Contexts = append([]Context(nil), contexts...) }
}

// NewSessionID returns a fresh canonical hyphenated UUID.
func NewSessionID() string {
	return uuid.NewString()
}

// NewQueryRequest builds a text query request with a fresh session id,
// English language and no contexts unless overridden.
func NewQueryRequest(text string, opts ...RequestOption) Request {
	return newRequest(Query(text), opts)
}

// NewEventRequest builds an event request with a fresh session id,
// English language and no contexts unless overridden.
func NewEventRequest(event Event, opts ...RequestOption) Request {
	return newRequest(event, opts)
}

func newRequest(p Payload, opts []RequestOption) Request {
	r := Request{
		Payload:   p,
		SessionID: NewSessionID(),
		Lang:      DefaultLanguage,
		Contexts:  []Context{},
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Validate reports a request the service cannot accept.
func (r Request) Validate() error {
	switch p := r.Payload.(type) {
	case nil:
		return ErrEmptyRequest
	case Event:
		if p.Name == "" {
			return fmt.Errorf("%w: event name is empty", ErrEmptyRequest)
		}
	case *Event:
		if p == nil || p.Name == "" {
			return fmt.Errorf("%w: event name is empty", ErrEmptyRequest)
		}
	}
	if !r.Lang.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, r.Lang)
	}
	return nil
}

type requestWire struct {
	Query     *string   `json:"query,omitempty"`
	Event     *Event    `json:"event,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	Lang      Language  `json:"lang"`
	Contexts  []Context `json:"contexts"`
}

// MarshalJSON implements json.Marshaler.
func (r Request) MarshalJSON() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	w := requestWire{
		SessionID: r.SessionID,
		Lang:      r.Lang,
		Contexts:  r.Contexts,
	}
	if w.Contexts == nil {
		w.Contexts = []Context{}
	}
	switch p := r.Payload.(type) {
	case Query:
		q := string(p)
		w.Query = &q
	case Event:
		w.Event = &p
	case *Event:
		w.Event = p
	default:
		return nil, fmt.Errorf("apiai: unsupported payload %T", p)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. Exactly one of query and event
// must be present.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w requestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Query != nil && w.Event != nil:
		return ErrAmbiguousRequest
	case w.Query != nil:
		r.Payload = Query(*w.Query)
	case w.Event != nil:
		r.Payload = *w.Event
	default:
		return ErrEmptyRequest
	}
	r.SessionID = w.SessionID
	r.Lang = w.Lang
	r.Contexts = w.Contexts
	if r.Contexts == nil {
		r.Contexts = []Context{}
	}
	return nil
}

// Text returns the query text, or "" for an event request.
func (r Request) Text() string {
	if q, ok := r.Payload.(Query); ok {
		return string(q)
	}
	return ""
}

// Event returns the event payload and whether the request carries one.
func (r Request) Event() (Event, bool) {
	switch p := r.Payload.(type) {
	case Event:
		return p, true
	case *Event:
		if p != nil {
			return *p, true
		}
	}
	return Event{}, false
}

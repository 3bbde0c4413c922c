// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fakeagent

import (
	"strings"
	"sync"

	"github.com/ManuGH/apiai"
	"github.com/google/uuid"
)

// FallbackIntent is reported when nothing matches.
const (
	FallbackIntent = "Default Fallback Intent"
	FallbackAction = "input.unknown"
	FallbackSpeech = "Sorry, I didn't get that."
)

// Intent is one canned conversation step.
type Intent struct {
	Name   string
	Action string

	// Phrases match the query text case-insensitively, ignoring trailing
	// punctuation. An exact match scores 1, a phrase found on word boundaries 0.75.
	Phrases []string
	// Events match the event name exactly.
	Events []string
	// InputContexts must all be active for the session.
	InputContexts []string

	// Speech may reference parameters as $name.
	Speech           string
	Messages         apiai.Messages
	Parameters       map[string]string
	OutputContexts   []apiai.Context
	ActionIncomplete bool
}

// DefaultIntents is the small agent served by "apiai mock".
func DefaultIntents() []Intent {
	return []Intent{
		{
			Name:    "Default Welcome Intent",
			Action:  "input.welcome",
			Phrases: []string{"hi", "hello", "hey"},
			Events:  []string{"WELCOME"},
			Speech:  "Hi! How are you doing?",
		},
		{
			Name:             "weather",
			Action:           "weather.ask",
			Phrases:          []string{"weather"},
			Speech:           "Which city?",
			OutputContexts:   []apiai.Context{{Name: "weather-followup", Parameters: map[string]string{}, Lifespan: apiai.Lifespan(2)}},
			ActionIncomplete: true,
		},
		{
			Name:          "weather - city",
			Action:        "weather.city",
			Phrases:       []string{"berlin", "paris", "tokyo"},
			InputContexts: []string{"weather-followup"},
			Speech:        "It is sunny.",
			Messages: apiai.Messages{
				apiai.TextMessage{Speech: "It is sunny."},
				apiai.ImageMessage{ImageURL: "https://example.com/sunny.png"},
			},
		},
		{
			Name:   "greet user",
			Action: "user.greet",
			Events: []string{"GREET"},
			Speech: "Hello $name!",
		},
	}
}

type match struct {
	intent *Intent
	score  float64
}

func (s *Server) answer(req apiai.Request) apiai.Response {
	active := s.sessions.advance(req.SessionID, req.Contexts)

	var (
		m        match
		resolved string
		params   = map[string]string{}
	)
	if ev, ok := req.Event(); ok {
		resolved = ev.Name
		m = s.matchEvent(ev.Name, active)
		for k, v := range ev.Data {
			params[k] = v
		}
	} else {
		resolved = req.Text()
		m = s.matchText(req.Text(), active)
	}

	result := apiai.Result{
		Source:        "agent",
		ResolvedQuery: resolved,
		Action:        FallbackAction,
		Parameters:    params,
		Contexts:      []apiai.Context{},
		Metadata: apiai.Metadata{
			WebhookUsed:               "false",
			WebhookForSlotFillingUsed: "false",
		},
		Fulfillment: apiai.Fulfillment{Speech: FallbackSpeech},
		Score:       m.score,
	}

	name := FallbackIntent
	if in := m.intent; in != nil {
		name = in.Name
		result.Action = in.Action
		result.ActionIncomplete = in.ActionIncomplete
		for k, v := range in.Parameters {
			if _, ok := params[k]; !ok {
				params[k] = v
			}
		}
		result.Fulfillment.Speech = expand(in.Speech, params)
		result.Fulfillment.Messages = in.Messages
		if len(in.OutputContexts) > 0 {
			s.sessions.activate(req.SessionID, in.OutputContexts)
			result.Contexts = append(result.Contexts, in.OutputContexts...)
		}
	}
	if len(result.Fulfillment.Messages) == 0 {
		result.Fulfillment.Messages = apiai.Messages{apiai.TextMessage{Speech: result.Fulfillment.Speech}}
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("intent:"+name)).String()
	result.Metadata.IntentID = &id
	result.Metadata.IntentName = &name

	return apiai.Response{
		ID:        uuid.NewString(),
		Timestamp: s.timestamp(),
		Lang:      req.Lang,
		Result:    result,
		Status:    apiai.Status{Code: 200, ErrorType: "success"},
		SessionID: req.SessionID,
	}
}

func (s *Server) matchEvent(name string, active map[string]bool) match {
	for i := range s.cfg.Intents {
		in := &s.cfg.Intents[i]
		if !contextsActive(in, active) {
			continue
		}
		for _, ev := range in.Events {
			if ev == name {
				return match{intent: in, score: 1}
			}
		}
	}
	return match{}
}

func (s *Server) matchText(text string, active map[string]bool) match {
	q := normalize(text)
	var best match
	if q == "" {
		return best
	}
	for i := range s.cfg.Intents {
		in := &s.cfg.Intents[i]
		if !contextsActive(in, active) {
			continue
		}
		for _, p := range in.Phrases {
			p = normalize(p)
			switch {
			case p == "":
			case p == q:
				return match{intent: in, score: 1}
			case best.score < 0.75 && containsWords(q, p):
				best = match{intent: in, score: 0.75}
			}
		}
	}
	return best
}

func contextsActive(in *Intent, active map[string]bool) bool {
	for _, name := range in.InputContexts {
		if !active[strings.ToLower(name)] {
			return false
		}
	}
	return true
}

// containsWords reports whether phrase occurs in text on word boundaries.
func containsWords(text, phrase string) bool {
	return strings.Contains(" "+strings.Join(strings.Fields(text), " ")+" ", " "+phrase+" ")
}

func normalize(s string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(s)), "?!.,")
}

func expand(speech string, params map[string]string) string {
	if len(params) == 0 || !strings.Contains(speech, "$") {
		return speech
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "$"+k, v)
	}
	return strings.NewReplacer(pairs...).Replace(speech)
}

// sessionStore tracks active output contexts per session. Each query uses up
// one turn of every context's lifespan.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]map[string]int
}

const defaultLifespan = 5

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]map[string]int)}
}

// advance merges request contexts, returns the set active for this turn and
// decrements every lifespan. Sessions without live contexts are dropped.
func (st *sessionStore) advance(session string, requested []apiai.Context) map[string]bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	ctxs := st.sessions[session]
	if ctxs == nil {
		ctxs = make(map[string]int, len(requested))
	}
	for _, c := range requested {
		ctxs[strings.ToLower(c.Name)] = lifespanOf(c)
	}

	active := make(map[string]bool, len(ctxs))
	for name, left := range ctxs {
		if left <= 0 {
			delete(ctxs, name)
			continue
		}
		active[name] = true
		if left == 1 {
			delete(ctxs, name)
		} else {
			ctxs[name] = left - 1
		}
	}
	st.store(session, ctxs)
	return active
}

func (st *sessionStore) activate(session string, contexts []apiai.Context) {
	st.mu.Lock()
	defer st.mu.Unlock()

	ctxs := st.sessions[session]
	if ctxs == nil {
		ctxs = make(map[string]int, len(contexts))
	}
	for _, c := range contexts {
		if n := lifespanOf(c); n > 0 {
			ctxs[strings.ToLower(c.Name)] = n
		}
	}
	st.store(session, ctxs)
}

// store must be called with mu held.
func (st *sessionStore) store(session string, ctxs map[string]int) {
	if len(ctxs) == 0 {
		delete(st.sessions, session)
		return
	}
	st.sessions[session] = ctxs
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func lifespanOf(c apiai.Context) int {
	if c.Lifespan != nil {
		return *c.Lifespan
	}
	return defaultLifespan
}

// SPDX-License-Identifier: MIT

// Package health serves liveness and readiness probes for the fake agent and
// probes a real agent for the ping command.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ManuGH/apiai"
	"github.com/ManuGH/apiai/internal/log"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency_ns,omitempty"`
}

// Report is the body of both probe endpoints.
type Report struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// CheckFunc adapts a function to Checker.
type CheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context) CheckResult
}

func (c CheckFunc) Name() string                          { return c.CheckName }
func (c CheckFunc) Check(ctx context.Context) CheckResult { return c.Fn(ctx) }

// Manager manages health and readiness checks
type Manager struct {
	version  string
	checkers []Checker
	now      func() time.Time
}

// NewManager creates a new health check manager
func NewManager(version string) *Manager {
	return &Manager{version: version, now: time.Now}
}

// RegisterChecker adds a health checker to the manager. Not safe to call
// once the manager is serving.
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// Evaluate runs every checker. Unhealthy wins over degraded; only unhealthy
// clears Ready.
func (m *Manager) Evaluate(ctx context.Context) Report {
	r := Report{
		Ready:     true,
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: m.now().UTC(),
	}
	if len(m.checkers) == 0 {
		return r
	}

	r.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, c := range m.checkers {
		res := c.Check(ctx)
		r.Checks[c.Name()] = res
		switch res.Status {
		case StatusUnhealthy:
			r.Ready = false
			r.Status = StatusUnhealthy
		case StatusDegraded:
			if r.Status == StatusHealthy {
				r.Status = StatusDegraded
			}
		}
	}
	return r
}

// ServeHealth answers the liveness probe: always 200 while the process runs.
// Component checks are included with ?verbose=true.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	var rep Report
	if verbose {
		rep = m.Evaluate(r.Context())
	} else {
		rep = Report{Ready: true, Status: StatusHealthy, Version: m.version, Timestamp: m.now().UTC()}
	}
	m.write(w, r, http.StatusOK, rep, "health")
}

// ServeReady answers the readiness probe: 503 when any check is unhealthy.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	rep := m.Evaluate(r.Context())
	code := http.StatusOK
	if !rep.Ready {
		code = http.StatusServiceUnavailable
	}
	m.write(w, r, code, rep, "readiness")
}

func (m *Manager) write(w http.ResponseWriter, r *http.Request, code int, rep Report, probe string) {
	logger := log.WithComponentFromContext(r.Context(), probe)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, probe+".encode_error").Msg("failed to encode probe response")
	}
	logger.Debug().
		Str(log.FieldEvent, probe+".checked").
		Str("status", string(rep.Status)).
		Bool("ready", rep.Ready).
		Msg("probe answered")
}

// AgentChecker sends one event to an agent and grades the answer.
type AgentChecker struct {
	client *apiai.Client
	event  string
	lang   apiai.Language
}

// NewAgentChecker probes with the given event name, typically "WELCOME".
func NewAgentChecker(client *apiai.Client, event string, lang apiai.Language) *AgentChecker {
	return &AgentChecker{client: client, event: event, lang: lang}
}

func (c *AgentChecker) Name() string { return "agent" }

// Check is unhealthy when the agent cannot be reached or answers garbage,
// degraded when it answers with a non-2xx status or without a matched intent.
func (c *AgentChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	resp, err := c.client.Trigger(ctx, apiai.Event{Name: c.event}, apiai.WithLanguage(c.lang))
	latency := time.Since(start)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Latency: latency}
	}
	if err := resp.Status.Err(); err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error(), Latency: latency}
	}
	if resp.Result.Score == 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "event " + c.event + " matched no intent",
			Latency: latency,
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "intent " + resp.Result.Metadata.Intent(),
		Latency: latency,
	}
}

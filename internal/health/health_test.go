// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ManuGH/apiai"
	"github.com/ManuGH/apiai/internal/fakeagent"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(name string, s Status) Checker {
	return CheckFunc{CheckName: name, Fn: func(context.Context) CheckResult { return CheckResult{Status: s} }}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		checks    []Checker
		want      Status
		wantReady bool
	}{
		{"no checks", nil, StatusHealthy, true},
		{"all healthy", []Checker{fixed("a", StatusHealthy)}, StatusHealthy, true},
		{"degraded stays ready", []Checker{fixed("a", StatusHealthy), fixed("b", StatusDegraded)}, StatusDegraded, true},
		{"unhealthy wins", []Checker{fixed("a", StatusUnhealthy), fixed("b", StatusDegraded)}, StatusUnhealthy, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v1")
			for _, c := range tt.checks {
				m.RegisterChecker(c)
			}
			rep := m.Evaluate(context.Background())
			assert.Equal(t, tt.want, rep.Status)
			assert.Equal(t, tt.wantReady, rep.Ready)
			assert.Len(t, rep.Checks, len(tt.checks))
			assert.Equal(t, "v1", rep.Version)
		})
	}
}

func TestServeProbes(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(fixed("agent", StatusUnhealthy))

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "liveness ignores components")

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var rep Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, StatusUnhealthy, rep.Status)

	rec = httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func newAgentClient(t *testing.T, intents []fakeagent.Intent, token string) *apiai.Client {
	t.Helper()
	nop := zerolog.Nop()
	srv := httptest.NewServer(fakeagent.New(fakeagent.Config{AccessToken: "tok", Intents: intents, Logger: &nop}))
	t.Cleanup(srv.Close)
	client, err := apiai.New(token, apiai.Options{BaseURL: srv.URL, HTTPClient: srv.Client(), Logger: &nop})
	require.NoError(t, err)
	return client
}

func TestAgentChecker(t *testing.T) {
	ctx := context.Background()

	res := NewAgentChecker(newAgentClient(t, fakeagent.DefaultIntents(), "tok"), "WELCOME", apiai.English).Check(ctx)
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, "intent Default Welcome Intent", res.Message)

	res = NewAgentChecker(newAgentClient(t, nil, "tok"), "WELCOME", apiai.English).Check(ctx)
	assert.Equal(t, StatusDegraded, res.Status)

	res = NewAgentChecker(newAgentClient(t, fakeagent.DefaultIntents(), "bad"), "WELCOME", apiai.English).Check(ctx)
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Contains(t, res.Error, "HTTP 401")
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fakeagent serves an in-process imitation of the API.ai query
// endpoint. It backs the "mock" command and the client integration tests.
package fakeagent

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/apiai"
	applog "github.com/ManuGH/apiai/internal/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxRequestBytes = 64 << 10

// Config configures a fake agent.
type Config struct {
	// AccessToken is the expected bearer token. Empty accepts any request.
	AccessToken string
	Intents     []Intent

	// RateLimit caps requests per RateWindow per client IP. 0 disables.
	RateLimit  int
	RateWindow time.Duration

	Now    func() time.Time
	Logger *zerolog.Logger
}

// Server is an http.Handler answering POST /query.
type Server struct {
	cfg      Config
	router   chi.Router
	logger   zerolog.Logger
	sessions *sessionStore
}

// New builds the handler.
func New(cfg Config) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	s := &Server{
		cfg:      cfg,
		sessions: newSessionStore(),
	}
	if cfg.Logger != nil {
		s.logger = *cfg.Logger
	} else {
		s.logger = applog.WithComponent("fakeagent")
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	if cfg.RateLimit > 0 {
		r.Use(httprate.Limit(
			cfg.RateLimit,
			cfg.RateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(cfg.RateWindow.Seconds())))
				s.writeStatus(w, http.StatusTooManyRequests, "too_many_requests", "Too many requests. Please try again later.")
			}),
		))
	}
	r.Post("/query", s.handleQuery)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeStatus(w, http.StatusNotFound, "not_found", "Unknown endpoint "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeStatus(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not supported")
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str(applog.FieldRequestID, middleware.GetReqID(r.Context())).
			Str(applog.FieldPath, r.URL.Path).
			Int(applog.FieldStatusCode, ww.Status()).
			Dur(applog.FieldDuration, time.Since(start)).
			Msg("fake agent request")
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.writeStatus(w, http.StatusUnauthorized, "unauthorized", "Authentication parameters missing")
		return
	}
	if r.URL.Query().Get("v") == "" {
		s.writeStatus(w, http.StatusBadRequest, "bad_request", "Missing protocol version parameter v")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		s.writeStatus(w, http.StatusBadRequest, "bad_request", "Cannot read request body")
		return
	}
	var req apiai.Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeStatus(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.writeStatus(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	resp := s.answer(req)
	s.logger.Info().
		Str(applog.FieldSessionID, req.SessionID).
		Str(applog.FieldIntent, resp.Result.Metadata.Intent()).
		Float64(applog.FieldScore, resp.Result.Score).
		Msg("query matched")
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.AccessToken == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == s.cfg.AccessToken
}

// errorBody mirrors what the real service returns on rejected requests: an
// envelope with status only.
type errorBody struct {
	ID        string       `json:"id"`
	Timestamp string       `json:"timestamp"`
	Status    apiai.Status `json:"status"`
}

func (s *Server) writeStatus(w http.ResponseWriter, code int, errorType, details string) {
	s.writeJSON(w, code, errorBody{
		ID:        uuid.NewString(),
		Timestamp: s.timestamp(),
		Status:    apiai.Status{Code: code, ErrorType: errorType, ErrorDetails: &details},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write response")
	}
}

func (s *Server) timestamp() string {
	return s.cfg.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

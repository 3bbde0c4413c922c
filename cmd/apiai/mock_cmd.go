// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/apiai/internal/fakeagent"
	"github.com/ManuGH/apiai/internal/health"
	applog "github.com/ManuGH/apiai/internal/log"
	"github.com/ManuGH/apiai/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type mockOptions struct {
	listen    string
	metrics   bool
	rateLimit int
}

func (a *app) mockCmd() *cobra.Command {
	var o mockOptions
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve a local fake agent",
		Long: `Serves a small canned agent under /v1/query so the other commands can be
tried without a real account. The expected bearer token is the configured
access token; with none configured every request is accepted. Probes are
served on /healthz and /readyz.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serveMock(cmd.Context(), o)
		},
	}
	cmd.Flags().StringVar(&o.listen, "listen", "127.0.0.1:8080", "listen address")
	cmd.Flags().BoolVar(&o.metrics, "metrics", false, "expose Prometheus metrics on /metrics")
	cmd.Flags().IntVar(&o.rateLimit, "rate-limit", 0, "requests per minute per client IP (0 disables)")
	return cmd
}

func (a *app) mockHandler(o mockOptions) http.Handler {
	logger := applog.WithComponent("fakeagent")
	intents := fakeagent.DefaultIntents()
	agent := fakeagent.New(fakeagent.Config{
		AccessToken: a.cfg.AccessToken,
		Intents:     intents,
		RateLimit:   o.rateLimit,
		RateWindow:  time.Minute,
		Logger:      &logger,
	})

	probes := health.NewManager(version.Version)
	probes.RegisterChecker(health.CheckFunc{
		CheckName: "intents",
		Fn: func(context.Context) health.CheckResult {
			if len(intents) == 0 {
				return health.CheckResult{Status: health.StatusDegraded, Message: "no intents loaded"}
			}
			return health.CheckResult{Status: health.StatusHealthy, Message: strconv.Itoa(len(intents)) + " intents"}
		},
	})

	r := chi.NewRouter()
	r.Get("/healthz", probes.ServeHealth)
	r.Get("/readyz", probes.ServeReady)
	r.Mount("/v1", agent)
	if o.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

func (a *app) serveMock(ctx context.Context, o mockOptions) error {
	ln, err := net.Listen("tcp", o.listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", o.listen, err)
	}
	srv := &http.Server{
		Handler:           a.mockHandler(o),
		ReadHeaderTimeout: 5 * time.Second,
	}

	addr := ln.Addr().String()
	a.logger.Info().Str(applog.FieldListen, addr).Bool("metrics", o.metrics).Msg("fake agent started")
	fmt.Fprintf(a.out, "fake agent listening, use --base-url http://%s/v1\n", addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

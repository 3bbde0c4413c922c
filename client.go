// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package apiai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	applog "github.com/ManuGH/apiai/internal/log"
	"github.com/ManuGH/apiai/internal/telemetry"
	"github.com/ManuGH/apiai/internal/version"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public API.ai v1 endpoint.
	DefaultBaseURL = "https://api.api.ai/v1"
	// DefaultVersion is the protocol version sent as the "v" query parameter.
	DefaultVersion = "20150910"

	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 4 << 20
	tracerName       = "github.com/ManuGH/apiai"
)

// Options configures a Client. The zero value uses the public endpoint.
type Options struct {
	BaseURL   string
	Version   string
	Timeout   time.Duration // ignored when HTTPClient is set
	UserAgent string

	// HTTPClient replaces the default instrumented client.
	HTTPClient *http.Client

	// RateLimit > 0 throttles outgoing queries client side. Disabled by default.
	RateLimit      rate.Limit
	RateLimitBurst int

	Logger         *zerolog.Logger
	TracerProvider trace.TracerProvider
}

// Client sends queries to an agent. It holds no per-call state and is safe for
// concurrent use.
type Client struct {
	accessToken string
	baseURL     string
	version     string
	queryURL    string
	route       string
	userAgent   string
	http        *http.Client
	limiter     *rate.Limiter
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// New creates a Client for the agent identified by accessToken.
func New(accessToken string, opts Options) (*Client, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, ErrMissingToken
	}
	opts = normalizeOptions(opts)

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("apiai: invalid base URL: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("apiai: invalid base URL %q: scheme and host required", opts.BaseURL)
	}
	base.User = nil
	base.RawQuery = ""
	base.Fragment = ""
	base.Path = strings.TrimRight(base.Path, "/") + "/query"

	q := url.Values{}
	q.Set("v", opts.Version)
	base.RawQuery = q.Encode()

	c := &Client{
		accessToken: accessToken,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		version:     opts.Version,
		queryURL:    base.String(),
		route:       base.Path,
		userAgent:   opts.UserAgent,
		http:        opts.HTTPClient,
	}
	if c.http == nil {
		c.http = newHTTPClient(opts)
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(opts.RateLimit, opts.RateLimitBurst)
	}
	if opts.Logger != nil {
		c.logger = *opts.Logger
	} else {
		c.logger = applog.WithComponent("apiai")
	}
	if opts.TracerProvider != nil {
		c.tracer = opts.TracerProvider.Tracer(tracerName)
	} else {
		c.tracer = telemetry.Tracer(tracerName)
	}
	return c, nil
}

func normalizeOptions(opts Options) Options {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimSpace(opts.BaseURL)
	if strings.TrimSpace(opts.Version) == "" {
		opts.Version = DefaultVersion
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = version.UserAgent()
	}
	if opts.RateLimit > 0 && opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 1
	}
	return opts
}

func newHTTPClient(opts Options) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	var otelOpts []otelhttp.Option
	if opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: otelhttp.NewTransport(transport, otelOpts...),
	}
}

// BaseURL returns the configured endpoint root.
func (c *Client) BaseURL() string { return c.baseURL }

// Version returns the protocol version sent with every query.
func (c *Client) Version() string { return c.version }

// Ask sends a text query.
func (c *Client) Ask(ctx context.Context, text string, opts ...RequestOption) (*Response, error) {
	return c.Query(ctx, NewQueryRequest(text, opts...))
}

// Trigger sends an event.
func (c *Client) Trigger(ctx context.Context, event Event, opts ...RequestOption) (*Response, error) {
	return c.Query(ctx, NewEventRequest(event, opts...))
}

// Query performs one POST to the query endpoint and decodes the reply.
// A blank SessionID is replaced by a fresh one. The call is not retried.
//
// Failures to reach the service or read its reply are *TransportError; a reply
// that does not decode is *DecodeError. A non-2xx status inside a decoded reply
// is not an error here; see Status.Err.
func (c *Client) Query(ctx context.Context, req Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req.SessionID == "" {
		req.SessionID = NewSessionID()
	}
	payload := payloadKind(req.Payload)

	ctx, span := c.tracer.Start(ctx, "apiai.query", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(telemetry.RequestAttributes(req.Lang.String(), payload)...)

	logger := applog.WithContext(applog.ContextWithSessionID(ctx, req.SessionID), c.logger)

	fail := func(kind string, err error) error {
		recordError(kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(telemetry.ErrorAttributes(kind)...)
		logger.Warn().
			Err(err).
			Str(applog.FieldEvent, "apiai.query.failed").
			Str(applog.FieldErrorKind, kind).
			Msg("query failed")
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fail(errorKindEncode, fmt.Errorf("apiai: encode request: %w", err))
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fail(errorKindTransport, &TransportError{Operation: "rate limit", URL: c.queryURL, Err: err})
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryURL, bytes.NewReader(body))
	if err != nil {
		return nil, fail(errorKindTransport, &TransportError{Operation: "build request", URL: c.queryURL, Err: err})
	}
	c.applyHeaders(httpReq)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		recordRequestMetrics(payload, 0, time.Since(start), err)
		return nil, fail(errorKindTransport, &TransportError{Operation: "query", URL: c.queryURL, Err: err})
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	duration := time.Since(start)
	recordRequestMetrics(payload, resp.StatusCode, duration, err)
	span.SetAttributes(telemetry.HTTPAttributes(http.MethodPost, c.route, c.queryURL, resp.StatusCode)...)
	if err != nil {
		return nil, fail(errorKindTransport, &TransportError{Operation: "read response", URL: c.queryURL, Err: err})
	}
	if len(data) > maxResponseBytes {
		return nil, fail(errorKindDecode, &DecodeError{
			Status: resp.StatusCode,
			Body:   truncateBody(data),
			Err:    fmt.Errorf("response exceeds %d bytes", maxResponseBytes),
		})
	}

	out, err := DecodeResponse(data)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Status = resp.StatusCode
		}
		return nil, fail(errorKindDecode, err)
	}

	span.SetAttributes(telemetry.ResultAttributes(out.Result.Action, out.Result.Score, out.Result.ActionIncomplete, out.Status.Code)...)
	if out.Status.OK() {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, out.Status.ErrorType)
	}

	logger.Debug().
		Str(applog.FieldEvent, "apiai.query").
		Str(applog.FieldAction, out.Result.Action).
		Str(applog.FieldIntent, out.Result.Metadata.Intent()).
		Float64(applog.FieldScore, out.Result.Score).
		Int(applog.FieldStatusCode, out.Status.Code).
		Str(applog.FieldStatusClass, statusClass(nil, resp.StatusCode)).
		Dur(applog.FieldDuration, duration).
		Msg("query answered")

	return out, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

func payloadKind(p Payload) string {
	switch p.(type) {
	case Query:
		return "query"
	case Event, *Event:
		return "event"
	default:
		return "none"
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package apiai

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"
)

const testToken = "0123456789abcdef"

// capture records the last request seen by a test server.
type capture struct {
	mu     sync.Mutex
	req    *http.Request
	body   []byte
	status int
	reply  string
}

func (c *capture) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.req = r
	c.body = body
	status, reply := c.status, c.reply
	c.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	if reply == "" {
		reply = sampleResponse
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, reply)
}

func (c *capture) last() (*http.Request, []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.req, c.body
}

func newTestClient(t *testing.T, c *capture, opts Options) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	t.Cleanup(srv.Close)

	opts.BaseURL = srv.URL + "/v1"
	if opts.HTTPClient == nil {
		opts.HTTPClient = srv.Client()
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	client, err := New(testToken, opts)
	require.NoError(t, err)
	return client, srv
}

func TestNew(t *testing.T) {
	_, err := New("", Options{})
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = New("   ", Options{})
	assert.ErrorIs(t, err, ErrMissingToken)

	c, err := New("token", Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultVersion, c.Version())
	assert.Equal(t, "https://api.api.ai/v1/query?v=20150910", c.queryURL)
	assert.Equal(t, 30*time.Second, c.http.Timeout)
	assert.Nil(t, c.limiter)

	c, err = New("token", Options{BaseURL: "http://localhost:8080/api/", Version: "20170712"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/query?v=20170712", c.queryURL)

	for _, bad := range []string{"::", "ftp://host", "/relative"} {
		_, err = New("token", Options{BaseURL: bad})
		assert.Error(t, err, bad)
	}
}

func TestQuery_SendsRequest(t *testing.T) {
	c := &capture{}
	client, _ := newTestClient(t, c, Options{UserAgent: "apiai-test/1"})

	req := NewQueryRequest("hello moto", WithSessionID("12345"))
	resp, err := client.Query(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Hi Sam! Nice to meet you!", resp.Result.Fulfillment.Speech)

	got, body := c.last()
	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/v1/query", got.URL.Path)
	assert.Equal(t, "20150910", got.URL.Query().Get("v"))
	assert.Equal(t, "Bearer "+testToken, got.Header.Get("Authorization"))
	assert.Equal(t, "application/json; charset=utf-8", got.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, "apiai-test/1", got.Header.Get("User-Agent"))
	assert.Equal(t, `{"query":"hello moto","sessionId":"12345","lang":"en","contexts":[]}`, string(body))
}

func TestQuery_FillsBlankSession(t *testing.T) {
	c := &capture{}
	client, _ := newTestClient(t, c, Options{})

	_, err := client.Query(context.Background(), Request{Payload: Query("hi")})
	require.NoError(t, err)

	_, body := c.last()
	assert.Contains(t, string(body), `"sessionId":"`)
	assert.NotContains(t, string(body), `"sessionId":""`)
}

func TestAskAndTrigger(t *testing.T) {
	c := &capture{}
	client, _ := newTestClient(t, c, Options{})

	_, err := client.Ask(context.Background(), "hi", WithLanguage(French), WithSessionID("s"))
	require.NoError(t, err)
	_, body := c.last()
	assert.Equal(t, `{"query":"hi","sessionId":"s","lang":"fr","contexts":[]}`, string(body))

	_, err = client.Trigger(context.Background(), Event{Name: "WELCOME"}, WithSessionID("s"))
	require.NoError(t, err)
	_, body = c.last()
	assert.Equal(t, `{"event":{"name":"WELCOME","data":null},"sessionId":"s","lang":"en","contexts":[]}`, string(body))
}

func TestQuery_EmptyRequestIsNotSent(t *testing.T) {
	c := &capture{}
	client, _ := newTestClient(t, c, Options{})
	before := testutil.ToFloat64(requestErrors.WithLabelValues(errorKindEncode))

	_, err := client.Query(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyRequest)
	assert.NotErrorIs(t, err, ErrTransport)

	got, _ := c.last()
	assert.Nil(t, got, "no request must reach the server")
	assert.Equal(t, before+1, testutil.ToFloat64(requestErrors.WithLabelValues(errorKindEncode)))
}

func TestQuery_ErrorStatusInBody(t *testing.T) {
	reply := strings.Replace(sampleResponse, `"code": 200,
    "errorType": "success"`, `"code": 206,
    "errorType": "partial_content",
    "errorDetails": "Webhook call failed"`, 1)
	c := &capture{status: http.StatusOK, reply: reply}
	client, _ := newTestClient(t, c, Options{})

	resp, err := client.Query(context.Background(), NewQueryRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, 206, resp.Status.Code)
	require.NotNil(t, resp.Status.ErrorDetails)
	assert.Equal(t, "Webhook call failed", *resp.Status.ErrorDetails)
}

func TestQuery_HTTPErrorWithFullBodyIsNotAnError(t *testing.T) {
	reply := strings.Replace(sampleResponse, `"code": 200,
    "errorType": "success"`, `"code": 400,
    "errorType": "bad_request"`, 1)
	c := &capture{status: http.StatusBadRequest, reply: reply}
	client, _ := newTestClient(t, c, Options{})

	resp, err := client.Query(context.Background(), NewQueryRequest("hi"))
	require.NoError(t, err)
	assert.False(t, resp.Status.OK())

	var se *StatusError
	require.True(t, errors.As(resp.Status.Err(), &se))
	assert.Equal(t, "bad_request", se.ErrorType)
}

func TestQuery_DecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reply  string
	}{
		{"status only", http.StatusUnauthorized, `{"id":"x","timestamp":"t","status":{"code":401,"errorType":"unauthorized"}}`},
		{"html", http.StatusBadGateway, `<html>bad gateway</html>`},
		{"truncated", http.StatusOK, sampleResponse[:100]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &capture{status: tt.status, reply: tt.reply}
			client, _ := newTestClient(t, c, Options{})
			before := testutil.ToFloat64(requestErrors.WithLabelValues(errorKindDecode))

			_, err := client.Query(context.Background(), NewQueryRequest("hi"))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)
			assert.NotErrorIs(t, err, ErrTransport)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.status, de.Status)
			assert.Equal(t, tt.reply, de.Body)
			assert.Equal(t, before+1, testutil.ToFloat64(requestErrors.WithLabelValues(errorKindDecode)))
		})
	}
}

func TestQuery_OversizedBody(t *testing.T) {
	c := &capture{reply: `{"id":"` + strings.Repeat("x", maxResponseBytes) + `"}`}
	client, _ := newTestClient(t, c, Options{})

	_, err := client.Query(context.Background(), NewQueryRequest("hi"))
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Contains(t, de.Error(), "exceeds")
	assert.LessOrEqual(t, len(de.Body), maxErrorBody+3)
}

func TestQuery_TransportErrors(t *testing.T) {
	t.Run("server down", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		client, err := New(testToken, Options{BaseURL: url, Timeout: time.Second})
		require.NoError(t, err)
		before := testutil.ToFloat64(requestErrors.WithLabelValues(errorKindTransport))

		_, err = client.Query(context.Background(), NewQueryRequest("hi"))
		assert.ErrorIs(t, err, ErrTransport)
		assert.NotErrorIs(t, err, ErrDecode)
		assert.NotContains(t, err.Error(), testToken)

		var te *TransportError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, "query", te.Operation)
		assert.Equal(t, before+1, testutil.ToFloat64(requestErrors.WithLabelValues(errorKindTransport)))
	})

	t.Run("canceled", func(t *testing.T) {
		client, _ := newTestClient(t, &capture{}, Options{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Query(ctx, NewQueryRequest("hi"))
		assert.ErrorIs(t, err, ErrTransport)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("timeout", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-block:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(block)

		client, err := New(testToken, Options{BaseURL: srv.URL, HTTPClient: &http.Client{Timeout: 50 * time.Millisecond}})
		require.NoError(t, err)

		_, err = client.Query(context.Background(), NewQueryRequest("hi"))
		assert.ErrorIs(t, err, ErrTransport)
	})
}

func TestQuery_RateLimit(t *testing.T) {
	client, _ := newTestClient(t, &capture{}, Options{RateLimit: rate.Every(time.Hour), RateLimitBurst: 1})
	require.NotNil(t, client.limiter)

	_, err := client.Query(context.Background(), NewQueryRequest("first"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = client.Query(ctx, NewQueryRequest("second"))
	assert.ErrorIs(t, err, ErrTransport)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "rate limit", te.Operation)
}

func TestQuery_Metrics(t *testing.T) {
	client, _ := newTestClient(t, &capture{}, Options{})
	counter := requestTotal.WithLabelValues("event", "2xx")
	before := testutil.ToFloat64(counter)

	_, err := client.Trigger(context.Background(), Event{Name: "WELCOME"})
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestQuery_Span(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	client, _ := newTestClient(t, &capture{}, Options{TracerProvider: tp})
	_, err := client.Query(context.Background(), NewQueryRequest("hi", WithLanguage(Italian)))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "apiai.query", span.Name)
	assert.Equal(t, codes.Ok, span.Status.Code)

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "it", attrs["apiai.lang"].AsString())
	assert.Equal(t, "query", attrs["apiai.payload"].AsString())
	assert.Equal(t, "greetings", attrs["apiai.action"].AsString())
	assert.Equal(t, int64(200), attrs["apiai.status_code"].AsInt64())
	assert.Equal(t, client.BaseURL()+"/query?v="+client.Version(), attrs["http.url"].AsString())
	assert.Equal(t, "/v1/query", attrs["http.route"].AsString())
}

func TestQuery_SpanRecordsFailure(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	client, _ := newTestClient(t, &capture{reply: "nope"}, Options{TracerProvider: tp})
	_, err := client.Query(context.Background(), NewQueryRequest("hi"))
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestQuery_LogsWithoutToken(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	client, _ := newTestClient(t, &capture{}, Options{Logger: &logger})

	_, err := client.Query(context.Background(), NewQueryRequest("hi", WithSessionID("sess-1")))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"event":"apiai.query"`)
	assert.Contains(t, out, `"session_id":"sess-1"`)
	assert.Contains(t, out, `"action":"greetings"`)
	assert.NotContains(t, out, testToken)
}

func TestQuery_ConcurrentUse(t *testing.T) {
	client, _ := newTestClient(t, &capture{}, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Ask(context.Background(), "hi")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestQuery_NoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := httptest.NewServer(http.HandlerFunc((&capture{}).handler))
	defer srv.Close()

	nop := zerolog.Nop()
	client, err := New(testToken, Options{
		BaseURL:    srv.URL,
		HTTPClient: &http.Client{Transport: &http.Transport{DisableKeepAlives: true}},
		Logger:     &nop,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := client.Ask(context.Background(), "hi")
		require.NoError(t, err)
	}
}

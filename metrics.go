// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package apiai

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apiai_client_request_total",
			Help: "Total number of query requests sent to the agent",
		},
		[]string{"payload", "status_class"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apiai_client_request_duration_seconds",
			Help:    "Round-trip duration of query requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 8),
		},
		[]string{"payload", "status_class"},
	)
	requestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apiai_client_request_errors_total",
			Help: "Number of query requests that failed, by error kind",
		},
		[]string{"kind"},
	)
)

const (
	errorKindEncode    = "encode"
	errorKindTransport = "transport"
	errorKindDecode    = "decode"
)

func statusClass(err error, status int) string {
	if err != nil && status == 0 {
		return "error"
	}
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status > 0:
		return "1xx"
	}
	return "unknown"
}

func recordRequestMetrics(payload string, status int, duration time.Duration, err error) {
	class := statusClass(err, status)
	requestTotal.WithLabelValues(payload, class).Inc()
	requestDuration.WithLabelValues(payload, class).Observe(duration.Seconds())
}

func recordError(kind string) {
	requestErrors.WithLabelValues(kind).Inc()
}

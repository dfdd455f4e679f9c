package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_http_requests_total",
		Help: "HTTP requests by method, route template and status code",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "custody_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route template",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	authFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_auth_failures_total",
		Help: "Rejected authentication attempts by reason",
	}, []string{"reason"})
)

package jsonrpc

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for the requests counter.
const (
	outcomeOK        = "ok"
	outcomeRPCError  = "rpc_error"
	outcomeTransport = "transport_error"
)

// TransportMetrics contains the Prometheus metrics recorded by
// MetricsMiddleware.
type TransportMetrics struct {
	// RequestsTotal counts calls by method and outcome
	// (ok, rpc_error, transport_error).
	RequestsTotal *prometheus.CounterVec
	// RequestDuration observes round-trip duration by method.
	RequestDuration *prometheus.HistogramVec
}

// NewTransportMetrics initializes and registers the transport metrics.
// A nil registry uses the default registerer.
func NewTransportMetrics(registry prometheus.Registerer) *TransportMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &TransportMetrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jsonrpc_client_requests_total",
			Help: "The total number of JSON-RPC calls by method and outcome",
		}, []string{"method", "outcome"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jsonrpc_client_request_duration_seconds",
			Help:    "JSON-RPC call round-trip duration by method",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// MetricsMiddleware records request counts and durations for every call
// passing through the transport.
func MetricsMiddleware(metrics *TransportMetrics) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, req Request) (Response, error) {
			start := time.Now()
			res, err := next.SendRequest(ctx, req)
			metrics.RequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

			outcome := outcomeOK
			switch {
			case err != nil:
				outcome = outcomeTransport
			case res.Payload.IsError():
				outcome = outcomeRPCError
			}
			metrics.RequestsTotal.WithLabelValues(req.Method, outcome).Inc()

			return res, err
		})
	}
}

package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	activeRequestsMetric = "http.server.active_requests"
	durationMsMetric     = "http.server.request.duration.ms"
)

func passThrough(next http.Handler) http.Handler { return next }

// ActiveRequests counts requests from the moment they enter the router until
// the handler returns. The route is not known on entry, so the series is keyed
// by method and host only.
func ActiveRequests(meter metric.Meter) func(next http.Handler) http.Handler {
	inFlight, err := meter.Int64UpDownCounter(activeRequestsMetric,
		metric.WithDescription("Number of HTTP requests currently being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return passThrough
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			set := metric.WithAttributeSet(attribute.NewSet(
				attribute.String("http.request.method", r.Method),
				attribute.String("server.address", r.Host),
			))

			inFlight.Add(ctx, 1, set)
			defer inFlight.Add(ctx, -1, set)

			next.ServeHTTP(w, r)
		})
	}
}

// RequestDurationMs records request latency in milliseconds alongside the
// seconds-based histogram emitted by otelhttp.
func RequestDurationMs(meter metric.Meter) func(next http.Handler) http.Handler {
	hist, err := meter.Float64Histogram(durationMsMetric,
		metric.WithDescription("HTTP server request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return passThrough
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			elapsed := float64(time.Since(start)) / float64(time.Millisecond)
			hist.Record(r.Context(), elapsed, metric.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", RoutePattern(r)),
				attribute.Int("http.response.status_code", statusOf(ww)),
				attribute.String("server.address", r.Host),
			))
		})
	}
}

// statusOf reports 200 for handlers that wrote a body without an explicit
// status, which is what net/http sends.
func statusOf(ww chimiddleware.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

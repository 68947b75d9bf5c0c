package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mrops-br/catalog-api/internal/infrastructure/telemetry"
)

// RoutePattern returns the chi route pattern matched for r. Before chi has
// routed the request it falls back to the raw URL path.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// HTTPRouteContext makes the route pattern available to every log record
// written while the request is served.
func HTTPRouteContext() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// chi fills the pattern in after this middleware runs, so resolve lazily.
			ctx := telemetry.WithHTTPRouteFunc(r.Context(), func() string { return RoutePattern(r) })
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const unknownRoute = "<unknown>"

// routePattern returns the chi pattern matched for r, e.g.
// /api/products/{id}/stock. It is only set after routing, so callers read
// it once the next handler has returned.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return unknownRoute
	}
	return rctx.RoutePattern()
}

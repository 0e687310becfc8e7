package testutil

import (
	"net/http"
	"time"

	"eam/pkg/requestcontext"
)

// WithPrincipal attaches an authenticated caller to the request, as the
// auth middleware would after validating a token.
func WithPrincipal(req *http.Request, username, role string) *http.Request {
	ctx := requestcontext.WithPrincipal(req.Context(), requestcontext.Principal{Username: username, Role: role})
	return req.WithContext(ctx)
}

// AsPrincipal is WithPrincipal as router middleware, for handler tests that
// mount routes behind role checks.
func AsPrincipal(username, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, WithPrincipal(r, username, role))
		})
	}
}

// WithRequestTime pins the request's "now".
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

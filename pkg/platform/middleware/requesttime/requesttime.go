// Package requesttime pins one "now" per request so every timestamp written by
// a single operation (mutation, signature, ledger entry) agrees.
package requesttime

import (
	"net/http"
	"time"

	"fitgap/pkg/requestcontext"
)

// Middleware captures the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

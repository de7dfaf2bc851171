package web

import (
	"net/http"

	"github.com/JonMunkholm/csvstandard/internal/core"
	mw "github.com/JonMunkholm/csvstandard/internal/web/middleware"
)

// requestMetadata puts the client IP into the request context so the
// service can log who started a session. Runs after TrustedRealIP.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithClientIP(r.Context(), mw.ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package middleware

import (
	"net/http"
	"strings"
)

// CaseInsensitiveMiddleware lower-cases incoming request paths so carrier
// codes and route segments work regardless of case (e.g. /API/carriers/DHL
// and /api/carriers/dhl route identically). The API has no static asset
// tree to exempt, so every path is rewritten.
func CaseInsensitiveMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = strings.ToLower(r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCaseInsensitiveMiddlewareLowercasesPath(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Path
	})
	req := httptest.NewRequest(http.MethodGet, "/API/Carriers/DHL/Pickup-Points", nil)
	CaseInsensitiveMiddleware(next).ServeHTTP(httptest.NewRecorder(), req)
	if seen != "/api/carriers/dhl/pickup-points" {
		t.Errorf("path = %q, want lower-cased", seen)
	}
}

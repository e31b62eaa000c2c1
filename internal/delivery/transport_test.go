package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPClientDoRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("Authorization header = %q, want Bearer token", got)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(TransportConfig{BaseURL: srv.URL})
	resp, err := client.Do(context.Background(), Request{
		Method:  http.MethodPost,
		Path:    "/parcels",
		Headers: map[string]string{"Authorization": "Bearer token"},
		Body:    []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("StatusCode = %d, want 201", resp.StatusCode)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Fatalf("Body = %q", resp.Body)
	}
}

func TestHTTPClientDoNeverErrorsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(TransportConfig{BaseURL: srv.URL})
	resp, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"})
	if err != nil {
		t.Fatalf("Do() returned a Go error for a 429 response: %v", err)
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("StatusCode = %d, want 429", resp.StatusCode)
	}
}

func TestHTTPClientDoPassesThroughBinaryBody(t *testing.T) {
	payload := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0x01, 0x02} // %PDF + binary bytes
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	client := NewHTTPClient(TransportConfig{BaseURL: srv.URL})
	resp, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/label.pdf"})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if string(resp.Body) != string(payload) {
		t.Fatalf("binary body was mangled in transit")
	}
}

func TestURLJoinsRelativePaths(t *testing.T) {
	c := NewHTTPClient(TransportConfig{BaseURL: "https://api.example.com/v1/"})
	if got, want := c.url("/parcels"), "https://api.example.com/v1/parcels"; got != want {
		t.Errorf("url(/parcels) = %q, want %q", got, want)
	}
}

func TestURLPassesThroughAbsoluteURLs(t *testing.T) {
	c := NewHTTPClient(TransportConfig{BaseURL: "https://api.example.com/v1/"})
	abs := "https://other-host.example.com/label.pdf"
	if got := c.url(abs); got != abs {
		t.Errorf("url(%q) = %q, want unchanged", abs, got)
	}
}

func TestRedactHeadersMasksSensitiveKeysCaseInsensitively(t *testing.T) {
	headers := map[string]string{
		"Authorization": "Bearer secret",
		"X-Api-Key":     "key123",
		"Api-Key":       "key456",
		"Password":      "hunter2",
		"Token":         "tok-abc",
		"Content-Type":  "application/json",
	}
	redacted := redactHeaders(headers)
	for _, k := range []string{"Authorization", "X-Api-Key", "Api-Key", "Password", "Token"} {
		if redacted[k] != "***REDACTED***" {
			t.Errorf("%s not redacted: %q", k, redacted[k])
		}
	}
	if redacted["Content-Type"] != "application/json" {
		t.Errorf("Content-Type was redacted, want unchanged")
	}
}

func TestTruncateBodyHandlesBinaryAndLongBodies(t *testing.T) {
	if got := truncateBody(nil); got != "<empty>" {
		t.Errorf("truncateBody(nil) = %q, want <empty>", got)
	}
	if got := truncateBody([]byte{0x00, 0x01, 0x02}); !strings.HasPrefix(got, "<binary") {
		t.Errorf("truncateBody(binary) = %q, want a <binary...> placeholder", got)
	}
	long := strings.Repeat("a", bodyPreviewLimit+100)
	got := truncateBody([]byte(long))
	if !strings.Contains(got, "bytes total") {
		t.Errorf("truncateBody(long) did not indicate truncation: %q", got[:50])
	}
}

func TestBodyPreviewLimitIs200Bytes(t *testing.T) {
	if bodyPreviewLimit != 200 {
		t.Errorf("bodyPreviewLimit = %d, want 200", bodyPreviewLimit)
	}
}

func TestFullBodyNeverTruncatesPrintableText(t *testing.T) {
	long := strings.Repeat("a", bodyPreviewLimit+100)
	got := fullBody([]byte(long))
	if got != long {
		t.Errorf("fullBody() truncated a printable body, want the full %d bytes back", len(long))
	}
}

func TestFullBodyStillMasksBinaryPayloads(t *testing.T) {
	if got := fullBody([]byte{0x00, 0x01, 0x02}); !strings.HasPrefix(got, "<binary") {
		t.Errorf("fullBody(binary) = %q, want a <binary...> placeholder", got)
	}
}

package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// sensitiveHeaders is matched case-insensitively when redacting request/
// response headers for debug logging.
var sensitiveHeaders = map[string]bool{
	"authorization":     true,
	"api-key":           true,
	"x-api-key":         true,
	"x-accounting-code": true,
	"password":          true,
	"token":             true,
	"cookie":            true,
	"set-cookie":        true,
}

const bodyPreviewLimit = 200

// TransportConfig configures an HTTPClient. Debug logs method/URL/status and
// a body preview truncated to bodyPreviewLimit bytes; with DebugFull also set,
// it logs redacted request headers and the full body instead of the preview.
type TransportConfig struct {
	BaseURL   string
	Timeout   time.Duration
	Debug     bool
	DebugFull bool
}

// HTTPClient is the transport abstraction every carrier adapter is built
// on: it owns header redaction, body-preview truncation for logging, and
// raw-byte ("arraybuffer") response handling so binary bodies (PDF labels)
// pass through untouched alongside JSON/XML ones.
type HTTPClient struct {
	cfg    TransportConfig
	client *http.Client
}

func NewHTTPClient(cfg TransportConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Request describes one outgoing call. Body is pre-encoded by the caller
// (JSON marshal, XML marshal, or raw bytes) so the transport stays format-
// agnostic.
type Request struct {
	Method  string
	Path    string // joined with BaseURL unless it is already absolute
	Headers map[string]string
	Body    []byte
}

// Response carries the response back as raw bytes regardless of content
// type — the "arraybuffer" behavior that lets a PDF label and a JSON fault
// body flow through the same code path.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

func (c *HTTPClient) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Do executes one HTTP call and returns the raw response. It never returns
// an error for non-2xx status codes — callers/translators decide how to
// turn a status and body into a *CarrierError, since the fault-body shape
// is carrier-specific.
func (c *HTTPClient) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req.Path), bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("delivery: building request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	c.logRequest(req)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("delivery: transport: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("delivery: reading response body: %w", err)
	}

	out := &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}
	c.logResponse(out)
	return out, nil
}

func (c *HTTPClient) logRequest(req Request) {
	if !c.cfg.Debug {
		return
	}
	fmt.Printf("📡 %s %s\n", req.Method, c.url(req.Path))
	if c.cfg.DebugFull {
		fmt.Printf("   headers: %v\n", redactHeaders(req.Headers))
		if len(req.Body) > 0 {
			fmt.Printf("   body: %s\n", fullBody(req.Body))
		}
		return
	}
	if len(req.Body) > 0 {
		fmt.Printf("   body: %s\n", truncateBody(req.Body))
	}
}

func (c *HTTPClient) logResponse(resp *Response) {
	if !c.cfg.Debug {
		return
	}
	fmt.Printf("📡 <- %d\n", resp.StatusCode)
	if c.cfg.DebugFull {
		fmt.Printf("   body: %s\n", fullBody(resp.Body))
		return
	}
	fmt.Printf("   body: %s\n", truncateBody(resp.Body))
}

// redactHeaders returns a copy of headers with sensitive values masked, for
// safe inclusion in debug logs.
func redactHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[strings.ToLower(k)] {
			out[k] = "***REDACTED***"
		} else {
			out[k] = v
		}
	}
	return out
}

// truncateBody returns a preview of body suitable for logging: printable
// bytes up to bodyPreviewLimit, or a byte-count placeholder for binary
// payloads such as PDFs.
func truncateBody(body []byte) string {
	if len(body) == 0 {
		return "<empty>"
	}
	if !isPrintable(body) {
		return fmt.Sprintf("<binary, %d bytes>", len(body))
	}
	if len(body) > bodyPreviewLimit {
		return string(body[:bodyPreviewLimit]) + fmt.Sprintf("... (%d bytes total)", len(body))
	}
	return string(body)
}

// fullBody returns the entire body for DebugFull logging, unlike
// truncateBody's 200-byte preview; binary payloads still render as a
// byte-count placeholder rather than raw bytes.
func fullBody(body []byte) string {
	if len(body) == 0 {
		return "<empty>"
	}
	if !isPrintable(body) {
		return fmt.Sprintf("<binary, %d bytes>", len(body))
	}
	return string(body)
}

func isPrintable(body []byte) bool {
	sample := body
	if len(sample) > 512 {
		sample = sample[:512]
	}
	for _, b := range sample {
		if b == '\n' || b == '\r' || b == '\t' {
			continue
		}
		if b < 0x20 || b == 0x7f {
			return false
		}
	}
	return true
}

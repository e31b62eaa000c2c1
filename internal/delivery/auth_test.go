package delivery

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAuthEngineHeaderAPIKey(t *testing.T) {
	a := NewAuthEngine(nil)
	header, err := a.Header(context.Background(), Credentials{Kind: CredAPIKey, APIKey: "abc123"})
	if err != nil {
		t.Fatalf("Header() error = %v", err)
	}
	if header != "abc123" {
		t.Fatalf("header = %q, want raw API key", header)
	}
}

func TestAuthEngineHeaderBasic(t *testing.T) {
	a := NewAuthEngine(nil)
	header, err := a.Header(context.Background(), Credentials{Kind: CredBasic, Username: "user", Password: "pass"})
	if err != nil {
		t.Fatalf("Header() error = %v", err)
	}
	if header != "Basic dXNlcjpwYXNz" {
		t.Fatalf("header = %q, want base64-encoded Basic header", header)
	}
}

func TestAuthEngineHeaderOAuth2ExchangesAndCaches(t *testing.T) {
	calls := 0
	exchanger := func(ctx context.Context, creds Credentials) (OAuthToken, error) {
		calls++
		return OAuthToken{AccessToken: "tok1", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	a := NewAuthEngine(exchanger)
	creds := Credentials{Kind: CredOAuth2, ClientID: "client1"}

	h1, err := a.Header(context.Background(), creds)
	if err != nil {
		t.Fatalf("Header() error = %v", err)
	}
	if h1 != "Bearer tok1" {
		t.Fatalf("header = %q, want Bearer tok1", h1)
	}

	h2, err := a.Header(context.Background(), creds)
	if err != nil {
		t.Fatalf("Header() second call error = %v", err)
	}
	if h2 != h1 {
		t.Fatalf("second Header() = %q, want cached %q", h2, h1)
	}
	if calls != 1 {
		t.Fatalf("exchanger called %d times, want 1 (second call should hit cache)", calls)
	}
}

func TestAuthEngineReExchangesExpiredToken(t *testing.T) {
	calls := 0
	exchanger := func(ctx context.Context, creds Credentials) (OAuthToken, error) {
		calls++
		return OAuthToken{AccessToken: "tok", ExpiresAt: time.Now().Add(-time.Minute)}, nil
	}
	a := NewAuthEngine(exchanger)
	creds := Credentials{Kind: CredOAuth2, ClientID: "client1"}

	a.Header(context.Background(), creds)
	a.Header(context.Background(), creds)
	if calls != 2 {
		t.Fatalf("exchanger called %d times, want 2 since each cached token is already expired", calls)
	}
}

func TestAuthEngineInvalidateForcesReExchange(t *testing.T) {
	calls := 0
	exchanger := func(ctx context.Context, creds Credentials) (OAuthToken, error) {
		calls++
		return OAuthToken{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	a := NewAuthEngine(exchanger)
	creds := Credentials{Kind: CredOAuth2, ClientID: "client1"}

	a.Header(context.Background(), creds)
	a.Invalidate(creds)
	a.Header(context.Background(), creds)
	if calls != 2 {
		t.Fatalf("exchanger called %d times, want 2 after Invalidate", calls)
	}
}

func TestAuthEngineHeaderOAuth2WithoutExchangerFails(t *testing.T) {
	a := NewAuthEngine(nil)
	_, err := a.Header(context.Background(), Credentials{Kind: CredOAuth2})
	if err == nil {
		t.Fatalf("expected error when OAuth2 credentials have no exchanger, got nil")
	}
}

func TestAuthEngineHeaderUnknownKind(t *testing.T) {
	a := NewAuthEngine(nil)
	_, err := a.Header(context.Background(), Credentials{Kind: "bogus"})
	if err == nil {
		t.Fatalf("expected error for unknown credential kind, got nil")
	}
}

func TestBasicToOAuth2FallbackSucceedsOnFirstAttempt(t *testing.T) {
	a := NewAuthEngine(nil)
	creds := Credentials{Kind: CredBasic, Username: "u", Password: "p"}
	attempts := 0
	resp, err := a.BasicToOAuth2Fallback(context.Background(), creds,
		func(err error) bool { return false },
		func(ctx context.Context, header string) (*Response, error) {
			attempts++
			if header != "Basic dTpw" { // base64("u:p")
				t.Errorf("header = %q, want Basic dTpw", header)
			}
			return &Response{StatusCode: 200}, nil
		},
	)
	if err != nil {
		t.Fatalf("BasicToOAuth2Fallback() error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if attempts != 1 {
		t.Fatalf("attempt called %d times, want 1 (no fallback needed)", attempts)
	}
}

func TestBasicToOAuth2FallbackRetriesWithBearer(t *testing.T) {
	exchanger := func(ctx context.Context, creds Credentials) (OAuthToken, error) {
		if creds.Kind != CredOAuth2 {
			t.Fatalf("exchanger called with Kind = %s, want %s", creds.Kind, CredOAuth2)
		}
		return OAuthToken{AccessToken: "exchanged-tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	a := NewAuthEngine(exchanger)
	creds := Credentials{Kind: CredBasic, Username: "u", Password: "p"}

	var seenHeaders []string
	basicDisabled := errors.New("basic authentication is not enabled for your Organisation")
	resp, err := a.BasicToOAuth2Fallback(context.Background(), creds,
		func(err error) bool { return err == basicDisabled },
		func(ctx context.Context, header string) (*Response, error) {
			seenHeaders = append(seenHeaders, header)
			if len(seenHeaders) == 1 {
				return nil, basicDisabled
			}
			return &Response{StatusCode: 201}, nil
		},
	)
	if err != nil {
		t.Fatalf("BasicToOAuth2Fallback() error = %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("StatusCode = %d, want 201", resp.StatusCode)
	}
	if len(seenHeaders) != 2 {
		t.Fatalf("attempt called %d times, want 2", len(seenHeaders))
	}
	if seenHeaders[1] != "Bearer exchanged-tok" {
		t.Fatalf("second attempt header = %q, want Bearer exchanged-tok", seenHeaders[1])
	}
}

func TestBasicToOAuth2FallbackDoesNotRetryOnUnrelatedError(t *testing.T) {
	a := NewAuthEngine(nil)
	creds := Credentials{Kind: CredBasic, Username: "u", Password: "p"}
	unrelated := errors.New("network timeout")
	attempts := 0
	_, err := a.BasicToOAuth2Fallback(context.Background(), creds,
		func(err error) bool { return false },
		func(ctx context.Context, header string) (*Response, error) {
			attempts++
			return nil, unrelated
		},
	)
	if err != unrelated {
		t.Fatalf("err = %v, want the original unrelated error surfaced unchanged", err)
	}
	if attempts != 1 {
		t.Fatalf("attempt called %d times, want 1 (no fallback for an unrelated error)", attempts)
	}
}

func TestOAuthTokenExpired(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		tok  OAuthToken
		want bool
	}{
		{"empty token", OAuthToken{}, true},
		{"far future", OAuthToken{AccessToken: "t", ExpiresAt: now.Add(time.Hour)}, false},
		{"already past", OAuthToken{AccessToken: "t", ExpiresAt: now.Add(-time.Minute)}, true},
		{"inside safety margin", OAuthToken{AccessToken: "t", ExpiresAt: now.Add(30 * time.Second)}, true},
	}
	for _, tc := range cases {
		if got := tc.tok.Expired(now); got != tc.want {
			t.Errorf("%s: Expired() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

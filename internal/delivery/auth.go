package delivery

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

// TokenExchanger performs the carrier-specific HTTP call that exchanges
// Credentials for a bearer token. Adapters that declare CapExchangeAuthToken
// supply one; adapters with static API-key or Basic auth never need it.
type TokenExchanger func(ctx context.Context, creds Credentials) (OAuthToken, error)

// AuthEngine is the auth state machine shared by every carrier adapter: it
// builds the Authorization header for whichever Credentials.Kind a carrier
// uses, and for OAuth2 it caches the token and transparently exchanges a
// new one when the cached one has expired or a carrier signals (via a
// Basic-auth-disabled fault body) that Basic credentials must first be
// traded for a bearer token.
type AuthEngine struct {
	mu        sync.Mutex
	exchanger TokenExchanger
	cached    map[string]OAuthToken // keyed by ClientID+Username, supports multi-tenant use
}

func NewAuthEngine(exchanger TokenExchanger) *AuthEngine {
	return &AuthEngine{exchanger: exchanger, cached: make(map[string]OAuthToken)}
}

func cacheKey(creds Credentials) string {
	return creds.ClientID + "|" + creds.Username
}

// Header returns the Authorization (and any auxiliary) header value to send
// with a request for the given credentials, exchanging or reusing a cached
// OAuth2 token as needed.
func (a *AuthEngine) Header(ctx context.Context, creds Credentials) (string, error) {
	switch creds.Kind {
	case CredAPIKey:
		return creds.APIKey, nil
	case CredBasic:
		raw := creds.Username + ":" + creds.Password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw)), nil
	case CredOAuth2:
		tok, err := a.token(ctx, creds)
		if err != nil {
			return "", err
		}
		return "Bearer " + tok.AccessToken, nil
	default:
		return "", &CarrierError{Category: CategoryAuth, Message: fmt.Sprintf("unknown credential kind %q", creds.Kind)}
	}
}

func (a *AuthEngine) token(ctx context.Context, creds Credentials) (OAuthToken, error) {
	if a.exchanger == nil {
		return OAuthToken{}, &CarrierError{Category: CategoryAuth, Message: "OAuth2 credentials supplied but adapter has no token exchanger"}
	}
	key := cacheKey(creds)

	a.mu.Lock()
	tok, ok := a.cached[key]
	a.mu.Unlock()
	if ok && !tok.Expired(time.Now()) {
		return tok, nil
	}

	fresh, err := a.exchanger(ctx, creds)
	if err != nil {
		return OAuthToken{}, err
	}

	a.mu.Lock()
	a.cached[key] = fresh
	a.mu.Unlock()
	return fresh, nil
}

// Invalidate drops any cached token for creds, forcing the next Header call
// to exchange a new one. Adapters call this after a 401 that their fault-
// body parser recognizes as "token expired early" rather than "credentials
// rejected".
func (a *AuthEngine) Invalidate(creds Credentials) {
	a.mu.Lock()
	delete(a.cached, cacheKey(creds))
	a.mu.Unlock()
}

// BasicToOAuth2Fallback wraps a Basic-credential request function so that,
// if the first attempt fails with a fault indicating the carrier's gateway
// has Basic auth disabled for this account (the common Apigee-style
// "basic authentication is not enabled for your Organisation" response),
// the engine passes the same credentials to exchanger for an OAuth2 token
// and retries exactly once with a Bearer header.
//
// isBasicDisabled inspects the first attempt's error to decide whether a
// fallback applies; it is supplied by the adapter because the fault body
// shape is carrier-specific.
func (a *AuthEngine) BasicToOAuth2Fallback(
	ctx context.Context,
	creds Credentials,
	isBasicDisabled func(err error) bool,
	attempt func(ctx context.Context, header string) (*Response, error),
) (*Response, error) {
	basicHeader := "Basic " + base64.StdEncoding.EncodeToString([]byte(creds.Username+":"+creds.Password))
	resp, err := attempt(ctx, basicHeader)
	if err == nil || !isBasicDisabled(err) {
		return resp, err
	}

	oauthCreds := creds
	oauthCreds.Kind = CredOAuth2
	tok, tokErr := a.token(ctx, oauthCreds)
	if tokErr != nil {
		return nil, tokErr
	}
	return attempt(ctx, "Bearer "+tok.AccessToken)
}

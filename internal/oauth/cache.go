// Package oauth implements a client-credentials token cache for the
// optional OAuth-authenticated upstream. Obtaining a token is rare
// (seconds-to-hours lifetime) relative to request volume, so a single
// mutex guarding the whole check-then-fetch sequence is enough concurrency
// control.
package oauth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource fetches a bearer token. *clientcredentials.Config implements
// this in production; tests supply a fake.
type TokenSource interface {
	Token(ctx context.Context) (accessToken string, expiresAt time.Time, err error)
}

// ccTokenSource adapts clientcredentials.Config to TokenSource.
type ccTokenSource struct {
	cfg *clientcredentials.Config
}

func (c ccTokenSource) Token(ctx context.Context) (string, time.Time, error) {
	tok, err := c.cfg.Token(ctx)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok.AccessToken, tok.Expiry, nil
}

// Cache holds the current access token and refreshes it proactively, a
// configurable buffer before it actually expires.
type Cache struct {
	source       TokenSource
	refreshBuffer time.Duration

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewCache builds a Cache against an OAuth2 client-credentials endpoint.
func NewCache(tokenURL, clientID, clientSecret, scope string, refreshBufferMinutes int) *Cache {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	if scope != "" {
		cfg.Scopes = []string{scope}
	}
	return &Cache{
		source:        ccTokenSource{cfg: cfg},
		refreshBuffer: time.Duration(refreshBufferMinutes) * time.Minute,
	}
}

// NewCacheWithSource builds a Cache against an arbitrary TokenSource,
// primarily for tests.
func NewCacheWithSource(source TokenSource, refreshBuffer time.Duration) *Cache {
	return &Cache{source: source, refreshBuffer: refreshBuffer}
}

// GetToken returns a currently-valid access token, fetching or refreshing
// it if necessary. The whole check-then-fetch sequence runs under one lock,
// so concurrent callers during a refresh block and then share the single
// fetched token instead of each firing their own request.
func (c *Cache) GetToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiresAt.Add(-c.refreshBuffer)) {
		return c.token, nil
	}

	token, expiresAt, err := c.source.Token(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.expiresAt = expiresAt
	return c.token, nil
}

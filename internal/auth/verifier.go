package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ErrInvalidToken is returned when the identity provider rejects a token.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is what the core needs to know about the caller. Everything else
// about the account lives with the identity provider.
type Identity struct {
	UserID        string
	Email         string
	EmailVerified bool
}

// Verifier resolves a bearer token to an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// ProviderClient verifies tokens against the identity provider's lookup
// endpoint. Sign-up, verification mail, and password flows all happen
// between the client and the provider directly; this service only checks
// tokens.
type ProviderClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewProviderClient creates a token verifier for the given provider URL
func NewProviderClient(baseURL, apiKey string) *ProviderClient {
	return &ProviderClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type lookupResponse struct {
	Users []struct {
		LocalID       string `json:"localId"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"emailVerified"`
	} `json:"users"`
}

// Verify asks the provider who the token belongs to
func (c *ProviderClient) Verify(ctx context.Context, token string) (*Identity, error) {
	body, err := json.Marshal(map[string]string{"idToken": token})
	if err != nil {
		return nil, fmt.Errorf("failed to encode lookup request: %w", err)
	}

	url := c.baseURL + "/v1/accounts:lookup"
	if c.apiKey != "" {
		url += "?key=" + c.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var lookup lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response: %w", err)
	}
	if len(lookup.Users) == 0 {
		return nil, ErrInvalidToken
	}

	u := lookup.Users[0]
	return &Identity{
		UserID:        u.LocalID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}, nil
}

type cacheEntry struct {
	identity *Identity
	expires  time.Time
}

// CachingVerifier memoizes successful lookups for a short TTL so the
// provider is not hit on every request. Failures are never cached.
type CachingVerifier struct {
	inner Verifier
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCachingVerifier wraps a Verifier with a TTL cache
func NewCachingVerifier(inner Verifier, ttl time.Duration) *CachingVerifier {
	return &CachingVerifier{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Verify resolves a token, serving from cache while the entry is fresh
func (v *CachingVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	now := time.Now()

	v.mu.Lock()
	if entry, ok := v.entries[token]; ok && now.Before(entry.expires) {
		v.mu.Unlock()
		return entry.identity, nil
	}
	v.mu.Unlock()

	identity, err := v.inner.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.entries[token] = cacheEntry{identity: identity, expires: now.Add(v.ttl)}
	// Drop expired entries opportunistically to bound the map.
	for t, entry := range v.entries {
		if now.After(entry.expires) {
			delete(v.entries, t)
		}
	}
	v.mu.Unlock()

	return identity, nil
}

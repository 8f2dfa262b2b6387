package agent

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenURL is Google's OAuth 2.0 token endpoint.
	DefaultTokenURL = "https://oauth2.googleapis.com/token"

	tokenScope     = "https://www.googleapis.com/auth/cloud-platform"
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// tokenSource exchanges a signed service-account JWT for an access
// token and caches it, refreshing a couple of minutes before expiry so
// an in-flight call never carries a token about to lapse.
type tokenSource struct {
	http     *http.Client
	tokenURL string
	email    string
	key      *rsa.PrivateKey

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newTokenSource(httpClient *http.Client, email, privateKeyPEM string) (*tokenSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse service-account key: %w", err)
	}
	return &tokenSource{
		http:     httpClient,
		tokenURL: DefaultTokenURL,
		email:    email,
		key:      key,
	}, nil
}

func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Until(ts.expires) > 2*time.Minute {
		return ts.token, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   ts.email,
		"scope": tokenScope,
		"aud":   ts.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ts.key)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("token exchange status %d", resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned empty token")
	}

	ts.token = parsed.AccessToken
	ts.expires = now.Add(time.Duration(parsed.ExpiresIn) * time.Second)
	return ts.token, nil
}

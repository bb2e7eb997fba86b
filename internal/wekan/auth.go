// Package wekan implements the authenticated client for the Wekan
// REST API: session token lifecycle plus request retry and backoff.
package wekan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wekan-tools/github-wekan-sync/internal/models"
	"github.com/wekan-tools/github-wekan-sync/internal/oplog"
)

const (
	// refreshMargin is how close to expiry a token may get before it
	// is refreshed.
	refreshMargin = 5 * time.Minute

	// defaultTokenLifetime applies when the login response carries no
	// tokenExpires field.
	defaultTokenLifetime = 90 * 24 * time.Hour
)

// AuthManager owns the Wekan session credential. It authenticates
// eagerly on construction and refreshes the token whenever it is
// absent, expired, or within refreshMargin of expiring. All token
// state is guarded by one mutex, so concurrent callers observe a
// single in-flight refresh.
type AuthManager struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	log      *oplog.Log

	mu      sync.Mutex
	token   string
	userID  string
	expires time.Time
}

// NewAuthManager authenticates against the Wekan instance at baseURL.
// Rejected credentials surface as *AuthError; there is no valid path
// forward for the caller in that case.
func NewAuthManager(ctx context.Context, baseURL, username, password string, log *oplog.Log) (*AuthManager, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("wekan credentials not provided")
	}

	m := &AuthManager{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.authenticate(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// authenticate performs the form login and replaces the token state.
// Callers must hold m.mu.
func (m *AuthManager) authenticate(ctx context.Context) error {
	loginURL := m.baseURL + "/users/login"
	m.log.Appendf("Authenticating with Wekan at %s", loginURL)

	form := url.Values{}
	form.Set("username", m.username)
	form.Set("password", m.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.http.Do(req)
	if err != nil {
		m.log.Appendf("ERROR: Error connecting to Wekan: %v", err)
		return fmt.Errorf("error connecting to wekan: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		m.log.Appendf("ERROR: Authentication failed: %d - %s", resp.StatusCode, string(body))
		return &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var login models.LoginResponse
	if err := json.Unmarshal(body, &login); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}

	m.token = login.Token
	m.userID = login.ID
	if t, err := time.Parse(time.RFC3339, login.TokenExpires); err == nil {
		m.expires = t
	} else {
		// Wekan did not report an expiry; assume a conservative long
		// default rather than failing.
		m.expires = time.Now().Add(defaultTokenLifetime)
	}

	m.log.Append("Authentication successful. Token obtained.")
	zap.L().Debug("Wekan authentication successful", zap.String("userID", m.userID), zap.Time("tokenExpires", m.expires))
	return nil
}

// ValidToken returns a token guaranteed to be at least refreshMargin
// away from expiry, re-authenticating if needed.
func (m *AuthManager) ValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == "" || time.Now().Add(refreshMargin).After(m.expires) {
		m.log.Append("Token expired or about to expire. Re-authenticating...")
		if err := m.authenticate(ctx); err != nil {
			return "", err
		}
	}
	return m.token, nil
}

// Invalidate forces a refresh after a request observed a 401 with the
// given token. If the token has already been replaced by another
// caller, the refresh is skipped so a burst of concurrent 401s causes
// one re-login rather than one per request.
func (m *AuthManager) Invalidate(ctx context.Context, stale string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != stale {
		return nil
	}
	m.log.Append("Authentication error. Refreshing token...")
	return m.authenticate(ctx)
}

// UserID returns the authenticated user's id.
func (m *AuthManager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

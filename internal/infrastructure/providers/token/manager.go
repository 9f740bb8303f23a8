// Package token manages OAuth2 client-credential tokens for providers
// that require bearer authentication.
package token

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/alchemorsel/fooddata/pkg/errors"
	"github.com/alchemorsel/fooddata/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// refreshBuffer keeps a margin before expiry so a token never expires
// mid-request.
const refreshBuffer = 60 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Manager acquires and refreshes a client-credentials token. Concurrent
// callers during a refresh share one in-flight exchange.
type Manager struct {
	provider     string
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	httpClient   *http.Client
	logger       *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenType   string
	expiresAt   time.Time

	group singleflight.Group
	now   func() time.Time
}

// NewManager creates a token manager for one provider.
func NewManager(provider, tokenURL, clientID, clientSecret, scope string, log *zap.Logger) *Manager {
	return &Manager{
		provider:     provider,
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		logger:       log.Named("token-manager"),
		now:          time.Now,
	}
}

// Token returns a valid access token, refreshing it first when the cached
// one is absent or within the refresh buffer of expiry.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.accessToken != "" && m.now().Before(m.expiresAt) {
		token := m.accessToken
		m.mu.Unlock()
		return token, nil
	}
	m.mu.Unlock()

	result, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		// Another caller may have finished a refresh while this one
		// waited on the singleflight lock.
		m.mu.Lock()
		if m.accessToken != "" && m.now().Before(m.expiresAt) {
			token := m.accessToken
			m.mu.Unlock()
			return token, nil
		}
		m.mu.Unlock()
		return m.exchange(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Invalidate drops the cached token. Called when the resource API rejects
// it with a 401; the next Token call performs a fresh exchange.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.accessToken = ""
	m.expiresAt = time.Time{}
	m.mu.Unlock()
	m.logger.Info("token invalidated", zap.String("provider", m.provider))
}

// exchange performs the client-credentials grant.
func (m *Manager) exchange(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	if m.scope != "" {
		form.Set("scope", m.scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "failed to build token request")
	}
	basic := base64.StdEncoding.EncodeToString([]byte(m.clientID + ":" + m.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", errors.NewProviderHTTPError(m.provider, 0, "").WithCause(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		m.logger.Error("token exchange rejected",
			zap.String("provider", m.provider),
			zap.Int("status", resp.StatusCode),
			zap.String("client_id", logger.Redact(m.clientID)))
		return "", errors.NewProviderHTTPError(m.provider, resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", errors.NewParseError(m.provider, err)
	}
	if tr.AccessToken == "" {
		return "", errors.NewParseError(m.provider, fmt.Errorf("token response missing access_token"))
	}

	m.mu.Lock()
	m.accessToken = tr.AccessToken
	m.tokenType = tr.TokenType
	m.expiresAt = m.now().Add(time.Duration(tr.ExpiresIn)*time.Second - refreshBuffer)
	m.mu.Unlock()

	m.logger.Debug("token refreshed",
		zap.String("provider", m.provider),
		zap.Int("expires_in", tr.ExpiresIn))
	return tr.AccessToken, nil
}

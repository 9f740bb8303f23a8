package token

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alchemorsel/fooddata/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTokenServer(t *testing.T, exchanges *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		require.Equal(t, "product.compact", r.PostForm.Get("scope"))

		expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("client-id:client-secret"))
		require.Equal(t, expected, r.Header.Get("Authorization"))

		n := exchanges.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":1800}`, n)
	}))
}

func TestToken_CachedWithinValidity(t *testing.T) {
	var exchanges atomic.Int64
	srv := newTokenServer(t, &exchanges)
	defer srv.Close()

	m := NewManager("kroger", srv.URL, "client-id", "client-secret", "product.compact", zap.NewNop())

	first, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", first)

	second, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), exchanges.Load())
}

func TestToken_RefreshesAfterExpiry(t *testing.T) {
	var exchanges atomic.Int64
	srv := newTokenServer(t, &exchanges)
	defer srv.Close()

	current := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager("kroger", srv.URL, "client-id", "client-secret", "product.compact", zap.NewNop())
	m.now = func() time.Time { return current }

	first, err := m.Token(context.Background())
	require.NoError(t, err)

	// expires_in 1800s minus the 60s refresh buffer: still valid at +28m,
	// stale at +30m.
	current = current.Add(28 * time.Minute)
	same, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, same)

	current = current.Add(2 * time.Minute)
	fresh, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, fresh)
	assert.Equal(t, int64(2), exchanges.Load())
}

func TestToken_ConcurrentCallersShareOneExchange(t *testing.T) {
	var exchanges atomic.Int64
	srv := newTokenServer(t, &exchanges)
	defer srv.Close()

	m := NewManager("kroger", srv.URL, "client-id", "client-secret", "product.compact", zap.NewNop())

	var wg sync.WaitGroup
	tokens := make([]string, 20)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := m.Token(context.Background())
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), exchanges.Load())
	for _, tok := range tokens {
		assert.Equal(t, "token-1", tok)
	}
}

func TestToken_InvalidateForcesExchange(t *testing.T) {
	var exchanges atomic.Int64
	srv := newTokenServer(t, &exchanges)
	defer srv.Close()

	m := NewManager("kroger", srv.URL, "client-id", "client-secret", "product.compact", zap.NewNop())

	first, err := m.Token(context.Background())
	require.NoError(t, err)

	m.Invalidate()

	fresh, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, fresh)
	assert.Equal(t, int64(2), exchanges.Load())
}

func TestToken_ExchangeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewManager("kroger", srv.URL, "bad-id", "bad-secret", "product.compact", zap.NewNop())

	_, err := m.Token(context.Background())
	require.Error(t, err)
	assert.Equal(t, 401, errors.HTTPStatus(err))
}

func TestToken_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token_type":"Bearer"}`)
	}))
	defer srv.Close()

	m := NewManager("kroger", srv.URL, "client-id", "client-secret", "product.compact", zap.NewNop())

	_, err := m.Token(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeParse))
}

// Package transport implements the request lifecycle shared by every
// provider client: budget check, cache lookup, authenticated HTTP call
// under the retry policy, and cache fill on success.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/cache"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/metrics"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/ratelimit"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/retry"
	"github.com/alchemorsel/fooddata/pkg/errors"
	"go.uber.org/zap"
)

// maxErrorBody bounds how much of an upstream error body is kept for
// logging and error metadata.
const maxErrorBody = 512

// Requester executes provider requests through the shared lifecycle.
// One Requester per provider client; the leaves it composes are owned by
// the provider registry, not ambient globals.
type Requester struct {
	Provider   string
	HTTPClient *http.Client
	Limiter    *ratelimit.Limiter
	Cache      cache.ResponseCache
	CacheTTL   time.Duration
	Retry      retry.Policy
	Logger     *zap.Logger

	// Authorize mutates the request just before it is sent, adding
	// bearer or signature headers. Query-parameter credentials are the
	// caller's responsibility. May be nil.
	Authorize func(req *http.Request) error
	// OnAuthReject is called once per Do when the upstream returns 401,
	// letting token-based clients invalidate and retry with a fresh
	// token. A second 401 in the same Do is terminal. May be nil.
	OnAuthReject func()
}

// Do issues one logical request. Successful payloads are cached under the
// deterministic (endpoint, params, body) key; every attempted HTTP call,
// including retries, consumes rate-limit budget.
func (r *Requester) Do(ctx context.Context, method, endpoint string, params url.Values, body []byte) ([]byte, error) {
	key := cache.Key(r.Provider, endpoint, params, body)
	if payload, ok := r.Cache.Get(ctx, key); ok {
		metrics.ObserveCacheHit(r.Provider)
		return payload, nil
	}
	metrics.ObserveCacheMiss(r.Provider)

	var payload []byte
	authRetried := false

	err := r.Retry.Do(ctx, func() error {
		if err := r.Limiter.CheckAndConsume(); err != nil {
			metrics.ObserveRateLimited(r.Provider)
			return err
		}
		if err := r.Limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate smoothing interrupted")
		}

		requestURL := endpoint
		if len(params) > 0 {
			requestURL = endpoint + "?" + params.Encode()
		}

		var reader io.Reader
		if len(body) > 0 {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
		if err != nil {
			return retry.Permanent(errors.Wrap(err, "failed to build request"))
		}
		if len(body) > 0 {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		if r.Authorize != nil {
			if err := r.Authorize(req); err != nil {
				return err
			}
		}

		resp, err := r.HTTPClient.Do(req)
		if err != nil {
			r.Logger.Warn("provider request failed",
				zap.String("provider", r.Provider),
				zap.String("endpoint", endpoint),
				zap.Error(err))
			return errors.NewProviderHTTPError(r.Provider, 0, "").WithCause(err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.NewProviderHTTPError(r.Provider, resp.StatusCode, "").WithCause(err)
		}

		metrics.ObserveRequest(r.Provider, endpoint, resp.StatusCode)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet := string(raw)
			if len(snippet) > maxErrorBody {
				snippet = snippet[:maxErrorBody]
			}
			httpErr := errors.NewProviderHTTPError(r.Provider, resp.StatusCode, snippet)
			r.Logger.Warn("provider rejected request",
				zap.String("provider", r.Provider),
				zap.String("endpoint", endpoint),
				zap.Int("status", resp.StatusCode))

			if resp.StatusCode == http.StatusUnauthorized && r.OnAuthReject != nil {
				if authRetried {
					return retry.Permanent(httpErr)
				}
				authRetried = true
				r.OnAuthReject()
			}
			return httpErr
		}

		payload = raw
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.Cache.Set(ctx, key, payload, r.CacheTTL)
	return payload, nil
}

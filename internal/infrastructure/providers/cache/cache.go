// Package cache provides TTL-keyed caching of provider responses.
// The cache is best-effort acceleration only: unavailability changes
// latency and upstream cost, never results.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ResponseCache stores raw provider payloads under deterministic keys.
type ResponseCache interface {
	// Get returns the payload and true while the entry is within its TTL.
	// Absent and expired entries are indistinguishable.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores a payload. Only successful responses should be cached.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration)
	// Delete removes an entry. Exists for tests and operations; expiry is
	// otherwise lazy.
	Delete(ctx context.Context, key string)
}

// Key builds a deterministic cache key from endpoint, sorted query
// parameters, and request body. Identical requests always map to the
// same key regardless of parameter order.
func Key(provider, endpoint string, params url.Values, body []byte) string {
	var b strings.Builder
	b.WriteString(provider)
	b.WriteByte(':')
	b.WriteString(endpoint)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vals := append([]string(nil), params[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			b.WriteByte('&')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}

	if len(body) > 0 {
		sum := sha256.Sum256(body)
		b.WriteByte('#')
		b.WriteString(hex.EncodeToString(sum[:]))
	}
	return b.String()
}

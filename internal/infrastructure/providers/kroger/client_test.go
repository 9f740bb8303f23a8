package kroger

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alchemorsel/fooddata/internal/infrastructure/config"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/cache"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/ratelimit"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/retry"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/token"
	"github.com/alchemorsel/fooddata/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// apiServer fakes the Kroger token endpoint and resource APIs. Tokens are
// numbered; rejectFirst makes the resource API reject the first resource
// call to exercise the invalidate-and-retry path.
type apiServer struct {
	*httptest.Server
	exchanges     atomic.Int64
	resourceCalls atomic.Int64
	rejectFirst   bool
	products      string
	locations     string
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	s := &apiServer{
		products:  `{"data":[]}`,
		locations: `{"data":[]}`,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/connect/oauth2/token":
			n := s.exchanges.Add(1)
			fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":1800}`, n)
		case "/products", "/locations":
			call := s.resourceCalls.Add(1)
			if s.rejectFirst && call == 1 {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			if r.Header.Get("Authorization") == "" {
				http.Error(w, `{"error":"missing token"}`, http.StatusUnauthorized)
				return
			}
			if r.URL.Path == "/products" {
				fmt.Fprint(w, s.products)
			} else {
				fmt.Fprint(w, s.locations)
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestClient(t *testing.T, srv *apiServer) *Client {
	t.Helper()
	cfg := config.ProviderConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		BaseURL:      srv.URL,
		RateLimit:    100,
		CacheTTL:     time.Minute,
		Timeout:      5 * time.Second,
	}
	tokens := token.NewManager(providerName, TokenURL(cfg.BaseURL),
		cfg.ClientID, cfg.ClientSecret, Scope(), zap.NewNop())
	return NewClient(cfg, tokens,
		ratelimit.New(providerName, cfg.RateLimit),
		cache.NewMemory(),
		retry.New(3).WithBaseDelay(0),
		zap.NewNop())
}

func TestSearchProducts(t *testing.T) {
	srv := newAPIServer(t)
	srv.products = `{"data":[{
		"productId": "0001111041700",
		"upc": "0001111041700",
		"brand": "Kroger",
		"description": "Kroger 2% Reduced Fat Milk",
		"categories": ["Dairy"],
		"items": [{"price": {"regular": 2.99, "promo": 0}, "size": "1 gal"}]
	}]}`
	client := newTestClient(t, srv)

	products, err := client.SearchProducts(context.Background(), "milk", "01400943", 5)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Kroger 2% Reduced Fat Milk", products[0].Description)
	assert.Equal(t, int64(1), srv.exchanges.Load())
}

func TestSearchProducts_StaleTokenRetriedOnce(t *testing.T) {
	srv := newAPIServer(t)
	srv.rejectFirst = true
	srv.products = `{"data":[{"productId":"p1","description":"Milk","items":[]}]}`
	client := newTestClient(t, srv)

	products, err := client.SearchProducts(context.Background(), "milk", "", 5)
	require.NoError(t, err)
	require.Len(t, products, 1)

	// The 401 dropped the first token and a second exchange backed the
	// successful retry.
	assert.Equal(t, int64(2), srv.exchanges.Load())
	assert.Equal(t, int64(2), srv.resourceCalls.Load())
}

func TestSearchProduct_PicksLowerPromoPrice(t *testing.T) {
	srv := newAPIServer(t)
	srv.products = `{"data":[{
		"productId": "p1",
		"brand": "Kroger",
		"description": "Cheddar Cheese Block",
		"categories": ["Dairy"],
		"items": [{"price": {"regular": 4.99, "promo": 3.49}, "size": "8 oz"}]
	}]}`
	client := newTestClient(t, srv)

	product, err := client.SearchProduct(context.Background(), "cheddar cheese")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.True(t, product.HasPrice)
	assert.Equal(t, 3.49, product.Price)
	assert.Equal(t, "dairy", product.Category)
}

func TestSearchProduct_NoHits(t *testing.T) {
	srv := newAPIServer(t)
	client := newTestClient(t, srv)

	product, err := client.SearchProduct(context.Background(), "xyzzy")
	require.NoError(t, err)
	assert.Nil(t, product)
}

func TestSearchProduct_MissingPrice(t *testing.T) {
	srv := newAPIServer(t)
	srv.products = `{"data":[{"productId":"p1","description":"Bulk Oats","items":[{"size":"1 lb"}]}]}`
	client := newTestClient(t, srv)

	product, err := client.SearchProduct(context.Background(), "oats")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.False(t, product.HasPrice)
	assert.Zero(t, product.Price)
}

func TestFindStores(t *testing.T) {
	srv := newAPIServer(t)
	srv.locations = `{"data":[{
		"locationId": "01400943",
		"name": "Kroger Marketplace",
		"phone": "5135550100",
		"address": {"addressLine1": "1 Main St", "city": "Cincinnati", "state": "OH", "zipCode": "45202"}
	}]}`
	client := newTestClient(t, srv)

	stores, err := client.FindStores(context.Background(), "45202", 5)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "01400943", stores[0].LocationID)
	assert.Equal(t, "Cincinnati", stores[0].Address.City)
}

func TestIsConfigured_RequiresBothCredentials(t *testing.T) {
	srv := newAPIServer(t)
	cfg := config.ProviderConfig{
		ClientID:  "client-id",
		BaseURL:   srv.URL,
		RateLimit: 100,
		CacheTTL:  time.Minute,
		Timeout:   5 * time.Second,
	}
	tokens := token.NewManager(providerName, TokenURL(cfg.BaseURL),
		cfg.ClientID, cfg.ClientSecret, Scope(), zap.NewNop())
	client := NewClient(cfg, tokens,
		ratelimit.New(providerName, cfg.RateLimit),
		cache.NewMemory(),
		retry.New(3).WithBaseDelay(0),
		zap.NewNop())

	// An ID without its secret fails the configuration check up front
	// instead of dying at the token exchange.
	assert.False(t, client.IsConfigured())

	_, err := client.SearchProducts(context.Background(), "milk", "", 5)
	require.Error(t, err)
	assert.Equal(t, errors.CodeProviderNotConfigured, errors.GetCode(err))
	assert.Zero(t, srv.exchanges.Load())
}

func TestTokenURL(t *testing.T) {
	assert.Equal(t, "https://api.kroger.com/v1/connect/oauth2/token",
		TokenURL("https://api.kroger.com/v1"))
}

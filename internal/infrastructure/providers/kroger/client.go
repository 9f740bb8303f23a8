// Package kroger provides a client for the Kroger products and locations
// APIs, authenticated with OAuth2 client credentials.
package kroger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alchemorsel/fooddata/internal/infrastructure/config"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/cache"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/ratelimit"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/retry"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/token"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/transport"
	"github.com/alchemorsel/fooddata/internal/ports/outbound"
	"github.com/alchemorsel/fooddata/pkg/errors"
	"go.uber.org/zap"
)

const (
	providerName = "kroger"
	tokenScope   = "product.compact"
)

// Client handles communication with the Kroger API.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	tokens       *token.Manager
	requester    *transport.Requester
	logger       *zap.Logger
}

// NewClient creates a new Kroger client. The token manager is owned by
// the provider registry so all in-flight requests share one token.
func NewClient(cfg config.ProviderConfig, tokens *token.Manager, limiter *ratelimit.Limiter, respCache cache.ResponseCache, policy retry.Policy, log *zap.Logger) *Client {
	logger := log.Named("kroger-client")
	c := &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      cfg.BaseURL,
		tokens:       tokens,
		logger:       logger,
	}
	c.requester = &transport.Requester{
		Provider:   providerName,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		Limiter:    limiter,
		Cache:      respCache,
		CacheTTL:   cfg.CacheTTL,
		Retry:      policy,
		Logger:     logger,
		Authorize: func(req *http.Request) error {
			tok, err := tokens.Token(req.Context())
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", "Bearer "+tok)
			return nil
		},
		// A 401 means the cached token went stale server-side; drop it
		// so the retry runs with a fresh exchange.
		OnAuthReject: tokens.Invalidate,
	}
	return c
}

// Product is one catalog entry from the products API.
type Product struct {
	ProductID   string   `json:"productId"`
	UPC         string   `json:"upc"`
	Brand       string   `json:"brand"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	Items       []struct {
		Price *struct {
			Regular float64 `json:"regular"`
			Promo   float64 `json:"promo"`
		} `json:"price"`
		Size string `json:"size"`
	} `json:"items"`
}

type productsResponse struct {
	Data []Product `json:"data"`
}

// Location is one store from the locations API.
type Location struct {
	LocationID string `json:"locationId"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    struct {
		AddressLine1 string `json:"addressLine1"`
		City         string `json:"city"`
		State        string `json:"state"`
		ZipCode      string `json:"zipCode"`
	} `json:"address"`
}

type locationsResponse struct {
	Data []Location `json:"data"`
}

// IsConfigured reports whether the client credential pair is present.
// An ID without its secret cannot complete the token exchange, so a
// half-configured client is treated as unconfigured.
func (c *Client) IsConfigured() bool {
	return c.tokens != nil && c.clientID != "" && c.clientSecret != ""
}

// SearchProducts searches the product catalog, optionally scoped to a
// store location for local pricing.
func (c *Client) SearchProducts(ctx context.Context, term, locationID string, limit int) ([]Product, error) {
	if !c.IsConfigured() {
		return nil, errors.NewProviderNotConfiguredError(providerName)
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("filter.term", term)
	params.Set("filter.limit", strconv.Itoa(limit))
	if locationID != "" {
		params.Set("filter.locationId", locationID)
	}

	payload, err := c.requester.Do(ctx, http.MethodGet, c.baseURL+"/products", params, nil)
	if err != nil {
		return nil, err
	}

	var resp productsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, errors.NewParseError(providerName, err)
	}
	return resp.Data, nil
}

// FindStores locates stores near a zip code.
func (c *Client) FindStores(ctx context.Context, zipCode string, limit int) ([]Location, error) {
	if !c.IsConfigured() {
		return nil, errors.NewProviderNotConfiguredError(providerName)
	}
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("filter.zipCode.near", zipCode)
	params.Set("filter.limit", strconv.Itoa(limit))

	payload, err := c.requester.Do(ctx, http.MethodGet, c.baseURL+"/locations", params, nil)
	if err != nil {
		return nil, err
	}

	var resp locationsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, errors.NewParseError(providerName, err)
	}
	return resp.Data, nil
}

// SearchProduct implements outbound.ProductCatalog, returning the best
// catalog hit for pricing and brand enrichment.
func (c *Client) SearchProduct(ctx context.Context, term string) (*outbound.CatalogProduct, error) {
	products, err := c.SearchProducts(ctx, term, "", 1)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}

	p := products[0]
	out := &outbound.CatalogProduct{
		ID:    p.ProductID,
		Name:  p.Description,
		Brand: p.Brand,
	}
	if len(p.Categories) > 0 {
		out.Category = strings.ToLower(p.Categories[0])
	}
	for _, item := range p.Items {
		if item.Price == nil {
			continue
		}
		price := item.Price.Regular
		if item.Price.Promo > 0 && item.Price.Promo < price {
			price = item.Price.Promo
		}
		if price > 0 {
			out.Price = price
			out.HasPrice = true
			break
		}
	}
	return out, nil
}

// TokenURL returns the OAuth2 token endpoint for a Kroger base URL.
func TokenURL(baseURL string) string {
	return baseURL + "/connect/oauth2/token"
}

// Scope returns the OAuth2 scope requested for product access.
func Scope() string {
	return tokenScope
}

var _ outbound.ProductCatalog = (*Client)(nil)

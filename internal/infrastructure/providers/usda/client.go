// Package usda provides a client for the USDA FoodData Central API.
package usda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/alchemorsel/fooddata/internal/domain/nutrition"
	"github.com/alchemorsel/fooddata/internal/infrastructure/config"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/cache"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/ratelimit"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/retry"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/transport"
	"github.com/alchemorsel/fooddata/internal/ports/outbound"
	"github.com/alchemorsel/fooddata/pkg/errors"
	"go.uber.org/zap"
)

const providerName = "usda"

// Client handles communication with the USDA FoodData Central API.
type Client struct {
	apiKey    string
	baseURL   string
	requester *transport.Requester
	logger    *zap.Logger
}

// NewClient creates a new USDA API client composing the shared leaves.
func NewClient(cfg config.ProviderConfig, limiter *ratelimit.Limiter, respCache cache.ResponseCache, policy retry.Policy, log *zap.Logger) *Client {
	logger := log.Named("usda-client")
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		logger:  logger,
		requester: &transport.Requester{
			Provider:   providerName,
			HTTPClient: &http.Client{Timeout: cfg.Timeout},
			Limiter:    limiter,
			Cache:      respCache,
			CacheTTL:   cfg.CacheTTL,
			Retry:      policy,
			Logger:     logger,
		},
	}
}

// SearchResponse is the foods/search payload.
type SearchResponse struct {
	TotalHits int          `json:"totalHits"`
	Foods     []SearchFood `json:"foods"`
}

// SearchFood is one search hit. Nutrients may be absent for some data
// types; that is normal.
type SearchFood struct {
	FdcID       int64            `json:"fdcId"`
	Description string           `json:"description"`
	DataType    string           `json:"dataType"`
	BrandOwner  string           `json:"brandOwner,omitempty"`
	Nutrients   []SearchNutrient `json:"foodNutrients,omitempty"`
}

// SearchNutrient is the flattened nutrient shape used in search results.
type SearchNutrient struct {
	NutrientName string  `json:"nutrientName"`
	Value        float64 `json:"value"`
	UnitName     string  `json:"unitName"`
}

// Food is the food/{fdcId} detail payload.
type Food struct {
	FdcID       int64          `json:"fdcId"`
	Description string         `json:"description"`
	DataType    string         `json:"dataType"`
	Nutrients   []FoodNutrient `json:"foodNutrients,omitempty"`
}

// FoodNutrient is the nested nutrient shape used in detail responses.
type FoodNutrient struct {
	Nutrient struct {
		Name     string `json:"name"`
		UnitName string `json:"unitName"`
	} `json:"nutrient"`
	Amount float64 `json:"amount"`
}

// Provider implements outbound.NutritionSource.
func (c *Client) Provider() nutrition.Provider {
	return nutrition.ProviderUSDA
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// SearchFoods searches the FoodData Central database.
func (c *Client) SearchFoods(ctx context.Context, query string, pageSize int) (*SearchResponse, error) {
	if !c.IsConfigured() {
		return nil, errors.NewProviderNotConfiguredError(providerName)
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("query", query)
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("dataType", "Foundation,SR Legacy,Branded")

	payload, err := c.requester.Do(ctx, http.MethodGet, c.baseURL+"/foods/search", params, nil)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, errors.NewParseError(providerName, err)
	}
	c.logger.Debug("food search completed",
		zap.String("query", query),
		zap.Int("hits", len(resp.Foods)))
	return &resp, nil
}

// GetFoodDetails retrieves full nutrient data for one FDC ID.
func (c *Client) GetFoodDetails(ctx context.Context, fdcID int64) (*Food, error) {
	if !c.IsConfigured() {
		return nil, errors.NewProviderNotConfiguredError(providerName)
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)

	endpoint := fmt.Sprintf("%s/food/%d", c.baseURL, fdcID)
	payload, err := c.requester.Do(ctx, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return nil, err
	}

	var food Food
	if err := json.Unmarshal(payload, &food); err != nil {
		return nil, errors.NewParseError(providerName, err)
	}
	return &food, nil
}

// Lookup resolves an item name to a canonical nutrition record. A search
// hit without nutrient data yields a result with a nil record.
func (c *Client) Lookup(ctx context.Context, item string) (*outbound.NutritionResult, error) {
	resp, err := c.SearchFoods(ctx, item, 1)
	if err != nil {
		return nil, err
	}
	if len(resp.Foods) == 0 {
		return &outbound.NutritionResult{Provider: nutrition.ProviderUSDA}, nil
	}

	hit := resp.Foods[0]
	record := mapSearchNutrients(hit.Nutrients)

	// Search results for some data types omit nutrients; fall back to
	// the detail endpoint before giving up on the hit.
	if record == nil {
		food, err := c.GetFoodDetails(ctx, hit.FdcID)
		if err == nil {
			record = mapFoodNutrients(food.Nutrients)
		}
	}

	return &outbound.NutritionResult{
		Provider:    nutrition.ProviderUSDA,
		Record:      record,
		Description: hit.Description,
	}, nil
}

func mapSearchNutrients(nutrients []SearchNutrient) *nutrition.Record {
	if len(nutrients) == 0 {
		return nil
	}
	var record nutrition.Record
	mapped := false
	for _, n := range nutrients {
		if nutrition.Assign(&record, n.NutrientName, n.Value) {
			mapped = true
		}
	}
	if !mapped {
		return nil
	}
	return &record
}

func mapFoodNutrients(nutrients []FoodNutrient) *nutrition.Record {
	if len(nutrients) == 0 {
		return nil
	}
	var record nutrition.Record
	mapped := false
	for _, n := range nutrients {
		if nutrition.Assign(&record, n.Nutrient.Name, n.Amount) {
			mapped = true
		}
	}
	if !mapped {
		return nil
	}
	return &record
}

var _ outbound.NutritionSource = (*Client)(nil)

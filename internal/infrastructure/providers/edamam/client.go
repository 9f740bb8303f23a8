// Package edamam provides a client for the Edamam nutrition-analysis and
// food-database APIs.
package edamam

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

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

const providerName = "edamam"

// Client handles communication with the Edamam APIs. Edamam uses an
// app_id/app_key pair passed as query parameters.
type Client struct {
	appID     string
	appKey    string
	baseURL   string
	requester *transport.Requester
	logger    *zap.Logger
}

// NewClient creates a new Edamam client.
func NewClient(cfg config.ProviderConfig, limiter *ratelimit.Limiter, respCache cache.ResponseCache, policy retry.Policy, log *zap.Logger) *Client {
	logger := log.Named("edamam-client")
	return &Client{
		appID:   cfg.ClientID,
		appKey:  cfg.APIKey,
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

// NutrientValue is one entry of Edamam's totalNutrients map.
type NutrientValue struct {
	Label    string  `json:"label"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// NutritionDetails is the nutrition-details analysis payload.
type NutritionDetails struct {
	Calories       float64                  `json:"calories"`
	TotalWeight    float64                  `json:"totalWeight"`
	DietLabels     []string                 `json:"dietLabels"`
	HealthLabels   []string                 `json:"healthLabels"`
	Cautions       []string                 `json:"cautions"`
	TotalNutrients map[string]NutrientValue `json:"totalNutrients"`
}

// ParsedFood is one hint from the food-database parser.
type ParsedFood struct {
	FoodID    string             `json:"foodId"`
	Label     string             `json:"label"`
	Category  string             `json:"category"`
	Nutrients map[string]float64 `json:"nutrients"`
}

type parserResponse struct {
	Parsed []struct {
		Food ParsedFood `json:"food"`
	} `json:"parsed"`
	Hints []struct {
		Food ParsedFood `json:"food"`
	} `json:"hints"`
}

type analysisRequest struct {
	Ingredients []string `json:"ingr"`
}

// Provider implements outbound.NutritionSource.
func (c *Client) Provider() nutrition.Provider {
	return nutrition.ProviderEdamam
}

// IsConfigured reports whether the app_id/app_key pair is present.
func (c *Client) IsConfigured() bool {
	return c.appID != "" && c.appKey != ""
}

// AnalyzeNutrition runs the nutrition-details analysis over a set of
// ingredient lines. The POST is idempotent on fixed input, so responses
// are cached keyed by the full request body.
func (c *Client) AnalyzeNutrition(ctx context.Context, ingredients []string) (*NutritionDetails, error) {
	if !c.IsConfigured() {
		return nil, errors.NewProviderNotConfiguredError(providerName)
	}

	body, err := json.Marshal(analysisRequest{Ingredients: ingredients})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode analysis request")
	}

	params := url.Values{}
	params.Set("app_id", c.appID)
	params.Set("app_key", c.appKey)

	payload, err := c.requester.Do(ctx, http.MethodPost, c.baseURL+"/nutrition-details", params, body)
	if err != nil {
		return nil, err
	}

	var details NutritionDetails
	if err := json.Unmarshal(payload, &details); err != nil {
		return nil, errors.NewParseError(providerName, err)
	}
	return &details, nil
}

// ParseFood resolves a free-text food name through the food-database
// parser, returning the best hit if any.
func (c *Client) ParseFood(ctx context.Context, query string) (*ParsedFood, error) {
	if !c.IsConfigured() {
		return nil, errors.NewProviderNotConfiguredError(providerName)
	}

	params := url.Values{}
	params.Set("app_id", c.appID)
	params.Set("app_key", c.appKey)
	params.Set("ingr", query)

	payload, err := c.requester.Do(ctx, http.MethodGet, c.baseURL+"/food-database/v2/parser", params, nil)
	if err != nil {
		return nil, err
	}

	var resp parserResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, errors.NewParseError(providerName, err)
	}
	if len(resp.Parsed) > 0 {
		return &resp.Parsed[0].Food, nil
	}
	if len(resp.Hints) > 0 {
		return &resp.Hints[0].Food, nil
	}
	return nil, nil
}

// Lookup analyzes a single item line and maps the totals onto the
// canonical record. Labels and cautions ride along for the fusion layer.
func (c *Client) Lookup(ctx context.Context, item string) (*outbound.NutritionResult, error) {
	details, err := c.AnalyzeNutrition(ctx, []string{"100g " + item})
	if err != nil {
		return nil, err
	}

	result := &outbound.NutritionResult{
		Provider:     nutrition.ProviderEdamam,
		DietLabels:   details.DietLabels,
		HealthLabels: details.HealthLabels,
		Cautions:     details.Cautions,
	}

	var record nutrition.Record
	mapped := false
	for code, value := range details.TotalNutrients {
		if nutrition.Assign(&record, code, value.Quantity) {
			mapped = true
		}
	}
	if record.Calories == 0 && details.Calories > 0 {
		record.Calories = details.Calories
		mapped = true
	}
	if mapped {
		result.Record = &record
	}
	return result, nil
}

var _ outbound.NutritionSource = (*Client)(nil)

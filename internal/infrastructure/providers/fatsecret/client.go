// Package fatsecret provides a client for the FatSecret Platform API.
// Requests are signed with two-legged OAuth 1.0 (HMAC-SHA1).
package fatsecret

import (
	"context"
	"encoding/json"
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

const providerName = "fatsecret"

// Client handles communication with the FatSecret Platform API. All
// methods go through the single server.api endpoint selected by the
// `method` parameter.
type Client struct {
	consumerKey    string
	consumerSecret string
	baseURL        string
	requester      *transport.Requester
	logger         *zap.Logger
}

// NewClient creates a new FatSecret client.
func NewClient(cfg config.ProviderConfig, limiter *ratelimit.Limiter, respCache cache.ResponseCache, policy retry.Policy, log *zap.Logger) *Client {
	logger := log.Named("fatsecret-client")
	c := &Client{
		consumerKey:    cfg.ClientID,
		consumerSecret: cfg.ClientSecret,
		baseURL:        cfg.BaseURL,
		logger:         logger,
	}
	c.requester = &transport.Requester{
		Provider:   providerName,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		Limiter:    limiter,
		Cache:      respCache,
		CacheTTL:   cfg.CacheTTL,
		Retry:      policy,
		Logger:     logger,
		// The signature covers the query string, and the nonce and
		// timestamp change per attempt, so signing happens here rather
		// than in the cache-keyed parameter set.
		Authorize: func(req *http.Request) error {
			base := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
			signed := signRequest(req.Method, base, req.URL.Query(), c.consumerKey, c.consumerSecret)
			req.Header.Set("Authorization", authorizationHeader(signed))
			return nil
		},
	}
	return c
}

// stringFloat tolerates FatSecret's numeric strings.
type stringFloat float64

func (s *stringFloat) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*s = stringFloat(f)
		return nil
	}
	if raw == "" {
		*s = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// Unparseable nutrient values are dropped, not fatal.
		*s = 0
		return nil
	}
	*s = stringFloat(f)
	return nil
}

// Serving carries per-serving nutrient values as reported by food.get.
type Serving struct {
	ServingDescription string      `json:"serving_description"`
	MetricAmount       stringFloat `json:"metric_serving_amount"`
	MetricUnit         string      `json:"metric_serving_unit"`
	Calories           stringFloat `json:"calories"`
	Protein            stringFloat `json:"protein"`
	Fat                stringFloat `json:"fat"`
	Carbohydrate       stringFloat `json:"carbohydrate"`
	Fiber              stringFloat `json:"fiber"`
	Sugar              stringFloat `json:"sugar"`
	Sodium             stringFloat `json:"sodium"`
	Cholesterol        stringFloat `json:"cholesterol"`
	Calcium            stringFloat `json:"calcium"`
	Iron               stringFloat `json:"iron"`
	VitaminA           stringFloat `json:"vitamin_a"`
	VitaminC           stringFloat `json:"vitamin_c"`
}

type servingList []Serving

// FatSecret collapses single-element lists to a bare object.
func (l *servingList) UnmarshalJSON(data []byte) error {
	var many []Serving
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one Serving
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = servingList{one}
	return nil
}

// Food is the food.get payload.
type Food struct {
	FoodID   string `json:"food_id"`
	FoodName string `json:"food_name"`
	FoodType string `json:"food_type"`
	Servings struct {
		Serving servingList `json:"serving"`
	} `json:"servings"`
}

// SearchHit is one foods.search result.
type SearchHit struct {
	FoodID          string `json:"food_id"`
	FoodName        string `json:"food_name"`
	FoodType        string `json:"food_type"`
	FoodDescription string `json:"food_description"`
}

type searchHitList []SearchHit

func (l *searchHitList) UnmarshalJSON(data []byte) error {
	var many []SearchHit
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one SearchHit
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = searchHitList{one}
	return nil
}

type searchResponse struct {
	Foods struct {
		Food         searchHitList `json:"food"`
		TotalResults stringFloat   `json:"total_results"`
	} `json:"foods"`
}

type foodResponse struct {
	Food Food `json:"food"`
}

// Provider implements outbound.NutritionSource.
func (c *Client) Provider() nutrition.Provider {
	return nutrition.ProviderFatSecret
}

// IsConfigured reports whether the consumer key pair is present.
func (c *Client) IsConfigured() bool {
	return c.consumerKey != "" && c.consumerSecret != ""
}

// SearchFoods runs foods.search.
func (c *Client) SearchFoods(ctx context.Context, query string, maxResults int) ([]SearchHit, error) {
	if !c.IsConfigured() {
		return nil, errors.NewProviderNotConfiguredError(providerName)
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("method", "foods.search")
	params.Set("search_expression", query)
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("format", "json")

	payload, err := c.requester.Do(ctx, http.MethodGet, c.baseURL, params, nil)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, errors.NewParseError(providerName, err)
	}
	return resp.Foods.Food, nil
}

// GetFood runs food.get for one food ID.
func (c *Client) GetFood(ctx context.Context, foodID string) (*Food, error) {
	if !c.IsConfigured() {
		return nil, errors.NewProviderNotConfiguredError(providerName)
	}

	params := url.Values{}
	params.Set("method", "food.get")
	params.Set("food_id", foodID)
	params.Set("format", "json")

	payload, err := c.requester.Do(ctx, http.MethodGet, c.baseURL, params, nil)
	if err != nil {
		return nil, err
	}

	var resp foodResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, errors.NewParseError(providerName, err)
	}
	return &resp.Food, nil
}

// Lookup resolves an item name through foods.search then food.get.
func (c *Client) Lookup(ctx context.Context, item string) (*outbound.NutritionResult, error) {
	hits, err := c.SearchFoods(ctx, item, 1)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &outbound.NutritionResult{Provider: nutrition.ProviderFatSecret}, nil
	}

	food, err := c.GetFood(ctx, hits[0].FoodID)
	if err != nil {
		return nil, err
	}

	result := &outbound.NutritionResult{
		Provider:    nutrition.ProviderFatSecret,
		Description: food.FoodName,
	}
	if len(food.Servings.Serving) > 0 {
		s := food.Servings.Serving[0]
		result.Record = &nutrition.Record{
			Calories:    float64(s.Calories),
			Protein:     float64(s.Protein),
			Fat:         float64(s.Fat),
			Carbs:       float64(s.Carbohydrate),
			Fiber:       float64(s.Fiber),
			Sugar:       float64(s.Sugar),
			Sodium:      float64(s.Sodium),
			Cholesterol: float64(s.Cholesterol),
			Calcium:     float64(s.Calcium),
			Iron:        float64(s.Iron),
			VitaminA:    float64(s.VitaminA),
			VitaminC:    float64(s.VitaminC),
		}
	}
	return result, nil
}

var _ outbound.NutritionSource = (*Client)(nil)

// Package spoonacular provides a client for the Spoonacular recipe API,
// used for recipe-metadata enrichment rather than nutrition fusion.
package spoonacular

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alchemorsel/fooddata/internal/infrastructure/config"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/cache"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/ratelimit"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/retry"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/transport"
	"github.com/alchemorsel/fooddata/internal/ports/outbound"
	"github.com/alchemorsel/fooddata/pkg/errors"
	"go.uber.org/zap"
)

const providerName = "spoonacular"

// Client handles communication with the Spoonacular API.
type Client struct {
	apiKey    string
	baseURL   string
	requester *transport.Requester
	logger    *zap.Logger
}

// NewClient creates a new Spoonacular client.
func NewClient(cfg config.ProviderConfig, limiter *ratelimit.Limiter, respCache cache.ResponseCache, policy retry.Policy, log *zap.Logger) *Client {
	logger := log.Named("spoonacular-client")
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

// Recipe is the recipe information payload. Only the fields the platform
// consumes are modeled.
type Recipe struct {
	ID                    int64    `json:"id"`
	Title                 string   `json:"title"`
	Image                 string   `json:"image"`
	ReadyInMinutes        int      `json:"readyInMinutes"`
	Servings              int      `json:"servings"`
	SourceURL             string   `json:"sourceUrl"`
	Summary               string   `json:"summary"`
	Cuisines              []string `json:"cuisines"`
	DishTypes             []string `json:"dishTypes"`
	Diets                 []string `json:"diets"`
	UsedIngredientCount   int      `json:"usedIngredientCount"`
	MissedIngredientCount int      `json:"missedIngredientCount"`
}

type complexSearchResponse struct {
	Results      []Recipe `json:"results"`
	TotalResults int      `json:"totalResults"`
}

type randomResponse struct {
	Recipes []Recipe `json:"recipes"`
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

func (c *Client) keyed() url.Values {
	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	return params
}

// ComplexSearch searches recipes by free-text query.
func (c *Client) ComplexSearch(ctx context.Context, query string, number int) ([]Recipe, error) {
	if !c.IsConfigured() {
		return nil, errors.NewProviderNotConfiguredError(providerName)
	}
	if number <= 0 {
		number = 10
	}

	params := c.keyed()
	params.Set("query", query)
	params.Set("number", strconv.Itoa(number))

	payload, err := c.requester.Do(ctx, http.MethodGet, c.baseURL+"/complexSearch", params, nil)
	if err != nil {
		return nil, err
	}

	var resp complexSearchResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, errors.NewParseError(providerName, err)
	}
	return resp.Results, nil
}

// GetRecipe fetches full information for one recipe.
func (c *Client) GetRecipe(ctx context.Context, id int64) (*Recipe, error) {
	if !c.IsConfigured() {
		return nil, errors.NewProviderNotConfiguredError(providerName)
	}

	endpoint := fmt.Sprintf("%s/%d/information", c.baseURL, id)
	payload, err := c.requester.Do(ctx, http.MethodGet, endpoint, c.keyed(), nil)
	if err != nil {
		return nil, err
	}

	var recipe Recipe
	if err := json.Unmarshal(payload, &recipe); err != nil {
		return nil, errors.NewParseError(providerName, err)
	}
	return &recipe, nil
}

// GetRecipesBulk fetches information for several recipes in one call.
func (c *Client) GetRecipesBulk(ctx context.Context, ids []int64) ([]Recipe, error) {
	if !c.IsConfigured() {
		return nil, errors.NewProviderNotConfiguredError(providerName)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = strconv.FormatInt(id, 10)
	}
	params := c.keyed()
	params.Set("ids", strings.Join(strs, ","))

	payload, err := c.requester.Do(ctx, http.MethodGet, c.baseURL+"/informationBulk", params, nil)
	if err != nil {
		return nil, err
	}

	var recipes []Recipe
	if err := json.Unmarshal(payload, &recipes); err != nil {
		return nil, errors.NewParseError(providerName, err)
	}
	return recipes, nil
}

// RandomRecipes fetches random recipes for discovery feeds.
func (c *Client) RandomRecipes(ctx context.Context, number int) ([]Recipe, error) {
	if !c.IsConfigured() {
		return nil, errors.NewProviderNotConfiguredError(providerName)
	}
	if number <= 0 {
		number = 5
	}

	params := c.keyed()
	params.Set("number", strconv.Itoa(number))

	payload, err := c.requester.Do(ctx, http.MethodGet, c.baseURL+"/random", params, nil)
	if err != nil {
		return nil, err
	}

	var resp randomResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, errors.NewParseError(providerName, err)
	}
	return resp.Recipes, nil
}

// SearchByIngredients finds recipes cookable from a set of ingredients.
func (c *Client) SearchByIngredients(ctx context.Context, ingredients []string, number int) ([]Recipe, error) {
	if !c.IsConfigured() {
		return nil, errors.NewProviderNotConfiguredError(providerName)
	}
	if number <= 0 {
		number = 10
	}

	params := c.keyed()
	params.Set("ingredients", strings.Join(ingredients, ","))
	params.Set("number", strconv.Itoa(number))

	payload, err := c.requester.Do(ctx, http.MethodGet, c.baseURL+"/findByIngredients", params, nil)
	if err != nil {
		return nil, err
	}

	var recipes []Recipe
	if err := json.Unmarshal(payload, &recipes); err != nil {
		return nil, errors.NewParseError(providerName, err)
	}
	return recipes, nil
}

// SearchRecipes implements outbound.RecipeMetadata.
func (c *Client) SearchRecipes(ctx context.Context, query string, limit int) ([]outbound.RecipeSummary, error) {
	recipes, err := c.ComplexSearch(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return summaries(recipes), nil
}

// FindByIngredients implements outbound.RecipeMetadata.
func (c *Client) FindByIngredients(ctx context.Context, ingredients []string, limit int) ([]outbound.RecipeSummary, error) {
	recipes, err := c.SearchByIngredients(ctx, ingredients, limit)
	if err != nil {
		return nil, err
	}
	return summaries(recipes), nil
}

func summaries(recipes []Recipe) []outbound.RecipeSummary {
	out := make([]outbound.RecipeSummary, len(recipes))
	for i, r := range recipes {
		out[i] = outbound.RecipeSummary{
			ID:          r.ID,
			Title:       r.Title,
			ImageURL:    r.Image,
			ReadyMin:    r.ReadyInMinutes,
			Servings:    r.Servings,
			SourceURL:   r.SourceURL,
			UsedCount:   r.UsedIngredientCount,
			MissedCount: r.MissedIngredientCount,
		}
	}
	return out
}

var _ outbound.RecipeMetadata = (*Client)(nil)

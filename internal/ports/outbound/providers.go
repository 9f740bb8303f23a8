// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces the fusion layer uses to reach external food-data providers
package outbound

import (
	"context"

	"github.com/alchemorsel/fooddata/internal/domain/nutrition"
)

// NutritionResult is what a nutrition source contributes for one item.
// Record may be nil when the source found the item but reported no
// nutrient data; that is a normal outcome, not an error.
type NutritionResult struct {
	Provider     nutrition.Provider
	Record       *nutrition.Record
	Description  string
	DietLabels   []string
	HealthLabels []string
	Cautions     []string
}

// NutritionSource is a provider client capable of resolving an item name
// to a nutrition record.
type NutritionSource interface {
	// Provider returns the source tag used for priority ordering.
	Provider() nutrition.Provider
	// IsConfigured reports whether credentials are present. Unconfigured
	// sources are skipped by the fusion layer, never queried.
	IsConfigured() bool
	// Lookup resolves an item name. Partial data is returned as-is;
	// failures surface as provider-tagged errors.
	Lookup(ctx context.Context, item string) (*NutritionResult, error)
}

// CatalogProduct is a store-catalog hit for an item, used for pricing and
// brand/category enrichment.
type CatalogProduct struct {
	ID       string
	Name     string
	Brand    string
	Category string
	Price    float64
	HasPrice bool
}

// ProductCatalog is a provider client backed by a retail product catalog.
type ProductCatalog interface {
	IsConfigured() bool
	SearchProduct(ctx context.Context, term string) (*CatalogProduct, error)
}

// RecipeSummary is a recipe-metadata hit from the recipe provider.
type RecipeSummary struct {
	ID          int64
	Title       string
	ImageURL    string
	ReadyMin    int
	Servings    int
	SourceURL   string
	UsedCount   int
	MissedCount int
}

// RecipeMetadata is a provider client for recipe discovery and pairing.
type RecipeMetadata interface {
	IsConfigured() bool
	SearchRecipes(ctx context.Context, query string, limit int) ([]RecipeSummary, error)
	FindByIngredients(ctx context.Context, ingredients []string, limit int) ([]RecipeSummary, error)
}

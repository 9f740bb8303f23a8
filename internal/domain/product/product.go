// Package product defines the fused, confidence-scored product record the
// rest of the platform consumes.
package product

import (
	"time"

	"github.com/alchemorsel/fooddata/internal/domain/nutrition"
)

// NutritionSummary carries the canonical nutrient fields populated from the
// primary source, alongside the raw per-provider records that contributed.
type NutritionSummary struct {
	PrimarySource nutrition.Provider `json:"primary_source"`
	USDA          *nutrition.Record  `json:"usda,omitempty"`
	Edamam        *nutrition.Record  `json:"edamam,omitempty"`
	FatSecret     *nutrition.Record  `json:"fatsecret,omitempty"`

	nutrition.Record
}

// HealthProfile aggregates diet and safety metadata across sources.
type HealthProfile struct {
	DietLabels   []string `json:"diet_labels"`
	HealthLabels []string `json:"health_labels"`
	Cautions     []string `json:"cautions"`
	Allergens    []string `json:"allergens"`
}

// Intelligence carries derived shopping and cooking metadata.
type Intelligence struct {
	Category        string   `json:"category"`
	Subcategory     string   `json:"subcategory,omitempty"`
	Substitutions   []string `json:"substitutions"`
	Recommendations string   `json:"recommendations,omitempty"`
}

// Price is a catalog price reported by a product provider.
type Price struct {
	Amount   float64            `json:"amount"`
	Currency string             `json:"currency"`
	Provider nutrition.Provider `json:"provider"`
}

// Enhanced is the fusion output: one record per logical item, recomputed
// per request. Confidence is monotonically non-decreasing in the number of
// contributing sources and never below 0.1.
type Enhanced struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Brand       string           `json:"brand,omitempty"`
	Category    string           `json:"category"`
	Nutrition   NutritionSummary `json:"nutrition"`
	Health      HealthProfile    `json:"health"`
	Intel       Intelligence     `json:"intelligence"`
	Price       *Price           `json:"price,omitempty"`
	Confidence  float64          `json:"confidence"`
	LastUpdated time.Time        `json:"last_updated"`
}

// IsFallback reports whether the record is synthetic, produced because no
// provider returned data.
func (e *Enhanced) IsFallback() bool {
	return e.Nutrition.PrimarySource == nutrition.ProviderFallback
}

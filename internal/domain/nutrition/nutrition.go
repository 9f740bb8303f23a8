// Package nutrition defines the canonical nutrition model shared by all
// provider clients and the fusion layer.
package nutrition

import "strings"

// Provider identifies the upstream source of a nutrition record.
type Provider string

const (
	ProviderUSDA        Provider = "usda"
	ProviderEdamam      Provider = "edamam"
	ProviderFatSecret   Provider = "fatsecret"
	ProviderSpoonacular Provider = "spoonacular"
	ProviderKroger      Provider = "kroger"
	// ProviderFallback tags synthetic records produced when every upstream
	// source failed or was unconfigured.
	ProviderFallback Provider = "fallback"
)

// Record is the canonical nutrient set. Values are per 100g unless the
// source states otherwise. A zero value means the source did not report
// the nutrient; sources routinely cover only a subset.
type Record struct {
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Fat         float64 `json:"fat"`
	Carbs       float64 `json:"carbs"`
	Fiber       float64 `json:"fiber,omitempty"`
	Sugar       float64 `json:"sugar,omitempty"`
	Sodium      float64 `json:"sodium,omitempty"`
	Cholesterol float64 `json:"cholesterol,omitempty"`
	Calcium     float64 `json:"calcium,omitempty"`
	Iron        float64 `json:"iron,omitempty"`
	VitaminA    float64 `json:"vitamin_a,omitempty"`
	VitaminC    float64 `json:"vitamin_c,omitempty"`
}

// IsZero reports whether the record carries no nutrient data at all.
func (r Record) IsZero() bool {
	return r == Record{}
}

// vocabulary maps source-specific nutrient names to canonical field
// assignment. Lookup is case-insensitive exact match; unmapped nutrients
// are dropped, never fuzzy-matched.
var vocabulary = map[string]func(*Record, float64){
	// Canonical names
	"calories":    func(r *Record, v float64) { r.Calories = v },
	"protein":     func(r *Record, v float64) { r.Protein = v },
	"fat":         func(r *Record, v float64) { r.Fat = v },
	"carbs":       func(r *Record, v float64) { r.Carbs = v },
	"fiber":       func(r *Record, v float64) { r.Fiber = v },
	"sugar":       func(r *Record, v float64) { r.Sugar = v },
	"sodium":      func(r *Record, v float64) { r.Sodium = v },
	"cholesterol": func(r *Record, v float64) { r.Cholesterol = v },
	"calcium":     func(r *Record, v float64) { r.Calcium = v },
	"iron":        func(r *Record, v float64) { r.Iron = v },
	"vitamin a":   func(r *Record, v float64) { r.VitaminA = v },
	"vitamin c":   func(r *Record, v float64) { r.VitaminC = v },

	// USDA FoodData Central nutrient names
	"energy":                         func(r *Record, v float64) { r.Calories = v },
	"total lipid (fat)":              func(r *Record, v float64) { r.Fat = v },
	"carbohydrate, by difference":    func(r *Record, v float64) { r.Carbs = v },
	"fiber, total dietary":           func(r *Record, v float64) { r.Fiber = v },
	"sugars, total including nlea":   func(r *Record, v float64) { r.Sugar = v },
	"total sugars":                   func(r *Record, v float64) { r.Sugar = v },
	"sodium, na":                     func(r *Record, v float64) { r.Sodium = v },
	"calcium, ca":                    func(r *Record, v float64) { r.Calcium = v },
	"iron, fe":                       func(r *Record, v float64) { r.Iron = v },
	"vitamin a, rae":                 func(r *Record, v float64) { r.VitaminA = v },
	"vitamin c, total ascorbic acid": func(r *Record, v float64) { r.VitaminC = v },

	// Edamam totalNutrients codes
	"enerc_kcal": func(r *Record, v float64) { r.Calories = v },
	"procnt":     func(r *Record, v float64) { r.Protein = v },
	"chocdf":     func(r *Record, v float64) { r.Carbs = v },
	"fibtg":      func(r *Record, v float64) { r.Fiber = v },
	"na":         func(r *Record, v float64) { r.Sodium = v },
	"chole":      func(r *Record, v float64) { r.Cholesterol = v },
	"ca":         func(r *Record, v float64) { r.Calcium = v },
	"fe":         func(r *Record, v float64) { r.Iron = v },
	"vita_rae":   func(r *Record, v float64) { r.VitaminA = v },
	"vitc":       func(r *Record, v float64) { r.VitaminC = v },

	// FatSecret serving field names
	"carbohydrate": func(r *Record, v float64) { r.Carbs = v },
}

// Assign maps a source-specific nutrient name onto the record. It returns
// false when the name is not in the canonical vocabulary.
func Assign(r *Record, name string, value float64) bool {
	set, ok := vocabulary[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return false
	}
	set(r, value)
	return true
}

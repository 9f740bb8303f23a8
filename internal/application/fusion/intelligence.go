package fusion

import (
	"sort"
	"strings"
)

// Category and substitution derivation uses fixed keyword tables matched
// against the item name. Matching is substring-based and case-insensitive;
// the first table hit wins, everything else is "general".

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"produce", []string{
		"apple", "banana", "orange", "lemon", "lime", "berry", "strawberr",
		"grape", "melon", "tomato", "onion", "garlic", "carrot", "celery",
		"lettuce", "spinach", "kale", "broccoli", "cauliflower", "potato",
		"pepper", "cucumber", "zucchini", "avocado", "mushroom", "herb",
		"cilantro", "parsley", "basil",
	}},
	{"dairy", []string{
		"milk", "cheese", "yogurt", "butter", "cream", "egg",
	}},
	{"meat", []string{
		"chicken", "beef", "pork", "turkey", "lamb", "bacon", "sausage",
		"ham", "fish", "salmon", "tuna", "shrimp", "steak",
	}},
}

var subcategoryKeywords = map[string][]struct {
	subcategory string
	keywords    []string
}{
	"produce": {
		{"fruit", []string{"apple", "banana", "orange", "lemon", "lime", "berry", "strawberr", "grape", "melon", "avocado"}},
		{"vegetable", []string{"tomato", "onion", "garlic", "carrot", "celery", "lettuce", "spinach", "kale", "broccoli", "cauliflower", "potato", "pepper", "cucumber", "zucchini", "mushroom"}},
	},
	"meat": {
		{"poultry", []string{"chicken", "turkey"}},
		{"seafood", []string{"fish", "salmon", "tuna", "shrimp"}},
	},
}

var substitutionTable = map[string][]string{
	"butter":      {"margarine", "coconut oil", "olive oil"},
	"milk":        {"almond milk", "oat milk", "soy milk"},
	"egg":         {"flax egg", "chia egg", "unsweetened applesauce"},
	"flour":       {"almond flour", "oat flour", "gluten-free flour blend"},
	"sugar":       {"honey", "maple syrup", "coconut sugar"},
	"sour cream":  {"greek yogurt"},
	"heavy cream": {"coconut cream", "evaporated milk"},
	"buttermilk":  {"milk with lemon juice"},
	"breadcrumbs": {"crushed crackers", "rolled oats"},
	"mayonnaise":  {"greek yogurt", "mashed avocado"},
}

var allergenKeywords = map[string][]string{
	"milk":  {"milk", "cheese", "butter", "cream", "yogurt", "whey", "casein"},
	"egg":   {"egg"},
	"wheat": {"wheat", "flour", "bread", "pasta", "cracker"},
	"soy":   {"soy", "tofu", "edamame"},
	"nuts":  {"almond", "peanut", "cashew", "walnut", "pecan", "hazelnut", "pistachio", "nut"},
}

var categoryRecommendations = map[string]string{
	"produce": "Best stored fresh; buy in season for peak flavor and price.",
	"dairy":   "Keep refrigerated; check date codes when substituting brands.",
	"meat":    "Price varies by cut; consider frozen for longer storage.",
	"general": "Shelf-stable staple; stock up when on promotion.",
}

// deriveCategory matches the item name against the category tables.
func deriveCategory(name string) (category, subcategory string) {
	lower := strings.ToLower(name)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.category, deriveSubcategory(entry.category, lower)
			}
		}
	}
	return "general", ""
}

func deriveSubcategory(category, lowerName string) string {
	for _, entry := range subcategoryKeywords[category] {
		for _, kw := range entry.keywords {
			if strings.Contains(lowerName, kw) {
				return entry.subcategory
			}
		}
	}
	return ""
}

// deriveSubstitutions returns substitutes for common ingredient names.
// Longest key wins so "sour cream" is not shadowed by "cream".
func deriveSubstitutions(name string) []string {
	lower := strings.ToLower(name)
	best := ""
	for key := range substitutionTable {
		if strings.Contains(lower, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return nil
	}
	return append([]string(nil), substitutionTable[best]...)
}

// deriveAllergens combines provider-reported cautions with keyword
// detection on the item name.
func deriveAllergens(name string, cautions []string) []string {
	seen := map[string]bool{}
	lower := strings.ToLower(name)

	for allergen, keywords := range allergenKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				seen[allergen] = true
				break
			}
		}
	}
	for _, caution := range cautions {
		seen[strings.ToLower(caution)] = true
	}

	out := make([]string, 0, len(seen))
	for allergen := range seen {
		out = append(out, allergen)
	}
	sort.Strings(out)
	return out
}

func recommendationFor(category string) string {
	if rec, ok := categoryRecommendations[category]; ok {
		return rec
	}
	return categoryRecommendations["general"]
}

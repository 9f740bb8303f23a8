// Package fusion merges multi-source food data into single
// confidence-scored records. Provider failures degrade confidence and
// completeness but never abort an aggregation; callers always receive a
// record.
package fusion

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/alchemorsel/fooddata/internal/domain/nutrition"
	"github.com/alchemorsel/fooddata/internal/domain/product"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/cache"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/metrics"
	"github.com/alchemorsel/fooddata/internal/ports/outbound"
	"go.uber.org/zap"
)

// Confidence contributions per source. Base credit applies as soon as any
// source or catalog responds; the cap keeps the score in [0, 1].
const (
	confidenceBase      = 0.3
	confidenceUSDA      = 0.3
	confidenceEdamam    = 0.2
	confidenceFatSecret = 0.2
	confidenceFallback  = 0.1
)

// Options tunes the engine.
type Options struct {
	// ProviderTimeout bounds each provider call; a slow provider cannot
	// block collection of the others beyond this.
	ProviderTimeout time.Duration
	// FusedTTL is the lifetime of fused records in the short-lived cache
	// used by the cart-optimization path.
	FusedTTL time.Duration
}

// Engine fans out to provider clients and fuses their answers.
type Engine struct {
	sources []outbound.NutritionSource
	catalog outbound.ProductCatalog
	recipes outbound.RecipeMetadata
	fused   cache.ResponseCache
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngine creates a fusion engine over the given providers. Sources
// must be supplied in priority order.
func NewEngine(sources []outbound.NutritionSource, catalog outbound.ProductCatalog, recipes outbound.RecipeMetadata, fusedCache cache.ResponseCache, opts Options, log *zap.Logger) *Engine {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 15 * time.Second
	}
	if opts.FusedTTL <= 0 {
		opts.FusedTTL = 2 * time.Minute
	}
	return &Engine{
		sources: sources,
		catalog: catalog,
		recipes: recipes,
		fused:   fusedCache,
		opts:    opts,
		logger:  log.Named("fusion-engine"),
		now:     time.Now,
	}
}

type sourceOutcome struct {
	result *outbound.NutritionResult
	err    error
}

// Enhance produces the fused record for one logical item. It never
// returns an error: partial failure degrades confidence, total failure
// yields a synthetic fallback record.
func (e *Engine) Enhance(ctx context.Context, item string) *product.Enhanced {
	outcomes := make(map[nutrition.Provider]sourceOutcome, len(e.sources))
	var catalogHit *outbound.CatalogProduct

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, source := range e.sources {
		if !source.IsConfigured() {
			continue
		}
		wg.Add(1)
		go func(src outbound.NutritionSource) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, e.opts.ProviderTimeout)
			defer cancel()

			result, err := src.Lookup(callCtx, item)
			mu.Lock()
			outcomes[src.Provider()] = sourceOutcome{result: result, err: err}
			mu.Unlock()
			if err != nil {
				e.logger.Warn("provider lookup failed",
					zap.String("provider", string(src.Provider())),
					zap.String("item", item),
					zap.Error(err))
			}
		}(source)
	}

	if e.catalog != nil && e.catalog.IsConfigured() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, e.opts.ProviderTimeout)
			defer cancel()

			hit, err := e.catalog.SearchProduct(callCtx, item)
			if err != nil {
				e.logger.Warn("catalog lookup failed",
					zap.String("item", item), zap.Error(err))
				return
			}
			mu.Lock()
			catalogHit = hit
			mu.Unlock()
		}()
	}

	wg.Wait()
	return e.fuse(item, outcomes, catalogHit)
}

// EnhanceCached serves the cart-optimization path: fused records are
// cached for a short TTL so repeated cart mutations do not re-query
// providers. Provider-level caching is unaffected.
func (e *Engine) EnhanceCached(ctx context.Context, item string) *product.Enhanced {
	key := cache.Key("fused", "enhance", nil, []byte(strings.ToLower(item)))
	if payload, ok := e.fused.Get(ctx, key); ok {
		var cached product.Enhanced
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached
		}
	}

	enhanced := e.Enhance(ctx, item)
	if payload, err := json.Marshal(enhanced); err == nil {
		e.fused.Set(ctx, key, payload, e.opts.FusedTTL)
	}
	return enhanced
}

// SuggestRecipes surfaces recipe metadata for a set of ingredients.
func (e *Engine) SuggestRecipes(ctx context.Context, ingredients []string, limit int) ([]outbound.RecipeSummary, error) {
	if e.recipes == nil || !e.recipes.IsConfigured() {
		return nil, nil
	}
	callCtx, cancel := context.WithTimeout(ctx, e.opts.ProviderTimeout)
	defer cancel()
	return e.recipes.FindByIngredients(callCtx, ingredients, limit)
}

// fuse aggregates settled provider outcomes into one record.
func (e *Engine) fuse(item string, outcomes map[nutrition.Provider]sourceOutcome, catalogHit *outbound.CatalogProduct) *product.Enhanced {
	// Primary source is chosen by fixed priority, never by recency or
	// magnitude. Iterating in priority order also keeps label order
	// deterministic, so warm-cache fusions are byte-identical.
	priority := []nutrition.Provider{
		nutrition.ProviderUSDA,
		nutrition.ProviderFatSecret,
		nutrition.ProviderEdamam,
	}

	records := map[nutrition.Provider]*nutrition.Record{}
	var dietLabels, healthLabels, cautions []string
	for _, provider := range priority {
		outcome, ok := outcomes[provider]
		if !ok || outcome.err != nil || outcome.result == nil {
			continue
		}
		if outcome.result.Record != nil {
			records[provider] = outcome.result.Record
		}
		dietLabels = append(dietLabels, outcome.result.DietLabels...)
		healthLabels = append(healthLabels, outcome.result.HealthLabels...)
		cautions = append(cautions, outcome.result.Cautions...)
	}
	primary := nutrition.ProviderFallback
	var primaryRecord nutrition.Record
	for _, p := range priority {
		if rec, ok := records[p]; ok {
			primary = p
			primaryRecord = *rec
			break
		}
	}

	confidence := 0.0
	if len(records) > 0 || catalogHit != nil {
		confidence = confidenceBase
	}
	if _, ok := records[nutrition.ProviderUSDA]; ok {
		confidence += confidenceUSDA
	}
	if _, ok := records[nutrition.ProviderEdamam]; ok {
		confidence += confidenceEdamam
	}
	if _, ok := records[nutrition.ProviderFatSecret]; ok {
		confidence += confidenceFatSecret
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence == 0 {
		confidence = confidenceFallback
		metrics.ObserveFusionFallback()
		e.logger.Info("synthesizing fallback record", zap.String("item", item))
	}

	category, subcategory := deriveCategory(item)
	enhanced := &product.Enhanced{
		ID:       "item-" + slug(item),
		Name:     item,
		Category: category,
		Nutrition: product.NutritionSummary{
			PrimarySource: primary,
			USDA:          records[nutrition.ProviderUSDA],
			Edamam:        records[nutrition.ProviderEdamam],
			FatSecret:     records[nutrition.ProviderFatSecret],
			Record:        primaryRecord,
		},
		Health: product.HealthProfile{
			DietLabels:   dedupe(dietLabels),
			HealthLabels: dedupe(healthLabels),
			Cautions:     dedupe(cautions),
			Allergens:    deriveAllergens(item, cautions),
		},
		Intel: product.Intelligence{
			Category:        category,
			Subcategory:     subcategory,
			Substitutions:   deriveSubstitutions(item),
			Recommendations: recommendationFor(category),
		},
		Confidence:  confidence,
		LastUpdated: e.now(),
	}

	if catalogHit != nil {
		enhanced.ID = catalogHit.ID
		enhanced.Brand = catalogHit.Brand
		if catalogHit.Category != "" {
			enhanced.Category = catalogHit.Category
		}
		if catalogHit.HasPrice {
			enhanced.Price = &product.Price{
				Amount:   catalogHit.Price,
				Currency: "USD",
				Provider: nutrition.ProviderKroger,
			}
		}
	}
	return enhanced
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}

func slug(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(lower), "-")
}

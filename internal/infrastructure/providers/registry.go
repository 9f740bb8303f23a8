// Package providers wires the per-provider leaf components (limiter,
// cache, retry policy, token manager) into constructed clients. Nothing
// here is ambient module state; the registry owns every instance and is
// built once at startup, which keeps tests isolated and allows several
// engines per process.
package providers

import (
	"github.com/alchemorsel/fooddata/internal/infrastructure/config"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/cache"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/edamam"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/fatsecret"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/kroger"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/ratelimit"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/retry"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/spoonacular"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/token"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/usda"
	"github.com/alchemorsel/fooddata/internal/ports/outbound"
	"github.com/alchemorsel/fooddata/pkg/logger"
	"go.uber.org/zap"
)

// defaultMaxAttempts is the retry budget applied to every provider call.
const defaultMaxAttempts = 3

// Registry holds one constructed client per provider.
type Registry struct {
	USDA        *usda.Client
	Edamam      *edamam.Client
	FatSecret   *fatsecret.Client
	Spoonacular *spoonacular.Client
	Kroger      *kroger.Client

	logger *zap.Logger
}

// NewRegistry constructs all provider clients. Each gets its own rate
// limiter; the response cache backend is shared since keys are
// provider-prefixed. Missing credentials leave a client unconfigured but
// constructed; the fusion layer skips it.
func NewRegistry(cfg *config.Config, respCache cache.ResponseCache, log *zap.Logger) *Registry {
	policy := retry.New(defaultMaxAttempts)

	krogerTokens := token.NewManager(
		"kroger",
		kroger.TokenURL(cfg.Providers.Kroger.BaseURL),
		cfg.Providers.Kroger.ClientID,
		cfg.Providers.Kroger.ClientSecret,
		kroger.Scope(),
		log,
	)

	r := &Registry{
		USDA: usda.NewClient(cfg.Providers.USDA,
			ratelimit.New("usda", cfg.Providers.USDA.RateLimit), respCache, policy, log),
		Edamam: edamam.NewClient(cfg.Providers.Edamam,
			ratelimit.New("edamam", cfg.Providers.Edamam.RateLimit), respCache, policy, log),
		FatSecret: fatsecret.NewClient(cfg.Providers.FatSecret,
			ratelimit.New("fatsecret", cfg.Providers.FatSecret.RateLimit), respCache, policy, log),
		Spoonacular: spoonacular.NewClient(cfg.Providers.Spoonacular,
			ratelimit.New("spoonacular", cfg.Providers.Spoonacular.RateLimit), respCache, policy, log),
		Kroger: kroger.NewClient(cfg.Providers.Kroger, krogerTokens,
			ratelimit.New("kroger", cfg.Providers.Kroger.RateLimit), respCache, policy, log),
		logger: log.Named("provider-registry"),
	}

	r.logger.Info("provider registry initialized",
		zap.Bool("usda", r.USDA.IsConfigured()),
		zap.Bool("edamam", r.Edamam.IsConfigured()),
		zap.Bool("fatsecret", r.FatSecret.IsConfigured()),
		zap.Bool("spoonacular", r.Spoonacular.IsConfigured()),
		zap.Bool("kroger", r.Kroger.IsConfigured()),
		zap.String("usda_key", logger.Redact(cfg.Providers.USDA.APIKey)))
	return r
}

// NutritionSources returns the nutrition providers in fusion priority
// order: USDA first, then FatSecret, then Edamam.
func (r *Registry) NutritionSources() []outbound.NutritionSource {
	return []outbound.NutritionSource{r.USDA, r.FatSecret, r.Edamam}
}

// Catalog returns the retail product catalog provider.
func (r *Registry) Catalog() outbound.ProductCatalog {
	return r.Kroger
}

// Recipes returns the recipe-metadata provider.
func (r *Registry) Recipes() outbound.RecipeMetadata {
	return r.Spoonacular
}

// ConfiguredProviders lists the names of providers with credentials.
func (r *Registry) ConfiguredProviders() []string {
	var names []string
	if r.USDA.IsConfigured() {
		names = append(names, "usda")
	}
	if r.FatSecret.IsConfigured() {
		names = append(names, "fatsecret")
	}
	if r.Edamam.IsConfigured() {
		names = append(names, "edamam")
	}
	if r.Spoonacular.IsConfigured() {
		names = append(names, "spoonacular")
	}
	if r.Kroger.IsConfigured() {
		names = append(names, "kroger")
	}
	return names
}

// AnyConfigured reports whether at least one provider has credentials.
func (r *Registry) AnyConfigured() bool {
	return r.USDA.IsConfigured() || r.Edamam.IsConfigured() ||
		r.FatSecret.IsConfigured() || r.Spoonacular.IsConfigured() ||
		r.Kroger.IsConfigured()
}

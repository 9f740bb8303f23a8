package fusion

import (
	"context"
	"testing"
	"time"

	"github.com/alchemorsel/fooddata/internal/domain/nutrition"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/cache"
	"github.com/alchemorsel/fooddata/internal/ports/outbound"
	"github.com/alchemorsel/fooddata/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// fakeSource scripts one provider's behavior per item.
type fakeSource struct {
	provider   nutrition.Provider
	configured bool
	records    map[string]*nutrition.Record
	labels     []string
	err        error
	calls      int
}

func (f *fakeSource) Provider() nutrition.Provider { return f.provider }
func (f *fakeSource) IsConfigured() bool           { return f.configured }

func (f *fakeSource) Lookup(ctx context.Context, item string) (*outbound.NutritionResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &outbound.NutritionResult{
		Provider:     f.provider,
		Record:       f.records[item],
		HealthLabels: f.labels,
	}, nil
}

type fakeCatalog struct {
	configured bool
	hit        *outbound.CatalogProduct
	err        error
}

func (f *fakeCatalog) IsConfigured() bool { return f.configured }
func (f *fakeCatalog) SearchProduct(ctx context.Context, term string) (*outbound.CatalogProduct, error) {
	return f.hit, f.err
}

type fakeRecipes struct {
	configured bool
	summaries  []outbound.RecipeSummary
}

func (f *fakeRecipes) IsConfigured() bool { return f.configured }
func (f *fakeRecipes) SearchRecipes(ctx context.Context, query string, limit int) ([]outbound.RecipeSummary, error) {
	return f.summaries, nil
}
func (f *fakeRecipes) FindByIngredients(ctx context.Context, ingredients []string, limit int) ([]outbound.RecipeSummary, error) {
	return f.summaries, nil
}

// EngineTestSuite provides a test suite for the fusion engine
type EngineTestSuite struct {
	suite.Suite
	usda      *fakeSource
	fatsecret *fakeSource
	edamam    *fakeSource
	catalog   *fakeCatalog
}

func (s *EngineTestSuite) SetupTest() {
	s.usda = &fakeSource{provider: nutrition.ProviderUSDA, configured: true,
		records: map[string]*nutrition.Record{}}
	s.fatsecret = &fakeSource{provider: nutrition.ProviderFatSecret, configured: true,
		records: map[string]*nutrition.Record{}}
	s.edamam = &fakeSource{provider: nutrition.ProviderEdamam, configured: true,
		records: map[string]*nutrition.Record{}}
	s.catalog = &fakeCatalog{}
}

// SetupSubTest gives every s.Run the same fresh fakes SetupTest provides,
// so call counts and configured flags never leak between subtests.
func (s *EngineTestSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *EngineTestSuite) newEngine() *Engine {
	return NewEngine(
		[]outbound.NutritionSource{s.usda, s.fatsecret, s.edamam},
		s.catalog,
		&fakeRecipes{},
		cache.NewMemory(),
		Options{ProviderTimeout: time.Second, FusedTTL: time.Minute},
		zap.NewNop(),
	)
}

func (s *EngineTestSuite) TestPriorityOrdering() {
	s.Run("USDAWins_WhenAllSourcesRespond", func() {
		s.usda.records["apple"] = &nutrition.Record{Calories: 52}
		s.fatsecret.records["apple"] = &nutrition.Record{Calories: 95}
		s.edamam.records["apple"] = &nutrition.Record{Calories: 104}

		enhanced := s.newEngine().Enhance(context.Background(), "apple")

		assert.Equal(s.T(), nutrition.ProviderUSDA, enhanced.Nutrition.PrimarySource)
		assert.Equal(s.T(), 52.0, enhanced.Nutrition.Calories)
	})

	s.Run("FatSecretWins_WhenUSDAFails", func() {
		s.usda.err = errors.NewProviderHTTPError("usda", 503, "")
		s.fatsecret.records["apple"] = &nutrition.Record{Calories: 95}
		s.edamam.records["apple"] = &nutrition.Record{Calories: 104}

		enhanced := s.newEngine().Enhance(context.Background(), "apple")

		assert.Equal(s.T(), nutrition.ProviderFatSecret, enhanced.Nutrition.PrimarySource)
		assert.Equal(s.T(), 95.0, enhanced.Nutrition.Calories)
	})

	s.Run("EdamamWins_WhenLastStanding", func() {
		s.usda.err = errors.NewProviderHTTPError("usda", 503, "")
		s.fatsecret.configured = false
		s.edamam.records["apple"] = &nutrition.Record{Calories: 104}

		enhanced := s.newEngine().Enhance(context.Background(), "apple")

		assert.Equal(s.T(), nutrition.ProviderEdamam, enhanced.Nutrition.PrimarySource)
	})

	s.Run("UnconfiguredSourcesAreNeverQueried", func() {
		s.usda.configured = false
		s.edamam.records["apple"] = &nutrition.Record{Calories: 104}

		s.newEngine().Enhance(context.Background(), "apple")

		assert.Zero(s.T(), s.usda.calls)
		assert.Equal(s.T(), 1, s.edamam.calls)
	})
}

func (s *EngineTestSuite) TestConfidenceScoring() {
	record := &nutrition.Record{Calories: 52}

	s.Run("AllThreeSources_CapsAtOne", func() {
		s.usda.records["apple"] = record
		s.fatsecret.records["apple"] = record
		s.edamam.records["apple"] = record

		enhanced := s.newEngine().Enhance(context.Background(), "apple")

		// 0.3 base + 0.3 + 0.2 + 0.2 = 1.0
		assert.Equal(s.T(), 1.0, enhanced.Confidence)
	})

	s.Run("USDAOnly", func() {
		s.usda.records["apple"] = record
		s.fatsecret.configured = false
		s.edamam.configured = false

		enhanced := s.newEngine().Enhance(context.Background(), "apple")

		assert.InDelta(s.T(), 0.6, enhanced.Confidence, 1e-9)
	})

	s.Run("EdamamOnly", func() {
		s.usda.configured = false
		s.fatsecret.configured = false
		s.edamam.records["apple"] = record

		enhanced := s.newEngine().Enhance(context.Background(), "apple")

		assert.InDelta(s.T(), 0.5, enhanced.Confidence, 1e-9)
	})

	s.Run("MoreSourcesNeverLowerConfidence", func() {
		s.usda.records["apple"] = record
		s.fatsecret.configured = false
		s.edamam.configured = false
		one := s.newEngine().Enhance(context.Background(), "apple").Confidence

		s.SetupTest()
		s.usda.records["apple"] = record
		s.edamam.records["apple"] = record
		s.fatsecret.configured = false
		two := s.newEngine().Enhance(context.Background(), "apple").Confidence

		assert.GreaterOrEqual(s.T(), two, one)
	})

	s.Run("CatalogHitAloneEarnsBaseCredit", func() {
		s.usda.configured = false
		s.fatsecret.configured = false
		s.edamam.configured = false
		s.catalog.configured = true
		s.catalog.hit = &outbound.CatalogProduct{ID: "p1", Name: "Apple", HasPrice: true, Price: 0.79}

		enhanced := s.newEngine().Enhance(context.Background(), "apple")

		assert.InDelta(s.T(), 0.3, enhanced.Confidence, 1e-9)
	})
}

func (s *EngineTestSuite) TestFallbackRecord() {
	s.Run("AllSourcesFail", func() {
		s.usda.err = errors.NewProviderHTTPError("usda", 503, "")
		s.fatsecret.err = errors.NewProviderHTTPError("fatsecret", 500, "")
		s.edamam.err = errors.NewProviderHTTPError("edamam", 503, "")

		enhanced := s.newEngine().Enhance(context.Background(), "dragon fruit")

		require.NotNil(s.T(), enhanced)
		assert.Equal(s.T(), nutrition.ProviderFallback, enhanced.Nutrition.PrimarySource)
		assert.True(s.T(), enhanced.IsFallback())
		assert.InDelta(s.T(), 0.1, enhanced.Confidence, 1e-9)
		assert.Zero(s.T(), enhanced.Nutrition.Calories)
	})

	s.Run("NothingConfigured", func() {
		s.usda.configured = false
		s.fatsecret.configured = false
		s.edamam.configured = false

		enhanced := s.newEngine().Enhance(context.Background(), "salt")

		assert.True(s.T(), enhanced.IsFallback())
		assert.InDelta(s.T(), 0.1, enhanced.Confidence, 1e-9)
	})
}

func (s *EngineTestSuite) TestCatalogEnrichment() {
	s.usda.records["milk"] = &nutrition.Record{Calories: 42}
	s.catalog.configured = true
	s.catalog.hit = &outbound.CatalogProduct{
		ID:       "0001111041700",
		Name:     "Kroger 2% Reduced Fat Milk",
		Brand:    "Kroger",
		Category: "dairy",
		Price:    2.99,
		HasPrice: true,
	}

	enhanced := s.newEngine().Enhance(context.Background(), "milk")

	assert.Equal(s.T(), "0001111041700", enhanced.ID)
	assert.Equal(s.T(), "Kroger", enhanced.Brand)
	require.NotNil(s.T(), enhanced.Price)
	assert.Equal(s.T(), 2.99, enhanced.Price.Amount)
	assert.Equal(s.T(), "USD", enhanced.Price.Currency)
	// Nutrition still comes from the priority sources.
	assert.Equal(s.T(), nutrition.ProviderUSDA, enhanced.Nutrition.PrimarySource)
}

func (s *EngineTestSuite) TestIntelligence() {
	s.Run("CategoryAndSubcategory", func() {
		enhanced := s.newEngine().Enhance(context.Background(), "chicken breast")
		assert.Equal(s.T(), "meat", enhanced.Intel.Category)
		assert.Equal(s.T(), "poultry", enhanced.Intel.Subcategory)
	})

	s.Run("LongestSubstitutionKeyWins", func() {
		enhanced := s.newEngine().Enhance(context.Background(), "sour cream")
		assert.Equal(s.T(), []string{"greek yogurt"}, enhanced.Intel.Substitutions)
	})

	s.Run("AllergenDetection", func() {
		enhanced := s.newEngine().Enhance(context.Background(), "wheat bread")
		assert.Contains(s.T(), enhanced.Health.Allergens, "wheat")
	})

	s.Run("UnknownItemIsGeneral", func() {
		enhanced := s.newEngine().Enhance(context.Background(), "baking soda")
		assert.Equal(s.T(), "general", enhanced.Intel.Category)
		assert.NotEmpty(s.T(), enhanced.Intel.Recommendations)
	})
}

func (s *EngineTestSuite) TestEnhanceCached() {
	s.usda.records["apple"] = &nutrition.Record{Calories: 52}
	engine := s.newEngine()

	first := engine.EnhanceCached(context.Background(), "apple")
	second := engine.EnhanceCached(context.Background(), "Apple")

	// One provider round trip; the second call, case-insensitively, is
	// served from the fused cache byte-for-byte.
	assert.Equal(s.T(), 1, s.usda.calls)
	assert.Equal(s.T(), first.Nutrition.Calories, second.Nutrition.Calories)
	assert.Equal(s.T(), first.Confidence, second.Confidence)
}

func (s *EngineTestSuite) TestIdempotentFusion() {
	s.usda.records["apple"] = &nutrition.Record{Calories: 52}
	s.edamam.records["apple"] = &nutrition.Record{Calories: 104}
	s.edamam.labels = []string{"VEGAN", "VEGETARIAN"}
	engine := s.newEngine()

	first := engine.Enhance(context.Background(), "apple")
	second := engine.Enhance(context.Background(), "apple")

	assert.Equal(s.T(), first.Nutrition, second.Nutrition)
	assert.Equal(s.T(), first.Confidence, second.Confidence)
	assert.Equal(s.T(), first.Health, second.Health)
	assert.Equal(s.T(), first.Intel, second.Intel)
}

func (s *EngineTestSuite) TestSuggestRecipes() {
	s.Run("UnconfiguredProviderYieldsNothing", func() {
		engine := s.newEngine()
		summaries, err := engine.SuggestRecipes(context.Background(), []string{"apple"}, 5)
		require.NoError(s.T(), err)
		assert.Nil(s.T(), summaries)
	})

	s.Run("ConfiguredProviderPassesThrough", func() {
		engine := NewEngine(nil, nil,
			&fakeRecipes{configured: true, summaries: []outbound.RecipeSummary{{ID: 1, Title: "Apple Cake"}}},
			cache.NewMemory(), Options{}, zap.NewNop())

		summaries, err := engine.SuggestRecipes(context.Background(), []string{"apple"}, 5)
		require.NoError(s.T(), err)
		require.Len(s.T(), summaries, 1)
		assert.Equal(s.T(), "Apple Cake", summaries[0].Title)
	})
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

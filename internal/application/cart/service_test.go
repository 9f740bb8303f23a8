package cart

import (
	"context"
	"testing"

	"github.com/alchemorsel/fooddata/internal/domain/nutrition"
	"github.com/alchemorsel/fooddata/internal/domain/product"
	"github.com/alchemorsel/fooddata/internal/infrastructure/config"
	"github.com/alchemorsel/fooddata/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testCartConfig = config.CartConfig{
	TaxRate:           0.08,
	DeliveryFee:       5.99,
	FreeDeliveryAbove: 35.0,
	DefaultItemPrice:  3.99,
}

// fakeEnhancer returns scripted enhanced records by item name.
type fakeEnhancer struct {
	products map[string]*product.Enhanced
}

func (f *fakeEnhancer) EnhanceCached(ctx context.Context, item string) *product.Enhanced {
	if p, ok := f.products[item]; ok {
		return p
	}
	return &product.Enhanced{
		ID:   "item-" + item,
		Name: item,
		Nutrition: product.NutritionSummary{
			PrimarySource: nutrition.ProviderFallback,
		},
		Confidence: 0.1,
	}
}

func newTestService(products map[string]*product.Enhanced) *Service {
	return NewService(&fakeEnhancer{products: products}, testCartConfig, zap.NewNop())
}

func TestAddItem_PricesFromProvider(t *testing.T) {
	svc := newTestService(map[string]*product.Enhanced{
		"milk": {
			ID:    "0001111041700",
			Name:  "Kroger 2% Reduced Fat Milk",
			Price: &product.Price{Amount: 2.99, Currency: "USD", Provider: nutrition.ProviderKroger},
		},
	})
	c := svc.CreateCart()

	item, err := svc.AddItem(context.Background(), c.ID(), "milk", 2)
	require.NoError(t, err)
	assert.Equal(t, 2.99, item.UnitPrice)
	assert.Equal(t, "0001111041700", item.ProductID)
	require.NotNil(t, item.Snapshot)
	assert.Equal(t, 5.98, c.Subtotal())
}

func TestAddItem_DefaultPriceWithoutCatalogHit(t *testing.T) {
	svc := newTestService(nil)
	c := svc.CreateCart()

	item, err := svc.AddItem(context.Background(), c.ID(), "dragon fruit", 1)
	require.NoError(t, err)
	assert.Equal(t, 3.99, item.UnitPrice)
}

func TestAddItem_UnknownCart(t *testing.T) {
	svc := newTestService(nil)

	_, err := svc.AddItem(context.Background(), uuid.New(), "milk", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc := newTestService(nil)
	c := svc.CreateCart()

	_, err := svc.AddItem(context.Background(), c.ID(), "milk", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
}

func TestEstimatedTotal_FeeWaivedAboveThreshold(t *testing.T) {
	svc := newTestService(map[string]*product.Enhanced{
		"roast": {
			ID:    "p-roast",
			Price: &product.Price{Amount: 20.00, Currency: "USD", Provider: nutrition.ProviderKroger},
		},
	})
	c := svc.CreateCart()

	_, err := svc.AddItem(context.Background(), c.ID(), "roast", 2)
	require.NoError(t, err)

	// 40.00 subtotal + 3.20 tax, no delivery fee.
	assert.Equal(t, 0.0, c.DeliveryFee())
	assert.Equal(t, 43.20, c.EstimatedTotal())
}

func TestRemoveAndUpdate(t *testing.T) {
	svc := newTestService(nil)
	c := svc.CreateCart()

	item, err := svc.AddItem(context.Background(), c.ID(), "milk", 1)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateQuantity(c.ID(), item.ID, 3))
	assert.Equal(t, 3, c.ItemsCount())

	require.NoError(t, svc.RemoveItem(c.ID(), item.ID))
	assert.Empty(t, c.Items())

	err = svc.RemoveItem(c.ID(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestGetCart(t *testing.T) {
	svc := newTestService(nil)
	c := svc.CreateCart()

	got, err := svc.GetCart(c.ID())
	require.NoError(t, err)
	assert.Equal(t, c.ID(), got.ID())

	_, err = svc.GetCart(uuid.New())
	require.Error(t, err)
}

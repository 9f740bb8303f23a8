// Package cart provides the shopping-cart application service, enriching
// cart lines from the fusion engine.
package cart

import (
	"context"
	"sync"

	cartdomain "github.com/alchemorsel/fooddata/internal/domain/cart"
	"github.com/alchemorsel/fooddata/internal/domain/product"
	"github.com/alchemorsel/fooddata/internal/infrastructure/config"
	"github.com/alchemorsel/fooddata/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Enhancer is the slice of the fusion engine the cart needs. The cached
// variant is used so repeated cart mutations do not re-query providers.
type Enhancer interface {
	EnhanceCached(ctx context.Context, item string) *product.Enhanced
}

// Service manages carts and prices their lines from fused product data.
type Service struct {
	enhancer     Enhancer
	rules        cartdomain.PricingRules
	defaultPrice float64
	logger       *zap.Logger

	mu    sync.RWMutex
	carts map[uuid.UUID]*cartdomain.Cart
}

// NewService creates the cart service.
func NewService(enh Enhancer, cfg config.CartConfig, log *zap.Logger) *Service {
	return &Service{
		enhancer: enh,
		rules: cartdomain.PricingRules{
			TaxRate:           cfg.TaxRate,
			DeliveryFee:       cfg.DeliveryFee,
			FreeDeliveryAbove: cfg.FreeDeliveryAbove,
		},
		defaultPrice: cfg.DefaultItemPrice,
		logger:       log.Named("cart-service"),
		carts:        make(map[uuid.UUID]*cartdomain.Cart),
	}
}

// CreateCart opens a new empty cart.
func (s *Service) CreateCart() *cartdomain.Cart {
	c := cartdomain.New(s.rules)
	s.mu.Lock()
	s.carts[c.ID()] = c
	s.mu.Unlock()
	return c
}

// GetCart returns a cart by ID.
func (s *Service) GetCart(id uuid.UUID) (*cartdomain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[id]
	if !ok {
		return nil, errors.NewAppError(errors.CodeNotFound, "Cart not found", "")
	}
	return c, nil
}

// AddItem enriches the item through the fusion engine, prices it from the
// primary provider price (falling back to the default), and adds it to
// the cart. The enhanced record is snapshotted onto the line at add-time.
func (s *Service) AddItem(ctx context.Context, cartID uuid.UUID, name string, quantity int) (*cartdomain.Item, error) {
	c, err := s.GetCart(cartID)
	if err != nil {
		return nil, err
	}

	enhanced := s.enhancer.EnhanceCached(ctx, name)

	price := s.defaultPrice
	productID := ""
	if enhanced != nil {
		productID = enhanced.ID
		if enhanced.Price != nil && enhanced.Price.Amount > 0 {
			price = enhanced.Price.Amount
		}
	}

	item, err := c.AddItem(name, productID, quantity, price, enhanced)
	if err != nil {
		return nil, errors.NewBadRequestError(err.Error())
	}

	s.logger.Debug("cart item added",
		zap.String("cart_id", cartID.String()),
		zap.String("name", name),
		zap.Float64("unit_price", price),
		zap.Bool("priced_from_provider", enhanced != nil && enhanced.Price != nil))
	return item, nil
}

// RemoveItem removes a line from the cart.
func (s *Service) RemoveItem(cartID, itemID uuid.UUID) error {
	c, err := s.GetCart(cartID)
	if err != nil {
		return err
	}
	if err := c.RemoveItem(itemID); err != nil {
		return errors.NewAppError(errors.CodeNotFound, "Cart item not found", "")
	}
	return nil
}

// UpdateQuantity sets the quantity of a line; zero removes it.
func (s *Service) UpdateQuantity(cartID, itemID uuid.UUID, quantity int) error {
	c, err := s.GetCart(cartID)
	if err != nil {
		return err
	}
	if err := c.UpdateQuantity(itemID, quantity); err != nil {
		if err == cartdomain.ErrItemNotFound {
			return errors.NewAppError(errors.CodeNotFound, "Cart item not found", "")
		}
		return errors.NewBadRequestError(err.Error())
	}
	return nil
}

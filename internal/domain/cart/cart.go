// Package cart implements the shopping-cart aggregate. Totals are derived
// fields, recomputed on every mutation and never independently set.
package cart

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/alchemorsel/fooddata/internal/domain/product"
	"github.com/google/uuid"
)

var (
	ErrEmptyName       = errors.New("cart item name cannot be empty")
	ErrInvalidQuantity = errors.New("cart item quantity must be positive")
	ErrItemNotFound    = errors.New("cart item not found")
)

// PricingRules carries the flat pricing policy applied to a cart.
type PricingRules struct {
	TaxRate           float64
	DeliveryFee       float64
	FreeDeliveryAbove float64
}

// Item is one cart line. Snapshot, when present, is the enhanced product
// the line was enriched from at add-time; a later re-fusion does not
// retroactively change it.
type Item struct {
	ID        uuid.UUID         `json:"id"`
	ProductID string            `json:"product_id,omitempty"`
	Name      string            `json:"name"`
	Quantity  int               `json:"quantity"`
	UnitPrice float64           `json:"unit_price"`
	Snapshot  *product.Enhanced `json:"snapshot,omitempty"`
	AddedAt   time.Time         `json:"added_at"`
}

// Cart owns a mutable ordered set of items plus derived totals.
type Cart struct {
	id          uuid.UUID
	items       []*Item
	rules       PricingRules
	subtotal    float64
	taxAmount   float64
	deliveryFee float64
	itemsCount  int
	updatedAt   time.Time
}

// New creates an empty cart governed by the given pricing rules.
func New(rules PricingRules) *Cart {
	return &Cart{
		id:        uuid.New(),
		rules:     rules,
		updatedAt: time.Now(),
	}
}

func (c *Cart) ID() uuid.UUID        { return c.id }
func (c *Cart) Subtotal() float64    { return c.subtotal }
func (c *Cart) TaxAmount() float64   { return c.taxAmount }
func (c *Cart) DeliveryFee() float64 { return c.deliveryFee }
func (c *Cart) ItemsCount() int      { return c.itemsCount }
func (c *Cart) UpdatedAt() time.Time { return c.updatedAt }

// EstimatedTotal is subtotal + tax + delivery fee.
func (c *Cart) EstimatedTotal() float64 {
	return round2(c.subtotal + c.taxAmount + c.deliveryFee)
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []*Item {
	out := make([]*Item, len(c.items))
	copy(out, c.items)
	return out
}

// AddItem either increments an existing line (matched by product identity,
// else by name) or inserts a new line.
func (c *Cart) AddItem(name, productID string, quantity int, unitPrice float64, snapshot *product.Enhanced) (*Item, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	if existing := c.findLine(name, productID); existing != nil {
		existing.Quantity += quantity
		c.recompute()
		return existing, nil
	}

	item := &Item{
		ID:        uuid.New(),
		ProductID: productID,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Snapshot:  snapshot,
		AddedAt:   time.Now(),
	}
	c.items = append(c.items, item)
	c.recompute()
	return item, nil
}

// UpdateQuantity sets an item's quantity; zero removes the line.
func (c *Cart) UpdateQuantity(itemID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	for i, item := range c.items {
		if item.ID != itemID {
			continue
		}
		if quantity == 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
		} else {
			item.Quantity = quantity
		}
		c.recompute()
		return nil
	}
	return ErrItemNotFound
}

// RemoveItem deletes a line from the cart.
func (c *Cart) RemoveItem(itemID uuid.UUID) error {
	return c.UpdateQuantity(itemID, 0)
}

func (c *Cart) findLine(name, productID string) *Item {
	for _, item := range c.items {
		if productID != "" && item.ProductID == productID {
			return item
		}
		if strings.EqualFold(item.Name, name) {
			return item
		}
	}
	return nil
}

// recompute rederives every total from the item lines.
func (c *Cart) recompute() {
	subtotal := 0.0
	count := 0
	for _, item := range c.items {
		subtotal += item.UnitPrice * float64(item.Quantity)
		count += item.Quantity
	}

	c.subtotal = round2(subtotal)
	c.taxAmount = round2(subtotal * c.rules.TaxRate)
	if subtotal >= c.rules.FreeDeliveryAbove || len(c.items) == 0 {
		c.deliveryFee = 0
	} else {
		c.deliveryFee = c.rules.DeliveryFee
	}
	c.itemsCount = count
	c.updatedAt = time.Now()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

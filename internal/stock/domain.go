package stock

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType enumerates the reason codes for stock movements.
type MovementType string

const (
	// MovementPurchase represents inbound stock from a purchase or opening balance.
	MovementPurchase MovementType = "purchase"
	// MovementSale represents an outbound movement caused by a sale.
	MovementSale MovementType = "sale"
	// MovementAdjustment represents a manual correction.
	MovementAdjustment MovementType = "adjustment"
)

// Entry is the current on-hand quantity of a product at a location.
type Entry struct {
	ProductID  int64     `json:"product_id"`
	LocationID int64     `json:"location_id"`
	Quantity   int64     `json:"quantity"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Movement is an immutable audit record of a quantity change and its cause.
// Movements are never mutated or deleted.
type Movement struct {
	ID          int64        `json:"id"`
	ProductID   int64        `json:"product_id"`
	LocationID  int64        `json:"location_id"`
	Type        MovementType `json:"type"`
	Delta       int64        `json:"delta"`
	ReferenceID *int64       `json:"reference_id,omitempty"`
	ActorID     int64        `json:"actor_id"`
	CreatedAt   time.Time    `json:"created_at"`
}

// AdjustInput describes a relative stock change.
type AdjustInput struct {
	ProductID   int64
	LocationID  int64
	Delta       int64
	Type        MovementType
	ReferenceID *int64
	ActorID     int64
}

// MovementFilter filters the movement log.
type MovementFilter struct {
	ProductID int64
	Type      MovementType
	Limit     int
}

// ProductStock pairs a product with its total on-hand quantity across
// locations, for low-stock classification.
type ProductStock struct {
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Total     int64           `json:"total"`
}

var lowStockPriceTier = decimal.NewFromInt(3000)

// IsLowStock classifies a product as low on stock using a two-tier threshold
// based on unit value: cheap products run low under 20 units, expensive ones
// under 5. Pure function over current totals, nothing is stored.
func IsLowStock(total int64, price decimal.Decimal) bool {
	if price.GreaterThanOrEqual(lowStockPriceTier) {
		return total < 5
	}
	return total < 20
}

// ErrInvalidDelta indicates a zero adjustment.
var ErrInvalidDelta = errors.New("stock: delta must be non zero")

// ErrEntryNotFound indicates a missing stock entry row.
var ErrEntryNotFound = errors.New("stock: entry not found")

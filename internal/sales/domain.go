package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is a committed point-of-sale transaction. A sale only ever exists in
// its committed form; a finalization that fails leaves no trace.
type Sale struct {
	ID        int64           `json:"id"`
	Reference uuid.UUID       `json:"reference"`
	ClientID  *int64          `json:"client_id,omitempty"`
	Total     decimal.Decimal `json:"total"`
	CreatedBy int64           `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

// LineItem is one product position on a sale, captured at the price charged.
type LineItem struct {
	ID          int64           `json:"id"`
	SaleID      int64           `json:"sale_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// SaleDetails joins a sale with its line items for the detail view.
type SaleDetails struct {
	Sale  Sale       `json:"sale"`
	Lines []LineItem `json:"lines"`
}

// FinalizeLine is one cart line submitted for finalization. UnitPrice is
// optional; when omitted the current catalog price is charged.
type FinalizeLine struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// FinalizeSaleRequest is the full-sale payload: the whole cart plus the
// total the client computed, verified server side.
type FinalizeSaleRequest struct {
	ClientID   *int64          `json:"client_id,omitempty"`
	LocationID int64           `json:"location_id,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Lines      []FinalizeLine  `json:"lines" validate:"required,min=1,dive"`
}

// ListFilter narrows the sale list.
type ListFilter struct {
	ClientID *int64
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

// Normalize applies list defaults.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
}

// Offset derives the SQL offset.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// ProductInfo is the catalog snapshot a finalization validates against,
// read inside the sale transaction.
type ProductInfo struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	IsActive bool
}

// totalTolerance is the accepted drift between the client-computed total and
// the server-side sum of line totals.
var totalTolerance = decimal.NewFromFloat(0.01)

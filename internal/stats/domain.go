package stats

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductSales aggregates a product's sold units and revenue over a window.
type ProductSales struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Units     int64           `json:"units"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// Summary is the all-time (or windowed) sales breakdown per product.
type Summary struct {
	Items   []ProductSales  `json:"items"`
	Revenue decimal.Decimal `json:"revenue"`
	Sales   int64           `json:"sales"`
}

// DayBreakdown is the register-close view: today's sold products and total.
type DayBreakdown struct {
	Date  string          `json:"date"`
	Items []ProductSales  `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// SummaryFilter bounds the summary window. Nil bounds mean all time.
type SummaryFilter struct {
	From *time.Time
	To   *time.Time
}

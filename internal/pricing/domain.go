package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Change is one price history entry: the price a product changed TO and when.
// The history is append-only.
type Change struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	ChangedAt time.Time       `json:"changed_at"`
}

// SortDir orders a price history query.
type SortDir string

const (
	// Asc returns oldest change first.
	Asc SortDir = "asc"
	// Desc returns newest change first.
	Desc SortDir = "desc"
)

func (d SortDir) valid() bool {
	return d == Asc || d == Desc
}

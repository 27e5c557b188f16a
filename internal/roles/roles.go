package roles

import (
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Role is a user's access profile. Roles gate which screens a frontend
// shows; the API itself does not enforce them.
type Role string

const (
	// Administrator sees every screen.
	Administrator Role = "administrator"
	// Worker operates the register: products, sales and daily figures.
	Worker Role = "worker"
	// Client only browses the product list.
	Client Role = "client"
)

// Screen identifies a frontend screen.
type Screen string

const (
	ScreenProducts     Screen = "products"
	ScreenProviders    Screen = "providers"
	ScreenSales        Screen = "sales"
	ScreenStatistics   Screen = "statistics"
	ScreenSalesToday   Screen = "sales-today"
	ScreenPriceHistory Screen = "price-history"
	ScreenUsers        Screen = "users"
	ScreenAuditLog     Screen = "audit-log"
)

// All lists every known role.
func All() []Role {
	return []Role{Administrator, Worker, Client}
}

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	switch r {
	case Administrator, Worker, Client:
		return true
	}
	return false
}

// ScreensFor derives the allowed screens from a role. Pure function, no
// state: callers that switch roles just call it again.
func ScreensFor(role Role) ([]Screen, error) {
	switch role {
	case Administrator:
		return []Screen{
			ScreenProducts,
			ScreenProviders,
			ScreenSales,
			ScreenStatistics,
			ScreenSalesToday,
			ScreenPriceHistory,
			ScreenUsers,
			ScreenAuditLog,
		}, nil
	case Worker:
		return []Screen{
			ScreenProducts,
			ScreenSales,
			ScreenStatistics,
			ScreenSalesToday,
		}, nil
	case Client:
		return []Screen{ScreenProducts}, nil
	default:
		return nil, shared.ErrNotFound
	}
}

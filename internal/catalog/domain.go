package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item. Quantity is the denormalized total across all
// stock locations, kept for list views; the stock ledger holds the
// authoritative per-location quantities.
type Product struct {
	ID          int64           `json:"id"`
	SKU         string          `json:"sku"`
	Barcode     *string         `json:"barcode,omitempty"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	Image       *string         `json:"image,omitempty"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Category groups products. Deleting a category that products still
// reference is rejected.
type Category struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Provider is a supplier. Soft-deletable like products.
type Provider struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateProductRequest carries the fields accepted on product creation.
// Quantity, when positive, becomes the opening stock entry at the default
// location together with a "purchase" movement.
type CreateProductRequest struct {
	SKU         string          `json:"sku" validate:"required,max=50"`
	Barcode     *string         `json:"barcode,omitempty" validate:"omitempty,max=64"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description *string         `json:"description,omitempty"`
	CategoryID  *int64          `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity" validate:"gte=0"`
	Image       *string         `json:"image,omitempty"`
}

// UpdateProductRequest updates an existing product. Nil fields are left
// untouched. A changed price appends a price history entry recording the new
// price at the time of the change.
type UpdateProductRequest struct {
	Barcode     *string          `json:"barcode,omitempty" validate:"omitempty,max=64"`
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string          `json:"description,omitempty"`
	CategoryID  *int64           `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Image       *string          `json:"image,omitempty"`
}

// CreateCategoryRequest creates a category.
type CreateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description,omitempty"`
}

// CreateProviderRequest creates a provider.
type CreateProviderRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=300"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
}

// UpdateProviderRequest updates a provider. Nil fields are left untouched.
type UpdateProviderRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=300"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
}

package clients

import "time"

// Client is a customer a sale can be attributed to.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateClientRequest is the create payload.
type CreateClientRequest struct {
	Name    string  `json:"name" validate:"required,max=120"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=255"`
}

// UpdateClientRequest is the update payload.
type UpdateClientRequest struct {
	Name    string  `json:"name" validate:"required,max=120"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=255"`
}

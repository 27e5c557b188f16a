package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Repository abstracts catalog persistence.
type Repository interface {
	CreateProduct(ctx context.Context, p Product) (Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	UpdateProduct(ctx context.Context, p Product) error
	DeactivateProduct(ctx context.Context, id int64) (bool, error)

	CreateCategory(ctx context.Context, c Category) (Category, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	CountProductsInCategory(ctx context.Context, id int64) (int, error)

	CreateProvider(ctx context.Context, p Provider) (Provider, error)
	GetProvider(ctx context.Context, id int64) (Provider, error)
	ListProviders(ctx context.Context, filters shared.ListFilters) ([]Provider, int, error)
	UpdateProvider(ctx context.Context, p Provider) error
	DeactivateProvider(ctx context.Context, id int64) (bool, error)
}

// StockRecorder posts the opening stock entry for a newly created product.
type StockRecorder interface {
	RecordPurchase(ctx context.Context, productID, locationID, qty, actorID int64) error
}

// PriceRecorder appends price history entries.
type PriceRecorder interface {
	RecordChange(ctx context.Context, productID int64, price decimal.Decimal, at time.Time) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo            Repository
	stock           StockRecorder
	prices          PriceRecorder
	audit           AuditPort
	defaultLocation int64
}

// NewService builds Service. stock, prices and audit may be nil in tests.
func NewService(repo Repository, stock StockRecorder, prices PriceRecorder, audit AuditPort, defaultLocation int64) *Service {
	if defaultLocation == 0 {
		defaultLocation = 1
	}
	return &Service{repo: repo, stock: stock, prices: prices, audit: audit, defaultLocation: defaultLocation}
}

// CreateProduct validates and inserts a product. A positive opening quantity
// also writes the initial stock entry plus a "purchase" movement.
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest, actorID int64) (Product, error) {
	if err := validateCreate(req); err != nil {
		return Product{}, err
	}
	product := Product{
		SKU:         req.SKU,
		Barcode:     req.Barcode,
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Image:       req.Image,
		IsActive:    true,
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: create product: %w", err)
	}
	if req.Quantity > 0 && s.stock != nil {
		if err := s.stock.RecordPurchase(ctx, created.ID, s.defaultLocation, req.Quantity, actorID); err != nil {
			return Product{}, fmt.Errorf("catalog: record opening stock: %w", err)
		}
	}
	s.auditRecord(ctx, actorID, "catalog:product:create", "product", created.ID, map[string]any{
		"sku": created.SKU, "quantity": created.Quantity, "price": created.Price.String(),
	})
	return created, nil
}

// GetProduct returns a product by id.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrNotFound
	}
	return s.repo.GetProduct(ctx, id)
}

// ListProducts returns a filtered product page and the total match count.
func (s *Service) ListProducts(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	filters.Normalize()
	return s.repo.ListProducts(ctx, filters)
}

// UpdateProduct applies non-nil fields. A price change appends a price
// history entry carrying the new price and the change timestamp.
func (s *Service) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest, actorID int64) (Product, error) {
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !existing.IsActive {
		return Product{}, fmt.Errorf("%w: product %d is inactive", shared.ErrNotFound, id)
	}
	if err := validateUpdate(req); err != nil {
		return Product{}, err
	}

	priceChanged := false
	updated := existing
	if req.Barcode != nil {
		updated.Barcode = req.Barcode
	}
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Description != nil {
		updated.Description = req.Description
	}
	if req.CategoryID != nil {
		updated.CategoryID = req.CategoryID
	}
	if req.Image != nil {
		updated.Image = req.Image
	}
	if req.Price != nil && !req.Price.Equal(existing.Price) {
		updated.Price = *req.Price
		priceChanged = true
	}

	if err := s.repo.UpdateProduct(ctx, updated); err != nil {
		return Product{}, fmt.Errorf("catalog: update product: %w", err)
	}
	if priceChanged && s.prices != nil {
		if err := s.prices.RecordChange(ctx, id, updated.Price, time.Now().UTC()); err != nil {
			return Product{}, fmt.Errorf("catalog: record price change: %w", err)
		}
	}
	s.auditRecord(ctx, actorID, "catalog:product:update", "product", id, map[string]any{
		"price_changed": priceChanged,
	})
	return s.repo.GetProduct(ctx, id)
}

// DeactivateProduct flips the active flag off. Idempotent: deactivating an
// already-inactive product succeeds without writing anything.
func (s *Service) DeactivateProduct(ctx context.Context, id int64, actorID int64) error {
	changed, err := s.repo.DeactivateProduct(ctx, id)
	if err != nil {
		return err
	}
	if changed {
		s.auditRecord(ctx, actorID, "catalog:product:deactivate", "product", id, nil)
	}
	return nil
}

// CreateCategory inserts a category with a unique name.
func (s *Service) CreateCategory(ctx context.Context, req CreateCategoryRequest, actorID int64) (Category, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return Category{}, err
	}
	created, err := s.repo.CreateCategory(ctx, Category{Name: req.Name, Description: req.Description})
	if err != nil {
		return Category{}, fmt.Errorf("catalog: create category: %w", err)
	}
	s.auditRecord(ctx, actorID, "catalog:category:create", "category", created.ID, nil)
	return created, nil
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// DeleteCategory removes a category. Deletion is restricted while any
// product still references it.
func (s *Service) DeleteCategory(ctx context.Context, id int64, actorID int64) error {
	if _, err := s.repo.GetCategory(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountProductsInCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("catalog: count category products: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: category %d is referenced by %d products", shared.ErrConflict, id, count)
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.auditRecord(ctx, actorID, "catalog:category:delete", "category", id, nil)
	return nil
}

// CreateProvider inserts a provider.
func (s *Service) CreateProvider(ctx context.Context, req CreateProviderRequest, actorID int64) (Provider, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return Provider{}, err
	}
	created, err := s.repo.CreateProvider(ctx, Provider{
		Name:     req.Name,
		Address:  req.Address,
		Phone:    req.Phone,
		Email:    req.Email,
		IsActive: true,
	})
	if err != nil {
		return Provider{}, fmt.Errorf("catalog: create provider: %w", err)
	}
	s.auditRecord(ctx, actorID, "catalog:provider:create", "provider", created.ID, nil)
	return created, nil
}

// GetProvider returns a provider by id.
func (s *Service) GetProvider(ctx context.Context, id int64) (Provider, error) {
	return s.repo.GetProvider(ctx, id)
}

// ListProviders returns a filtered provider page.
func (s *Service) ListProviders(ctx context.Context, filters shared.ListFilters) ([]Provider, int, error) {
	filters.Normalize()
	return s.repo.ListProviders(ctx, filters)
}

// UpdateProvider applies non-nil fields.
func (s *Service) UpdateProvider(ctx context.Context, id int64, req UpdateProviderRequest, actorID int64) (Provider, error) {
	existing, err := s.repo.GetProvider(ctx, id)
	if err != nil {
		return Provider{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return Provider{}, err
	}
	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Address != nil {
		existing.Address = req.Address
	}
	if req.Phone != nil {
		existing.Phone = req.Phone
	}
	if req.Email != nil {
		existing.Email = req.Email
	}
	if err := s.repo.UpdateProvider(ctx, existing); err != nil {
		return Provider{}, fmt.Errorf("catalog: update provider: %w", err)
	}
	s.auditRecord(ctx, actorID, "catalog:provider:update", "provider", id, nil)
	return s.repo.GetProvider(ctx, id)
}

// DeactivateProvider soft-deletes a provider. Idempotent.
func (s *Service) DeactivateProvider(ctx context.Context, id int64, actorID int64) error {
	changed, err := s.repo.DeactivateProvider(ctx, id)
	if err != nil {
		return err
	}
	if changed {
		s.auditRecord(ctx, actorID, "catalog:provider:deactivate", "provider", id, nil)
	}
	return nil
}

func (s *Service) auditRecord(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}

func validateCreate(req CreateProductRequest) error {
	vErr := shared.NewValidationError()
	if err := shared.ValidateStruct(req); err != nil {
		var fieldErr *shared.ValidationError
		if !errors.As(err, &fieldErr) {
			return err
		}
		vErr = fieldErr
	}
	if req.Price.IsNegative() {
		vErr.Add("price", "must not be negative")
	}
	return vErr.Err()
}

func validateUpdate(req UpdateProductRequest) error {
	vErr := shared.NewValidationError()
	if err := shared.ValidateStruct(req); err != nil {
		var fieldErr *shared.ValidationError
		if !errors.As(err, &fieldErr) {
			return err
		}
		vErr = fieldErr
	}
	if req.Price != nil && req.Price.IsNegative() {
		vErr.Add("price", "must not be negative")
	}
	if req.Name != nil && *req.Name == "" {
		vErr.Add("name", "is required")
	}
	return vErr.Err()
}

package clients

import (
	"context"
	"strconv"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RepositoryPort is the persistence surface the service depends on.
type RepositoryPort interface {
	Create(ctx context.Context, client *Client) error
	Update(ctx context.Context, client *Client) error
	Deactivate(ctx context.Context, id int64) (bool, error)
	Get(ctx context.Context, id int64) (Client, error)
	List(ctx context.Context, filters shared.ListFilters) ([]Client, int64, error)
}

// AuditPort records client events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates client operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the clients service. audit may be nil.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create registers a new client.
func (s *Service) Create(ctx context.Context, req CreateClientRequest, actorID int64) (Client, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return Client{}, err
	}
	now := time.Now().UTC()
	client := Client{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, &client); err != nil {
		return Client{}, err
	}
	s.auditRecord(ctx, "client.create", client.ID, actorID)
	return client, nil
}

// Update replaces the mutable fields of a client.
func (s *Service) Update(ctx context.Context, id int64, req UpdateClientRequest, actorID int64) (Client, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return Client{}, err
	}
	client, err := s.repo.Get(ctx, id)
	if err != nil {
		return Client{}, err
	}
	if !client.IsActive {
		return Client{}, shared.ErrNotFound
	}
	client.Name = req.Name
	client.Email = req.Email
	client.Phone = req.Phone
	client.Address = req.Address
	client.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, &client); err != nil {
		return Client{}, err
	}
	s.auditRecord(ctx, "client.update", client.ID, actorID)
	return client, nil
}

// Deactivate soft-deletes a client. Past sales keep their client reference.
func (s *Service) Deactivate(ctx context.Context, id, actorID int64) error {
	changed, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if changed {
		s.auditRecord(ctx, "client.deactivate", id, actorID)
	}
	return nil
}

// Get returns one client.
func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	return s.repo.Get(ctx, id)
}

// List returns clients matching the filters.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Client, int64, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) auditRecord(ctx context.Context, action string, entityID, actorID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "client",
		EntityID: strconv.FormatInt(entityID, 10),
		At:       time.Now().UTC(),
	})
}

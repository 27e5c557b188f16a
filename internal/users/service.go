package users

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-pos/meridian-pos/internal/roles"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RepositoryPort is the persistence surface the service depends on.
type RepositoryPort interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Deactivate(ctx context.Context, id int64) (bool, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, filters shared.ListFilters) ([]User, int64, error)
}

// AuditPort records user events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates user account operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the users service. audit may be nil.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create registers a staff account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, req CreateUserRequest, actorID int64) (User, error) {
	if err := s.validateRole(shared.ValidateStruct(req), req.Role); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	now := time.Now().UTC()
	user := User{
		Name:         req.Name,
		Email:        req.Email,
		Role:         roles.Role(req.Role),
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		return User{}, err
	}
	s.auditRecord(ctx, "user.create", user.ID, actorID)
	return user, nil
}

// Update replaces the mutable fields; the password only when provided.
func (s *Service) Update(ctx context.Context, id int64, req UpdateUserRequest, actorID int64) (User, error) {
	if err := s.validateRole(shared.ValidateStruct(req), req.Role); err != nil {
		return User{}, err
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !user.IsActive {
		return User{}, shared.ErrNotFound
	}
	user.Name = req.Name
	user.Email = req.Email
	user.Role = roles.Role(req.Role)
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		user.PasswordHash = string(hash)
	}
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, &user); err != nil {
		return User{}, err
	}
	s.auditRecord(ctx, "user.update", user.ID, actorID)
	return user, nil
}

// Deactivate soft-deletes a user account.
func (s *Service) Deactivate(ctx context.Context, id, actorID int64) error {
	changed, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if changed {
		s.auditRecord(ctx, "user.deactivate", id, actorID)
	}
	return nil
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// List returns users matching the filters.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]User, int64, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

// VerifyPassword checks credentials against the stored hash. Returns the
// user on success so callers can derive the screen set from its role.
func (s *Service) VerifyPassword(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if !user.IsActive {
		return User{}, shared.ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, shared.ErrNotFound
	}
	return user, nil
}

func (s *Service) validateRole(err error, role string) error {
	verr, ok := err.(*shared.ValidationError)
	if err != nil && !ok {
		return err
	}
	if !roles.Role(role).Valid() {
		if verr == nil {
			verr = shared.NewValidationError()
		}
		verr.Add("role", "must be one of administrator, worker, client")
	}
	if verr != nil {
		return verr.Err()
	}
	return nil
}

func (s *Service) auditRecord(ctx context.Context, action string, entityID, actorID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(entityID, 10),
		At:       time.Now().UTC(),
	})
}

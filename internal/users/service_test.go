package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-pos/meridian-pos/internal/roles"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

type memRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[int64]User{}}
}

func (m *memRepo) Create(ctx context.Context, user *User) error {
	for _, existing := range m.users {
		if existing.IsActive && existing.Email == user.Email {
			return shared.ErrConflict
		}
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = *user
	return nil
}

func (m *memRepo) Update(ctx context.Context, user *User) error {
	if _, ok := m.users[user.ID]; !ok {
		return shared.ErrNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memRepo) Deactivate(ctx context.Context, id int64) (bool, error) {
	u, ok := m.users[id]
	if !ok {
		return false, shared.ErrNotFound
	}
	if !u.IsActive {
		return false, nil
	}
	u.IsActive = false
	m.users[id] = u
	return true, nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *memRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (m *memRepo) List(ctx context.Context, filters shared.ListFilters) ([]User, int64, error) {
	out := []User{}
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func TestCreateUserHashesPassword(t *testing.T) {
	svc := NewService(newMemRepo(), nil)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "correct horse",
		Role:     "administrator",
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, roles.Administrator, user.Role)
	assert.NotEqual(t, "correct horse", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")))
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc := NewService(newMemRepo(), nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "correct horse",
		Role:     "superuser",
	}, 1)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "role")
}

func TestCreateUserRejectsShortPassword(t *testing.T) {
	svc := NewService(newMemRepo(), nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "short",
		Role:     "worker",
	}, 1)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")
}

func TestUpdateUserKeepsHashWhenPasswordOmitted(t *testing.T) {
	svc := NewService(newMemRepo(), nil)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Name: "Ana", Email: "ana@example.com", Password: "correct horse", Role: "worker",
	}, 1)
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), user.ID, UpdateUserRequest{
		Name: "Ana Maria", Email: "ana@example.com", Role: "administrator",
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, user.PasswordHash, updated.PasswordHash)
	assert.Equal(t, roles.Administrator, updated.Role)
}

func TestVerifyPassword(t *testing.T) {
	svc := NewService(newMemRepo(), nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Name: "Ana", Email: "ana@example.com", Password: "correct horse", Role: "worker",
	}, 1)
	require.NoError(t, err)

	user, err := svc.VerifyPassword(context.Background(), "ana@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)

	_, err = svc.VerifyPassword(context.Background(), "ana@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

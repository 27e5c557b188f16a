package clients

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

type memRepo struct {
	clients map[int64]Client
	nextID  int64
}

func newMemRepo() *memRepo {
	return &memRepo{clients: map[int64]Client{}}
}

func (m *memRepo) Create(ctx context.Context, client *Client) error {
	m.nextID++
	client.ID = m.nextID
	m.clients[client.ID] = *client
	return nil
}

func (m *memRepo) Update(ctx context.Context, client *Client) error {
	if _, ok := m.clients[client.ID]; !ok {
		return shared.ErrNotFound
	}
	m.clients[client.ID] = *client
	return nil
}

func (m *memRepo) Deactivate(ctx context.Context, id int64) (bool, error) {
	c, ok := m.clients[id]
	if !ok {
		return false, shared.ErrNotFound
	}
	if !c.IsActive {
		return false, nil
	}
	c.IsActive = false
	m.clients[id] = c
	return true, nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return Client{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *memRepo) List(ctx context.Context, filters shared.ListFilters) ([]Client, int64, error) {
	out := []Client{}
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func strp(s string) *string { return &s }

func TestCreateClient(t *testing.T) {
	svc := NewService(newMemRepo(), nil)

	client, err := svc.Create(context.Background(), CreateClientRequest{
		Name:  "Casa Lopez",
		Email: strp("compras@casalopez.example"),
	}, 1)
	require.NoError(t, err)
	assert.True(t, client.IsActive)
	assert.NotZero(t, client.ID)
}

func TestCreateClientValidatesEmail(t *testing.T) {
	svc := NewService(newMemRepo(), nil)

	_, err := svc.Create(context.Background(), CreateClientRequest{
		Name:  "Casa Lopez",
		Email: strp("bad-email"),
	}, 1)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
}

func TestUpdateInactiveClientIsNotFound(t *testing.T) {
	svc := NewService(newMemRepo(), nil)

	client, err := svc.Create(context.Background(), CreateClientRequest{Name: "Casa Lopez"}, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), client.ID, 1))

	_, err = svc.Update(context.Background(), client.ID, UpdateClientRequest{Name: "Renamed"}, 1)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeactivateClientIsIdempotent(t *testing.T) {
	svc := NewService(newMemRepo(), nil)

	client, err := svc.Create(context.Background(), CreateClientRequest{Name: "Casa Lopez"}, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), client.ID, 1))
	require.NoError(t, svc.Deactivate(context.Background(), client.ID, 1))
}

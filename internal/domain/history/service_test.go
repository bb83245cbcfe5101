package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/larder/internal/domain/order"
)

// --- Mock implementations ---

type mockOrders struct {
	order.Repository
	orders []order.Order
	filter order.Filter
}

func (m *mockOrders) Get(_ context.Context, id int64) (*order.Order, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *mockOrders) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	m.filter = f
	var out []order.Order
	for _, o := range m.orders {
		if f.ClientID == 0 || o.ClientID == f.ClientID {
			out = append(out, o)
		}
	}
	return out, nil
}

// --- Tests ---

func TestOrder(t *testing.T) {
	svc := NewService(&mockOrders{orders: []order.Order{{ID: 7, ClientID: 1}}})

	o, err := svc.Order(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), o.ID)

	for _, id := range []int64{0, -1, 8} {
		_, err := svc.Order(context.Background(), id)
		require.ErrorIs(t, err, order.ErrNotFound, "id %d", id)
	}
}

func TestList(t *testing.T) {
	repo := &mockOrders{orders: []order.Order{{ID: 2, ClientID: 1}, {ID: 1, ClientID: 2}}}
	svc := NewService(repo)

	all, err := svc.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Zero(t, repo.filter.ClientID)

	clientID := int64(2)
	mine, err := svc.List(context.Background(), &clientID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, int64(1), mine[0].ID)
}

package memory

import (
	"context"
	"slices"

	"github.com/xenking/larder/internal/domain/client"
)

var _ client.Repository = (*clientRepo)(nil)

type clientRepo struct{ view }

func (r *clientRepo) Create(ctx context.Context, c *client.Client) error {
	return r.do(ctx, func(st *state) error {
		for _, existing := range st.clients {
			if sameName(existing.Email, c.Email) {
				return client.ErrEmailTaken
			}
		}
		st.clientSeq++
		c.ID = st.clientSeq
		c.CreatedAt = r.now()
		st.clients[c.ID] = *c
		return nil
	})
}

func (r *clientRepo) Get(ctx context.Context, id int64) (*client.Client, error) {
	var out *client.Client
	err := r.do(ctx, func(st *state) error {
		c, ok := st.clients[id]
		if !ok {
			return client.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *clientRepo) List(ctx context.Context) ([]client.Client, error) {
	var out []client.Client
	err := r.do(ctx, func(st *state) error {
		for _, c := range st.clients {
			out = append(out, c)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b client.Client) int { return compareID(a.ID, b.ID) })
	return out, err
}

func (r *clientRepo) CountOrders(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.do(ctx, func(st *state) error {
		for _, o := range st.orders {
			if o.ClientID == id {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *clientRepo) Delete(ctx context.Context, id int64) error {
	return r.do(ctx, func(st *state) error {
		if _, ok := st.clients[id]; !ok {
			return client.ErrNotFound
		}
		for _, o := range st.orders {
			if o.ClientID == id {
				return client.ErrHasOrders
			}
		}
		delete(st.clients, id)
		return nil
	})
}

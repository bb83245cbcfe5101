package memory

import (
	"context"
	"slices"

	"github.com/xenking/larder/internal/domain/client"
	"github.com/xenking/larder/internal/domain/order"
)

var _ order.Repository = (*orderRepo)(nil)

type orderRepo struct{ view }

func (r *orderRepo) Create(ctx context.Context, o *order.Order) error {
	return r.do(ctx, func(st *state) error {
		c, ok := st.clients[o.ClientID]
		if !ok {
			return client.ErrNotFound
		}
		st.orderSeq++
		o.ID = st.orderSeq
		o.CreatedAt = r.now()
		o.ClientName = c.Name
		stored := *o
		stored.Lines = slices.Clone(o.Lines)
		st.orders[o.ID] = stored
		return nil
	})
}

func (r *orderRepo) Get(ctx context.Context, id int64) (*order.Order, error) {
	var out *order.Order
	err := r.do(ctx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return order.ErrNotFound
		}
		o.Lines = slices.Clone(o.Lines)
		out = &o
		return nil
	})
	return out, err
}

func (r *orderRepo) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	var out []order.Order
	err := r.do(ctx, func(st *state) error {
		for _, o := range st.orders {
			if f.ClientID != 0 && o.ClientID != f.ClientID {
				continue
			}
			o.Lines = slices.Clone(o.Lines)
			out = append(out, o)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b order.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareID(b.ID, a.ID)
	})
	return out, err
}

func (r *orderRepo) Delete(ctx context.Context, id int64) error {
	return r.do(ctx, func(st *state) error {
		if _, ok := st.orders[id]; !ok {
			return order.ErrNotFound
		}
		delete(st.orders, id)
		return nil
	})
}

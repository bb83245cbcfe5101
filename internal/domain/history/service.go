// Package history is the read-only view of committed orders used by
// receipts and reports.
package history

import (
	"context"

	"github.com/xenking/larder/internal/domain/order"
)

// Service reads committed orders.
type Service struct {
	orders order.Repository
}

// NewService creates a history Service.
func NewService(orders order.Repository) *Service {
	return &Service{orders: orders}
}

// Order returns one order with its lines.
func (s *Service) Order(ctx context.Context, id int64) (*order.Order, error) {
	if id <= 0 {
		return nil, order.ErrNotFound
	}
	return s.orders.Get(ctx, id)
}

// List returns orders newest first. A nil clientID lists every client's
// orders.
func (s *Service) List(ctx context.Context, clientID *int64) ([]order.Order, error) {
	var f order.Filter
	if clientID != nil {
		f.ClientID = *clientID
	}
	return s.orders.List(ctx, f)
}

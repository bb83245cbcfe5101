package client

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a requested client does not exist.
	ErrNotFound = errors.New("client not found")
	// ErrEmailTaken is returned when another client already uses the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrHasOrders is returned when deleting a client that placed orders.
	ErrHasOrders = errors.New("client has orders")
)

// Client is a registered customer.
type Client struct {
	ID        int64
	Name      string `validate:"required,max=100"`
	Email     string `validate:"required,email,max=254"`
	CreatedAt time.Time
}

// Repository defines persistence operations for clients.
type Repository interface {
	Create(ctx context.Context, c *Client) error
	Get(ctx context.Context, id int64) (*Client, error)
	List(ctx context.Context) ([]Client, error)
	CountOrders(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

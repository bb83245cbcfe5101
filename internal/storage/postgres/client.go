package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/larder/internal/domain/client"
)

const (
	clientColumns = `id, name, email, created_at`

	createClientSQL = `INSERT INTO clients (name, email) VALUES ($1, $2) RETURNING id, created_at`

	getClientSQL = `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	listClientsSQL = `SELECT ` + clientColumns + ` FROM clients ORDER BY id`

	countClientOrdersSQL = `SELECT count(*) FROM orders WHERE client_id = $1`

	deleteClientSQL = `DELETE FROM clients WHERE id = $1`
)

var _ client.Repository = (*ClientRepository)(nil)

// ClientRepository implements client.Repository backed by PostgreSQL.
type ClientRepository struct {
	db DBTX
}

// NewClientRepository returns a ClientRepository on db.
func NewClientRepository(db DBTX) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(ctx context.Context, c *client.Client) error {
	err := r.db.QueryRow(ctx, createClientSQL, c.Name, c.Email).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if code, _ := constraintError(err); code == codeUniqueViolation {
			return client.ErrEmailTaken
		}
		return fmt.Errorf("creating client %q: %w", c.Email, err)
	}
	return nil
}

func (r *ClientRepository) Get(ctx context.Context, id int64) (*client.Client, error) {
	rows, err := r.db.Query(ctx, getClientSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting client %d: %w", id, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanClient)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, client.ErrNotFound
		}
		return nil, fmt.Errorf("getting client %d: %w", id, err)
	}
	return &c, nil
}

func (r *ClientRepository) List(ctx context.Context) ([]client.Client, error) {
	rows, err := r.db.Query(ctx, listClientsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	return pgx.CollectRows(rows, scanClient)
}

func (r *ClientRepository) CountOrders(ctx context.Context, id int64) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, countClientOrdersSQL, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting orders of client %d: %w", id, err)
	}
	return n, nil
}

// Delete removes a client. Orders reference clients with a restricting
// foreign key, which surfaces as client.ErrHasOrders.
func (r *ClientRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, deleteClientSQL, id)
	if err != nil {
		if code, _ := constraintError(err); code == codeForeignKeyViolation {
			return client.ErrHasOrders
		}
		return fmt.Errorf("deleting client %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return client.ErrNotFound
	}
	return nil
}

func scanClient(row pgx.CollectableRow) (client.Client, error) {
	var c client.Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	return c, err
}

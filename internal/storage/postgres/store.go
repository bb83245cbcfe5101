package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/larder/internal/domain/client"
	"github.com/xenking/larder/internal/domain/inventory"
	"github.com/xenking/larder/internal/domain/order"
	"github.com/xenking/larder/internal/domain/recipe"
	"github.com/xenking/larder/internal/domain/uow"
)

var _ uow.Store = (*Store)(nil)

// Store hands out pool-bound repositories and runs units of work in
// READ COMMITTED transactions. Contended ingredient rows are protected by
// explicit row locks, see IngredientRepository.LockByIDs.
type Store struct {
	pool *pgxpool.Pool
	repositories
}

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, repositories: repositories{db: pool}}
}

// Execute runs fn inside a transaction. pgx rolls back when fn returns an
// error or panics and commits otherwise.
func (s *Store) Execute(ctx context.Context, fn func(r uow.Repositories) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(repositories{db: tx})
	})
}

type repositories struct {
	db DBTX
}

func (r repositories) Ingredients() inventory.Repository { return NewIngredientRepository(r.db) }
func (r repositories) Recipes() recipe.Repository         { return NewRecipeRepository(r.db) }
func (r repositories) Clients() client.Repository         { return NewClientRepository(r.db) }
func (r repositories) Orders() order.Repository           { return NewOrderRepository(r.db) }

package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/larder/internal/domain/inventory"
)

const (
	ingredientColumns = `id, name, unit, quantity, created_at, updated_at`

	listIngredientsSQL = `SELECT ` + ingredientColumns + ` FROM ingredients ORDER BY lower(name)`

	getIngredientByNameSQL = `SELECT ` + ingredientColumns + ` FROM ingredients WHERE lower(name) = lower($1)`

	lockIngredientsSQL = `SELECT ` + ingredientColumns + ` FROM ingredients
		WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	createIngredientSQL = `INSERT INTO ingredients (name, unit, quantity)
		VALUES ($1, $2, $3) ON CONFLICT ((lower(name))) DO NOTHING
		RETURNING id, created_at, updated_at`

	adjustIngredientSQL = `UPDATE ingredients SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1 AND quantity + $2 >= 0 RETURNING quantity`

	ingredientExistsSQL = `SELECT EXISTS (SELECT 1 FROM ingredients WHERE id = $1)`

	deleteIngredientSQL = `DELETE FROM ingredients WHERE id = $1`
)

var _ inventory.Repository = (*IngredientRepository)(nil)

// IngredientRepository implements inventory.Repository backed by PostgreSQL.
type IngredientRepository struct {
	db DBTX
}

// NewIngredientRepository returns an IngredientRepository on db.
func NewIngredientRepository(db DBTX) *IngredientRepository {
	return &IngredientRepository{db: db}
}

// List returns every ingredient ordered by name.
func (r *IngredientRepository) List(ctx context.Context) ([]inventory.Ingredient, error) {
	rows, err := r.db.Query(ctx, listIngredientsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing ingredients: %w", err)
	}
	return pgx.CollectRows(rows, scanIngredient)
}

// GetByName matches name case-insensitively.
func (r *IngredientRepository) GetByName(ctx context.Context, name string) (*inventory.Ingredient, error) {
	rows, err := r.db.Query(ctx, getIngredientByNameSQL, name)
	if err != nil {
		return nil, fmt.Errorf("getting ingredient %q: %w", name, err)
	}
	ing, err := pgx.CollectExactlyOneRow(rows, scanIngredient)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		return nil, fmt.Errorf("getting ingredient %q: %w", name, err)
	}
	return &ing, nil
}

// LockByIDs selects the rows FOR UPDATE in ascending ID order so concurrent
// orders sharing ingredients always acquire locks in the same sequence.
func (r *IngredientRepository) LockByIDs(ctx context.Context, ids []int64) ([]inventory.Ingredient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, lockIngredientsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("locking ingredients: %w", err)
	}
	return pgx.CollectRows(rows, scanIngredient)
}

// Create inserts ing and fills its ID and timestamps. A name clash returns
// ErrAlreadyExists without aborting the surrounding transaction.
func (r *IngredientRepository) Create(ctx context.Context, ing *inventory.Ingredient) error {
	err := r.db.QueryRow(ctx, createIngredientSQL, ing.Name, string(ing.Unit), ing.Quantity).
		Scan(&ing.ID, &ing.CreatedAt, &ing.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.ErrAlreadyExists
		}
		switch code, _ := constraintError(err); code {
		case codeUniqueViolation:
			return inventory.ErrAlreadyExists
		case codeCheckViolation:
			return inventory.ErrInvalidQuantity
		}
		return fmt.Errorf("creating ingredient %q: %w", ing.Name, err)
	}
	return nil
}

// Adjust is a compare-and-add: the row only changes when the result stays
// non-negative.
func (r *IngredientRepository) Adjust(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var q decimal.Decimal
	err := r.db.QueryRow(ctx, adjustIngredientSQL, id, delta).Scan(&q)
	if err == nil {
		return q, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("adjusting ingredient %d: %w", id, err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, ingredientExistsSQL, id).Scan(&exists); err != nil {
		return decimal.Zero, fmt.Errorf("checking ingredient %d: %w", id, err)
	}
	if !exists {
		return decimal.Zero, inventory.ErrNotFound
	}
	return decimal.Zero, inventory.ErrInsufficientStock
}

// Delete removes an ingredient. Recipe lines hold a restricting foreign key,
// so a referenced ingredient fails with inventory.ErrInUse.
func (r *IngredientRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, deleteIngredientSQL, id)
	if err != nil {
		if code, _ := constraintError(err); code == codeForeignKeyViolation {
			return inventory.ErrInUse
		}
		return fmt.Errorf("deleting ingredient %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

func scanIngredient(row pgx.CollectableRow) (inventory.Ingredient, error) {
	var (
		ing  inventory.Ingredient
		unit string
	)
	err := row.Scan(&ing.ID, &ing.Name, &unit, &ing.Quantity, &ing.CreatedAt, &ing.UpdatedAt)
	ing.Unit = inventory.Unit(unit)
	return ing, err
}

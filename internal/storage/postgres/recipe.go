package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/larder/internal/domain/inventory"
	"github.com/xenking/larder/internal/domain/recipe"
)

const (
	menuItemColumns = `id, name, price, description, created_at`

	listMenuItemsSQL = `SELECT ` + menuItemColumns + ` FROM menu_items ORDER BY lower(name)`

	getMenuItemByNameSQL = `SELECT ` + menuItemColumns + ` FROM menu_items WHERE lower(name) = lower($1)`

	listRecipeLinesSQL = `SELECT rl.menu_item_id, rl.ingredient_id, i.name, i.unit, rl.required_quantity
		FROM recipe_lines rl JOIN ingredients i ON i.id = rl.ingredient_id
		WHERE rl.menu_item_id = ANY($1)
		ORDER BY rl.menu_item_id, rl.id`

	createMenuItemSQL = `INSERT INTO menu_items (name, price, description)
		VALUES ($1, $2, $3) RETURNING id, created_at`

	addRecipeLineSQL = `INSERT INTO recipe_lines (menu_item_id, ingredient_id, required_quantity)
		VALUES ($1, $2, $3)`

	setMenuItemPriceSQL = `UPDATE menu_items SET price = $2 WHERE id = $1`

	deleteMenuItemSQL = `DELETE FROM menu_items WHERE id = $1`

	countRecipeLinesByIngredientSQL = `SELECT count(*) FROM recipe_lines WHERE ingredient_id = $1`
)

// Constraint names from db/migrations/001_schema.sql.
const (
	constraintRecipeLineMenuItem   = "recipe_lines_menu_item_id_fkey"
	constraintRecipeLineIngredient = "recipe_lines_ingredient_id_fkey"
)

var _ recipe.Repository = (*RecipeRepository)(nil)

// RecipeRepository implements recipe.Repository backed by PostgreSQL.
type RecipeRepository struct {
	db DBTX
}

// NewRecipeRepository returns a RecipeRepository on db.
func NewRecipeRepository(db DBTX) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// List returns every menu item ordered by name, each with its recipe.
func (r *RecipeRepository) List(ctx context.Context) ([]recipe.MenuItem, error) {
	rows, err := r.db.Query(ctx, listMenuItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing menu items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanMenuItem)
	if err != nil {
		return nil, fmt.Errorf("listing menu items: %w", err)
	}
	if err := r.attachLines(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetByName matches name case-insensitively.
func (r *RecipeRepository) GetByName(ctx context.Context, name string) (*recipe.MenuItem, error) {
	rows, err := r.db.Query(ctx, getMenuItemByNameSQL, name)
	if err != nil {
		return nil, fmt.Errorf("getting menu item %q: %w", name, err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanMenuItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, recipe.ErrNotFound
		}
		return nil, fmt.Errorf("getting menu item %q: %w", name, err)
	}
	items := []recipe.MenuItem{item}
	if err := r.attachLines(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// Create inserts the menu item header. Lines are added with AddLine.
func (r *RecipeRepository) Create(ctx context.Context, item *recipe.MenuItem) error {
	err := r.db.QueryRow(ctx, createMenuItemSQL, item.Name, item.Price, item.Description).
		Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		switch code, _ := constraintError(err); code {
		case codeUniqueViolation:
			return recipe.ErrDuplicateMenuItem
		case codeCheckViolation:
			return recipe.ErrInvalidPrice
		}
		return fmt.Errorf("creating menu item %q: %w", item.Name, err)
	}
	return nil
}

// AddLine inserts a recipe line. The (menu item, ingredient) pair is unique.
func (r *RecipeRepository) AddLine(ctx context.Context, menuItemID int64, line recipe.Line) error {
	_, err := r.db.Exec(ctx, addRecipeLineSQL, menuItemID, line.IngredientID, line.Required)
	if err != nil {
		code, constraint := constraintError(err)
		switch {
		case code == codeUniqueViolation:
			return recipe.ErrDuplicateIngredient
		case code == codeCheckViolation:
			return recipe.ErrInvalidQuantity
		case code == codeForeignKeyViolation && constraint == constraintRecipeLineIngredient:
			return inventory.ErrNotFound
		case code == codeForeignKeyViolation && constraint == constraintRecipeLineMenuItem:
			return recipe.ErrNotFound
		}
		return fmt.Errorf("adding recipe line to menu item %d: %w", menuItemID, err)
	}
	return nil
}

// SetPrice updates the current price of a menu item.
func (r *RecipeRepository) SetPrice(ctx context.Context, id int64, price decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, setMenuItemPriceSQL, id, price)
	if err != nil {
		if code, _ := constraintError(err); code == codeCheckViolation {
			return recipe.ErrInvalidPrice
		}
		return fmt.Errorf("setting price of menu item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return recipe.ErrNotFound
	}
	return nil
}

// Delete removes a menu item. Its recipe lines cascade; order lines keep
// their name snapshot and lose the reference.
func (r *RecipeRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, deleteMenuItemSQL, id)
	if err != nil {
		return fmt.Errorf("deleting menu item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return recipe.ErrNotFound
	}
	return nil
}

// CountByIngredient returns how many recipe lines use the ingredient.
func (r *RecipeRepository) CountByIngredient(ctx context.Context, ingredientID int64) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, countRecipeLinesByIngredientSQL, ingredientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting recipe lines for ingredient %d: %w", ingredientID, err)
	}
	return n, nil
}

type lineRow struct {
	menuItemID int64
	line       recipe.Line
}

func (r *RecipeRepository) attachLines(ctx context.Context, items []recipe.MenuItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	byID := make(map[int64]int, len(items))
	for i, item := range items {
		ids[i] = item.ID
		byID[item.ID] = i
	}

	rows, err := r.db.Query(ctx, listRecipeLinesSQL, ids)
	if err != nil {
		return fmt.Errorf("listing recipe lines: %w", err)
	}
	lines, err := pgx.CollectRows(rows, scanRecipeLine)
	if err != nil {
		return fmt.Errorf("listing recipe lines: %w", err)
	}
	for _, lr := range lines {
		i := byID[lr.menuItemID]
		items[i].Lines = append(items[i].Lines, lr.line)
	}
	return nil
}

func scanMenuItem(row pgx.CollectableRow) (recipe.MenuItem, error) {
	var item recipe.MenuItem
	err := row.Scan(&item.ID, &item.Name, &item.Price, &item.Description, &item.CreatedAt)
	return item, err
}

func scanRecipeLine(row pgx.CollectableRow) (lineRow, error) {
	var (
		lr   lineRow
		unit string
	)
	err := row.Scan(&lr.menuItemID, &lr.line.IngredientID, &lr.line.Ingredient, &unit, &lr.line.Required)
	lr.line.Unit = inventory.Unit(unit)
	return lr, err
}

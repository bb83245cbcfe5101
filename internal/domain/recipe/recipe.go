package recipe

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/larder/internal/domain/inventory"
)

var (
	// ErrNotFound is returned when a requested menu item does not exist.
	ErrNotFound = errors.New("menu item not found")
	// ErrDuplicateIngredient is returned when a recipe already lists the ingredient.
	ErrDuplicateIngredient = errors.New("ingredient already in recipe")
	// ErrDuplicateMenuItem is returned when a menu item name is already taken.
	ErrDuplicateMenuItem = errors.New("menu item already exists")
	// ErrInvalidQuantity is returned when a required quantity is not positive.
	ErrInvalidQuantity = errors.New("required quantity must be greater than 0")
	// ErrInvalidPrice is returned when a price is not positive.
	ErrInvalidPrice = errors.New("price must be greater than 0")
)

// MenuItem is a saleable dish together with its recipe.
type MenuItem struct {
	ID          int64
	Name        string
	Price       decimal.Decimal
	Description string
	Lines       []Line
	CreatedAt   time.Time
}

// HasRecipe reports whether the item lists at least one ingredient. Items
// without a recipe are never sellable.
func (m *MenuItem) HasRecipe() bool {
	return len(m.Lines) > 0
}

// Line is the amount of one ingredient consumed per unit sold.
type Line struct {
	IngredientID int64
	Ingredient   string
	Unit         inventory.Unit
	Required     decimal.Decimal
}

// Repository defines persistence operations for the menu and its recipes.
// Items are returned with Lines populated in insertion order.
type Repository interface {
	List(ctx context.Context) ([]MenuItem, error)
	GetByName(ctx context.Context, name string) (*MenuItem, error)
	Create(ctx context.Context, item *MenuItem) error
	AddLine(ctx context.Context, menuItemID int64, line Line) error
	SetPrice(ctx context.Context, id int64, price decimal.Decimal) error
	Delete(ctx context.Context, id int64) error
	CountByIngredient(ctx context.Context, ingredientID int64) (int, error)
}

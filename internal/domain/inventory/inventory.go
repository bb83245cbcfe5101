// Package inventory holds ingredient stock types and the storage contract
// for them.
package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Unit is the measure an ingredient is stocked in.
type Unit string

const (
	// UnitKilogram stocks by weight.
	UnitKilogram Unit = "kg"
	// UnitLiter stocks by volume.
	UnitLiter Unit = "l"
	// UnitCount stocks by piece.
	UnitCount Unit = "unit"
)

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool {
	switch u {
	case UnitKilogram, UnitLiter, UnitCount:
		return true
	default:
		return false
	}
}

// Mode selects how ApplyDelta treats a decrement that would go below zero.
type Mode int

const (
	// Guarded rejects the decrement with an InsufficientStockError.
	Guarded Mode = iota
	// Clamped floors the resulting quantity at zero.
	Clamped
)

var (
	// ErrNotFound is returned when a requested ingredient does not exist.
	ErrNotFound = errors.New("ingredient not found")
	// ErrInvalidQuantity is returned for zero deltas and negative stock amounts.
	ErrInvalidQuantity = errors.New("invalid ingredient quantity")
	// ErrInvalidName is returned when an ingredient name is blank.
	ErrInvalidName = errors.New("ingredient name required")
	// ErrInvalidUnit is returned when a unit is not one of the supported units.
	ErrInvalidUnit = errors.New("invalid unit")
	// ErrUnitMismatch is returned when stock is added in a unit other than the
	// one the ingredient is kept in.
	ErrUnitMismatch = errors.New("unit does not match stored ingredient")
	// ErrAlreadyExists is returned when an ingredient with the same canonical
	// name is created twice.
	ErrAlreadyExists = errors.New("ingredient already exists")
	// ErrInUse is returned when deleting an ingredient that a recipe needs.
	ErrInUse = errors.New("ingredient is used by a recipe")
	// ErrInsufficientStock matches every InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError names the ingredient that ran short and, when the
// shortage came from an order, the menu item that triggered it.
type InsufficientStockError struct {
	Ingredient string
	MenuItem   string
	Required   decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	if e.MenuItem != "" {
		return fmt.Sprintf("insufficient stock of %s for %s: need %s, have %s",
			e.Ingredient, e.MenuItem, e.Required, e.Available)
	}
	return fmt.Sprintf("insufficient stock of %s: need %s, have %s",
		e.Ingredient, e.Required, e.Available)
}

// Is makes errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Ingredient is a stocked raw material.
type Ingredient struct {
	ID        int64
	Name      string
	Unit      Unit
	Quantity  decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Delta is one entry of a bulk stock import.
type Delta struct {
	Name     string
	Unit     Unit
	Quantity decimal.Decimal
}

// CanonicalName trims name and capitalises it: first letter upper case, the
// rest lower case. Names are compared case-insensitively everywhere, this is
// only the casing they are stored with.
func CanonicalName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + strings.ToLower(name[size:])
}

// Repository defines persistence operations for ingredients.
//
// LockByIDs returns the rows for ids ordered by ID and, inside a unit of
// work, holds them locked until it ends. Adjust adds delta to the stored
// quantity and fails with ErrInsufficientStock instead of going negative.
type Repository interface {
	List(ctx context.Context) ([]Ingredient, error)
	GetByName(ctx context.Context, name string) (*Ingredient, error)
	LockByIDs(ctx context.Context, ids []int64) ([]Ingredient, error)
	Create(ctx context.Context, ing *Ingredient) error
	Adjust(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error)
	Delete(ctx context.Context, id int64) error
}

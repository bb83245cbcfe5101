// Package availability decides which menu items current stock can serve.
//
// The answer is advisory. Nothing here reserves stock, so an item reported
// available can still be refused when the order is committed.
package availability

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/larder/internal/domain/inventory"
	"github.com/xenking/larder/internal/domain/recipe"
)

// Snapshot maps ingredient ID to its quantity at one point in time.
type Snapshot map[int64]decimal.Decimal

// SnapshotOf builds a Snapshot from an ingredient listing.
func SnapshotOf(ingredients []inventory.Ingredient) Snapshot {
	s := make(Snapshot, len(ingredients))
	for _, ing := range ingredients {
		s[ing.ID] = ing.Quantity
	}
	return s
}

// Shortfall is a recipe line current stock cannot cover.
type Shortfall struct {
	Ingredient string
	Unit       inventory.Unit
	Required   decimal.Decimal
	OnHand     decimal.Decimal
}

// Status is the verdict for one menu item.
type Status struct {
	Item       recipe.MenuItem
	Available  bool
	Shortfalls []Shortfall
}

// Partition splits a menu into sellable and unsellable items. Every item
// appears in exactly one of the two slices, in input order.
type Partition struct {
	Available   []Status
	Unavailable []Status
}

// Evaluate checks one serving of item against stock. An item without a
// recipe is never available.
func Evaluate(item recipe.MenuItem, stock Snapshot) Status {
	st := Status{Item: item, Available: item.HasRecipe()}
	for _, l := range item.Lines {
		onHand := stock[l.IngredientID]
		if onHand.LessThan(l.Required) {
			st.Available = false
			st.Shortfalls = append(st.Shortfalls, Shortfall{
				Ingredient: l.Ingredient,
				Unit:       l.Unit,
				Required:   l.Required,
				OnHand:     onHand,
			})
		}
	}
	return st
}

// IsAvailable reports whether stock covers every line of a non-empty recipe.
func IsAvailable(item recipe.MenuItem, stock Snapshot) bool {
	return Evaluate(item, stock).Available
}

// Classify evaluates every item against the same snapshot.
func Classify(items []recipe.MenuItem, stock Snapshot) Partition {
	var p Partition
	for _, item := range items {
		st := Evaluate(item, stock)
		if st.Available {
			p.Available = append(p.Available, st)
		} else {
			p.Unavailable = append(p.Unavailable, st)
		}
	}
	return p
}

// Advisory is a point-in-time availability hint. It is not a reservation.
type Advisory struct {
	Partition
	CheckedAt time.Time
}

// Service reads the catalog and stock without locking either.
type Service struct {
	recipes     recipe.Repository
	ingredients inventory.Repository
	now         func() time.Time
}

// NewService creates an availability Service.
func NewService(recipes recipe.Repository, ingredients inventory.Repository) *Service {
	return &Service{
		recipes:     recipes,
		ingredients: ingredients,
		now:         time.Now,
	}
}

// Menu classifies the whole menu against current stock.
func (s *Service) Menu(ctx context.Context) (*Advisory, error) {
	items, err := s.recipes.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list menu")
	}
	stock, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &Advisory{Partition: Classify(items, stock), CheckedAt: s.now()}, nil
}

// Check evaluates a single menu item against current stock.
func (s *Service) Check(ctx context.Context, name string) (*Status, error) {
	item, err := s.recipes.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	stock, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	st := Evaluate(*item, stock)
	return &st, nil
}

func (s *Service) snapshot(ctx context.Context) (Snapshot, error) {
	ingredients, err := s.ingredients.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list ingredients")
	}
	return SnapshotOf(ingredients), nil
}

// Package stock implements inventory operations: reading quantities,
// applying signed deltas, creating ingredients and bulk imports.
package stock

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/larder/internal/domain/inventory"
	"github.com/xenking/larder/internal/domain/uow"
)

// ImportError points at the batch entry that made an import fail.
type ImportError struct {
	Index int
	Name  string
	Err   error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("entry %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// ImportResult summarises a committed bulk import.
type ImportResult struct {
	Created int
	Updated int
}

// Service manages ingredient stock.
type Service struct {
	store uow.Store
}

// NewService creates a stock Service over the given store.
func NewService(store uow.Store) *Service {
	return &Service{store: store}
}

// List returns every ingredient ordered by name.
func (s *Service) List(ctx context.Context) ([]inventory.Ingredient, error) {
	return s.store.Ingredients().List(ctx)
}

// Get returns the ingredient with the given name, matched case-insensitively.
func (s *Service) Get(ctx context.Context, name string) (*inventory.Ingredient, error) {
	name = inventory.CanonicalName(name)
	if name == "" {
		return nil, inventory.ErrInvalidName
	}
	return s.store.Ingredients().GetByName(ctx, name)
}

// Quantity returns the current stock of an ingredient.
func (s *Service) Quantity(ctx context.Context, name string) (decimal.Decimal, error) {
	ing, err := s.Get(ctx, name)
	if err != nil {
		return decimal.Zero, err
	}
	return ing.Quantity, nil
}

// ApplyDelta adds a signed delta to an ingredient and returns the new
// quantity. A decrement below zero fails in Guarded mode and stops at zero
// in Clamped mode.
func (s *Service) ApplyDelta(ctx context.Context, name string, delta decimal.Decimal, mode inventory.Mode) (decimal.Decimal, error) {
	name = inventory.CanonicalName(name)
	if name == "" {
		return decimal.Zero, inventory.ErrInvalidName
	}
	if delta.IsZero() {
		return decimal.Zero, inventory.ErrInvalidQuantity
	}

	var quantity decimal.Decimal
	err := s.store.Execute(ctx, func(r uow.Repositories) error {
		ing, err := r.Ingredients().GetByName(ctx, name)
		if err != nil {
			return err
		}
		locked, err := r.Ingredients().LockByIDs(ctx, []int64{ing.ID})
		if err != nil {
			return errors.Wrap(err, "lock ingredient")
		}
		if len(locked) == 0 {
			return inventory.ErrNotFound
		}
		cur := locked[0]

		d := delta
		if cur.Quantity.Add(d).IsNegative() {
			if mode != inventory.Clamped {
				return &inventory.InsufficientStockError{
					Ingredient: cur.Name,
					Required:   d.Neg(),
					Available:  cur.Quantity,
				}
			}
			d = cur.Quantity.Neg()
		}
		if d.IsZero() {
			quantity = cur.Quantity
			return nil
		}

		quantity, err = r.Ingredients().Adjust(ctx, cur.ID, d)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return quantity, nil
}

// Upsert creates an ingredient or adds quantity to the existing one with the
// same name. The stored unit wins; a different unit is rejected.
func (s *Service) Upsert(ctx context.Context, name string, unit inventory.Unit, quantity decimal.Decimal) (*inventory.Ingredient, error) {
	d, err := validateDelta(inventory.Delta{Name: name, Unit: unit, Quantity: quantity}, true)
	if err != nil {
		return nil, err
	}

	var ing *inventory.Ingredient
	err = s.store.Execute(ctx, func(r uow.Repositories) error {
		var err error
		ing, _, err = upsert(ctx, r.Ingredients(), d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ing, nil
}

// Import applies a batch of positive stock additions. The batch is
// all-or-nothing: one bad entry leaves stock untouched. Entries naming the
// same ingredient are summed first.
func (s *Service) Import(ctx context.Context, batch []inventory.Delta) (*ImportResult, error) {
	if len(batch) == 0 {
		return &ImportResult{}, nil
	}

	merged := make([]inventory.Delta, 0, len(batch))
	first := make([]int, 0, len(batch))
	index := make(map[string]int, len(batch))
	for i, raw := range batch {
		d, err := validateDelta(raw, false)
		if err != nil {
			return nil, &ImportError{Index: i, Name: raw.Name, Err: err}
		}
		if j, ok := index[d.Name]; ok {
			if merged[j].Unit != d.Unit {
				return nil, &ImportError{Index: i, Name: d.Name, Err: inventory.ErrUnitMismatch}
			}
			merged[j].Quantity = merged[j].Quantity.Add(d.Quantity)
			continue
		}
		index[d.Name] = len(merged)
		merged = append(merged, d)
		first = append(first, i)
	}

	res := &ImportResult{}
	err := s.store.Execute(ctx, func(r uow.Repositories) error {
		*res = ImportResult{}
		for j, d := range merged {
			_, created, err := upsert(ctx, r.Ingredients(), d)
			if err != nil {
				return &ImportError{Index: first[j], Name: d.Name, Err: err}
			}
			if created {
				res.Created++
			} else {
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Delete removes an ingredient that no recipe uses.
func (s *Service) Delete(ctx context.Context, name string) error {
	name = inventory.CanonicalName(name)
	if name == "" {
		return inventory.ErrInvalidName
	}
	return s.store.Execute(ctx, func(r uow.Repositories) error {
		ing, err := r.Ingredients().GetByName(ctx, name)
		if err != nil {
			return err
		}
		n, err := r.Recipes().CountByIngredient(ctx, ing.ID)
		if err != nil {
			return errors.Wrap(err, "count recipe lines")
		}
		if n > 0 {
			return inventory.ErrInUse
		}
		return r.Ingredients().Delete(ctx, ing.ID)
	})
}

// validateDelta canonicalises the name and checks unit and quantity. Zero
// quantities are allowed only when registering an ingredient.
func validateDelta(d inventory.Delta, allowZero bool) (inventory.Delta, error) {
	d.Name = inventory.CanonicalName(d.Name)
	if d.Name == "" {
		return d, inventory.ErrInvalidName
	}
	if !d.Unit.Valid() {
		return d, inventory.ErrInvalidUnit
	}
	if d.Quantity.IsNegative() || (!allowZero && d.Quantity.IsZero()) {
		return d, inventory.ErrInvalidQuantity
	}
	return d, nil
}

func upsert(ctx context.Context, repo inventory.Repository, d inventory.Delta) (*inventory.Ingredient, bool, error) {
	ing, err := repo.GetByName(ctx, d.Name)
	if errors.Is(err, inventory.ErrNotFound) {
		ing = &inventory.Ingredient{Name: d.Name, Unit: d.Unit, Quantity: d.Quantity}
		err = repo.Create(ctx, ing)
		switch {
		case err == nil:
			return ing, true, nil
		case errors.Is(err, inventory.ErrAlreadyExists):
			// Created by a concurrent writer since the lookup; add to it instead.
			ing, err = repo.GetByName(ctx, d.Name)
		}
	}
	if err != nil {
		return nil, false, err
	}

	if ing.Unit != d.Unit {
		return nil, false, inventory.ErrUnitMismatch
	}
	if d.Quantity.IsPositive() {
		q, err := repo.Adjust(ctx, ing.ID, d.Quantity)
		if err != nil {
			return nil, false, err
		}
		ing.Quantity = q
	}
	return ing, false, nil
}

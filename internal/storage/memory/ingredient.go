package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/larder/internal/domain/inventory"
)

var _ inventory.Repository = (*ingredientRepo)(nil)

type ingredientRepo struct{ view }

func (r *ingredientRepo) List(ctx context.Context) ([]inventory.Ingredient, error) {
	var out []inventory.Ingredient
	err := r.do(ctx, func(st *state) error {
		for _, ing := range st.ingredients {
			out = append(out, ing)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b inventory.Ingredient) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, err
}

func (r *ingredientRepo) GetByName(ctx context.Context, name string) (*inventory.Ingredient, error) {
	var out *inventory.Ingredient
	err := r.do(ctx, func(st *state) error {
		for _, ing := range st.ingredients {
			if sameName(ing.Name, name) {
				out = &ing
				return nil
			}
		}
		return inventory.ErrNotFound
	})
	return out, err
}

// LockByIDs needs no locking here: a unit of work already owns the store.
func (r *ingredientRepo) LockByIDs(ctx context.Context, ids []int64) ([]inventory.Ingredient, error) {
	var out []inventory.Ingredient
	err := r.do(ctx, func(st *state) error {
		for _, id := range ids {
			if ing, ok := st.ingredients[id]; ok {
				out = append(out, ing)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b inventory.Ingredient) int { return compareID(a.ID, b.ID) })
	return out, err
}

func (r *ingredientRepo) Create(ctx context.Context, ing *inventory.Ingredient) error {
	return r.do(ctx, func(st *state) error {
		if ing.Quantity.IsNegative() {
			return inventory.ErrInvalidQuantity
		}
		for _, existing := range st.ingredients {
			if sameName(existing.Name, ing.Name) {
				return inventory.ErrAlreadyExists
			}
		}
		st.ingredientSeq++
		ing.ID = st.ingredientSeq
		ing.CreatedAt = r.now()
		ing.UpdatedAt = ing.CreatedAt
		st.ingredients[ing.ID] = *ing
		return nil
	})
}

func (r *ingredientRepo) Adjust(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var q decimal.Decimal
	err := r.do(ctx, func(st *state) error {
		ing, ok := st.ingredients[id]
		if !ok {
			return inventory.ErrNotFound
		}
		next := ing.Quantity.Add(delta)
		if next.IsNegative() {
			return inventory.ErrInsufficientStock
		}
		ing.Quantity = next
		ing.UpdatedAt = r.now()
		st.ingredients[id] = ing
		q = next
		return nil
	})
	return q, err
}

func (r *ingredientRepo) Delete(ctx context.Context, id int64) error {
	return r.do(ctx, func(st *state) error {
		if _, ok := st.ingredients[id]; !ok {
			return inventory.ErrNotFound
		}
		for _, item := range st.menu {
			for _, l := range item.Lines {
				if l.IngredientID == id {
					return inventory.ErrInUse
				}
			}
		}
		delete(st.ingredients, id)
		return nil
	})
}

func compareID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

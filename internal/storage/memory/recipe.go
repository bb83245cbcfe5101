package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/larder/internal/domain/inventory"
	"github.com/xenking/larder/internal/domain/recipe"
)

var _ recipe.Repository = (*recipeRepo)(nil)

type recipeRepo struct{ view }

// withIngredients refreshes line names and units from the ingredient table
// the way a join would.
func withIngredients(st *state, item recipe.MenuItem) recipe.MenuItem {
	item.Lines = slices.Clone(item.Lines)
	for i, l := range item.Lines {
		if ing, ok := st.ingredients[l.IngredientID]; ok {
			item.Lines[i].Ingredient = ing.Name
			item.Lines[i].Unit = ing.Unit
		}
	}
	return item
}

func (r *recipeRepo) List(ctx context.Context) ([]recipe.MenuItem, error) {
	var out []recipe.MenuItem
	err := r.do(ctx, func(st *state) error {
		for _, item := range st.menu {
			out = append(out, withIngredients(st, item))
		}
		return nil
	})
	slices.SortFunc(out, func(a, b recipe.MenuItem) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, err
}

func (r *recipeRepo) GetByName(ctx context.Context, name string) (*recipe.MenuItem, error) {
	var out *recipe.MenuItem
	err := r.do(ctx, func(st *state) error {
		for _, item := range st.menu {
			if sameName(item.Name, name) {
				found := withIngredients(st, item)
				out = &found
				return nil
			}
		}
		return recipe.ErrNotFound
	})
	return out, err
}

func (r *recipeRepo) Create(ctx context.Context, item *recipe.MenuItem) error {
	return r.do(ctx, func(st *state) error {
		if !item.Price.IsPositive() {
			return recipe.ErrInvalidPrice
		}
		for _, existing := range st.menu {
			if sameName(existing.Name, item.Name) {
				return recipe.ErrDuplicateMenuItem
			}
		}
		st.menuSeq++
		item.ID = st.menuSeq
		item.CreatedAt = r.now()
		stored := *item
		stored.Lines = nil
		st.menu[item.ID] = stored
		return nil
	})
}

func (r *recipeRepo) AddLine(ctx context.Context, menuItemID int64, line recipe.Line) error {
	return r.do(ctx, func(st *state) error {
		item, ok := st.menu[menuItemID]
		if !ok {
			return recipe.ErrNotFound
		}
		if _, ok := st.ingredients[line.IngredientID]; !ok {
			return inventory.ErrNotFound
		}
		if !line.Required.IsPositive() {
			return recipe.ErrInvalidQuantity
		}
		for _, l := range item.Lines {
			if l.IngredientID == line.IngredientID {
				return recipe.ErrDuplicateIngredient
			}
		}
		item.Lines = append(slices.Clone(item.Lines), line)
		st.menu[menuItemID] = item
		return nil
	})
}

func (r *recipeRepo) SetPrice(ctx context.Context, id int64, price decimal.Decimal) error {
	return r.do(ctx, func(st *state) error {
		item, ok := st.menu[id]
		if !ok {
			return recipe.ErrNotFound
		}
		if !price.IsPositive() {
			return recipe.ErrInvalidPrice
		}
		item.Price = price
		st.menu[id] = item
		return nil
	})
}

func (r *recipeRepo) Delete(ctx context.Context, id int64) error {
	return r.do(ctx, func(st *state) error {
		if _, ok := st.menu[id]; !ok {
			return recipe.ErrNotFound
		}
		delete(st.menu, id)
		for oid, o := range st.orders {
			changed := false
			for i := range o.Lines {
				if o.Lines[i].MenuItemID == id {
					if !changed {
						o.Lines = slices.Clone(o.Lines)
						changed = true
					}
					o.Lines[i].MenuItemID = 0
				}
			}
			if changed {
				st.orders[oid] = o
			}
		}
		return nil
	})
}

func (r *recipeRepo) CountByIngredient(ctx context.Context, ingredientID int64) (int, error) {
	var n int
	err := r.do(ctx, func(st *state) error {
		for _, item := range st.menu {
			for _, l := range item.Lines {
				if l.IngredientID == ingredientID {
					n++
				}
			}
		}
		return nil
	})
	return n, err
}

package availability

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/larder/internal/domain/inventory"
	"github.com/xenking/larder/internal/domain/recipe"
)

// --- Mock implementations ---

type mockIngredients struct {
	inventory.Repository
	list []inventory.Ingredient
	err  error
}

func (m *mockIngredients) List(context.Context) ([]inventory.Ingredient, error) {
	return m.list, m.err
}

type mockRecipes struct {
	recipe.Repository
	items []recipe.MenuItem
}

func (m *mockRecipes) List(context.Context) ([]recipe.MenuItem, error) {
	return m.items, nil
}

func (m *mockRecipes) GetByName(_ context.Context, name string) (*recipe.MenuItem, error) {
	for _, it := range m.items {
		if it.Name == name {
			return &it, nil
		}
	}
	return nil, recipe.ErrNotFound
}

// --- Helpers ---

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(id int64, name, required string) recipe.Line {
	return recipe.Line{IngredientID: id, Ingredient: name, Unit: inventory.UnitKilogram, Required: dec(required)}
}

var (
	bread = recipe.MenuItem{ID: 1, Name: "Bread", Price: dec("100"), Lines: []recipe.Line{line(1, "Flour", "0.5")}}
	cake  = recipe.MenuItem{ID: 2, Name: "Cake", Price: dec("400"), Lines: []recipe.Line{
		line(1, "Flour", "0.25"),
		line(2, "Sugar", "0.5"),
	}}
	water = recipe.MenuItem{ID: 3, Name: "Water", Price: dec("10")}
)

// --- Tests ---

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		item      recipe.MenuItem
		stock     Snapshot
		available bool
		short     []string
	}{
		{name: "exact", item: bread, stock: Snapshot{1: dec("0.5")}, available: true},
		{name: "surplus", item: cake, stock: Snapshot{1: dec("9"), 2: dec("9")}, available: true},
		{name: "one line short", item: cake, stock: Snapshot{1: dec("1"), 2: dec("0.49")}, short: []string{"Sugar"}},
		{name: "all lines short", item: cake, stock: Snapshot{}, short: []string{"Flour", "Sugar"}},
		{name: "no recipe", item: water, stock: Snapshot{1: dec("100")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Evaluate(tt.item, tt.stock)
			assert.Equal(t, tt.available, st.Available)
			assert.Equal(t, tt.available, IsAvailable(tt.item, tt.stock))

			var short []string
			for _, s := range st.Shortfalls {
				short = append(short, s.Ingredient)
			}
			assert.Equal(t, tt.short, short)
		})
	}
}

func TestClassify_Partitions(t *testing.T) {
	items := []recipe.MenuItem{bread, cake, water}
	p := Classify(items, Snapshot{1: dec("1"), 2: dec("0.1")})

	require.Len(t, p.Available, 1)
	assert.Equal(t, "Bread", p.Available[0].Item.Name)
	require.Len(t, p.Unavailable, 2)
	assert.Equal(t, "Cake", p.Unavailable[0].Item.Name)
	assert.Equal(t, "Water", p.Unavailable[1].Item.Name)
	assert.Equal(t, len(items), len(p.Available)+len(p.Unavailable))
}

func TestService_Menu(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(
		&mockRecipes{items: []recipe.MenuItem{bread, cake}},
		&mockIngredients{list: []inventory.Ingredient{
			{ID: 1, Name: "Flour", Quantity: dec("0.5")},
			{ID: 2, Name: "Sugar", Quantity: dec("1")},
		}},
	)
	svc.now = func() time.Time { return at }

	adv, err := svc.Menu(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at, adv.CheckedAt)
	assert.Len(t, adv.Available, 2)
	assert.Empty(t, adv.Unavailable)
}

func TestService_Check(t *testing.T) {
	svc := NewService(
		&mockRecipes{items: []recipe.MenuItem{cake}},
		&mockIngredients{list: []inventory.Ingredient{{ID: 1, Name: "Flour", Quantity: dec("1")}}},
	)

	st, err := svc.Check(context.Background(), "Cake")
	require.NoError(t, err)
	assert.False(t, st.Available)
	require.Len(t, st.Shortfalls, 1)
	assert.Equal(t, "Sugar", st.Shortfalls[0].Ingredient)
	assert.True(t, st.Shortfalls[0].OnHand.IsZero())

	_, err = svc.Check(context.Background(), "Soup")
	require.ErrorIs(t, err, recipe.ErrNotFound)
}

func TestService_StockError(t *testing.T) {
	boom := errors.New("timeout")
	svc := NewService(&mockRecipes{items: []recipe.MenuItem{bread}}, &mockIngredients{err: boom})

	_, err := svc.Menu(context.Background())
	require.ErrorIs(t, err, boom)
}

package menu

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/larder/internal/domain/client"
	"github.com/xenking/larder/internal/domain/inventory"
	"github.com/xenking/larder/internal/domain/order"
	"github.com/xenking/larder/internal/domain/recipe"
	"github.com/xenking/larder/internal/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	for _, ing := range []inventory.Ingredient{
		{Name: "Flour", Unit: inventory.UnitKilogram, Quantity: dec("2")},
		{Name: "Egg", Unit: inventory.UnitCount, Quantity: dec("6")},
	} {
		require.NoError(t, store.Ingredients().Create(ctx, &ing))
	}
	return NewService(store), store
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	item, err := svc.Create(ctx, CreateRequest{
		Name:        "  Crepe ",
		Price:       dec("350"),
		Description: "thin",
		Lines: []LineRequest{
			{Ingredient: "flour", Required: dec("0.1")},
			{Ingredient: "EGG", Required: dec("2")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Crepe", item.Name)
	require.Len(t, item.Lines, 2)
	assert.Equal(t, "Flour", item.Lines[0].Ingredient)
	assert.Equal(t, inventory.UnitCount, item.Lines[1].Unit)

	lines, err := svc.Recipe(ctx, "crepe")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Flour", lines[0].Ingredient)
	assert.Equal(t, "Egg", lines[1].Ingredient)
}

func TestCreate_ValidationNamesField(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Create(context.Background(), CreateRequest{
		Name:        "Crepe",
		Price:       dec("1"),
		Description: strings.Repeat("a", 501),
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Description", ve.Field)
	assert.Equal(t, "max", ve.Rule)
	assert.NotErrorIs(t, err, ErrInvalidName)
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr error
	}{
		{
			name:    "blank name",
			req:     CreateRequest{Name: " ", Price: dec("1")},
			wantErr: ErrInvalidName,
		},
		{
			name:    "name too long",
			req:     CreateRequest{Name: strings.Repeat("a", 101), Price: dec("1")},
			wantErr: ErrInvalidName,
		},
		{
			name:    "description too long",
			req:     CreateRequest{Name: "Crepe", Price: dec("1"), Description: strings.Repeat("a", 501)},
			wantErr: ErrInvalidDescription,
		},
		{
			name:    "zero price",
			req:     CreateRequest{Name: "Crepe", Price: decimal.Zero},
			wantErr: recipe.ErrInvalidPrice,
		},
		{
			name: "zero required",
			req: CreateRequest{Name: "Crepe", Price: dec("1"), Lines: []LineRequest{
				{Ingredient: "Flour", Required: decimal.Zero},
			}},
			wantErr: recipe.ErrInvalidQuantity,
		},
		{
			name: "ingredient twice",
			req: CreateRequest{Name: "Crepe", Price: dec("1"), Lines: []LineRequest{
				{Ingredient: "Flour", Required: dec("1")},
				{Ingredient: "flour ", Required: dec("1")},
			}},
			wantErr: recipe.ErrDuplicateIngredient,
		},
		{
			name: "unknown ingredient",
			req: CreateRequest{Name: "Crepe", Price: dec("1"), Lines: []LineRequest{
				{Ingredient: "Flour", Required: dec("1")},
				{Ingredient: "Saffron", Required: dec("1")},
			}},
			wantErr: inventory.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t)
			_, err := svc.Create(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)

			// A failed create leaves no half-built item behind.
			items, err := svc.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, items)
		})
	}
}

func TestCreate_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.Create(ctx, CreateRequest{Name: "Crepe", Price: dec("1")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{Name: "CREPE", Price: dec("2")})
	require.ErrorIs(t, err, recipe.ErrDuplicateMenuItem)
}

func TestAddLine(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.Create(ctx, CreateRequest{Name: "Omelette", Price: dec("200")})
	require.NoError(t, err)

	require.NoError(t, svc.AddLine(ctx, "omelette", "egg", dec("3")))
	require.ErrorIs(t, svc.AddLine(ctx, "Omelette", "Egg", dec("1")), recipe.ErrDuplicateIngredient)
	require.ErrorIs(t, svc.AddLine(ctx, "Omelette", "Flour", dec("-1")), recipe.ErrInvalidQuantity)
	require.ErrorIs(t, svc.AddLine(ctx, "Omelette", "Ham", dec("1")), inventory.ErrNotFound)
	require.ErrorIs(t, svc.AddLine(ctx, "Soup", "Egg", dec("1")), recipe.ErrNotFound)

	item, err := svc.Get(ctx, "Omelette")
	require.NoError(t, err)
	require.Len(t, item.Lines, 1)
	assert.True(t, item.Lines[0].Required.Equal(dec("3")))
}

func TestSetPrice(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.Create(ctx, CreateRequest{Name: "Crepe", Price: dec("100")})
	require.NoError(t, err)

	require.NoError(t, svc.SetPrice(ctx, "crepe", dec("120.50")))
	require.ErrorIs(t, svc.SetPrice(ctx, "Crepe", decimal.Zero), recipe.ErrInvalidPrice)
	require.ErrorIs(t, svc.SetPrice(ctx, "Soup", dec("1")), recipe.ErrNotFound)

	item, err := svc.Get(ctx, "Crepe")
	require.NoError(t, err)
	assert.True(t, item.Price.Equal(dec("120.5")))
}

func TestDelete_KeepsOrderHistory(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	item, err := svc.Create(ctx, CreateRequest{Name: "Crepe", Price: dec("100")})
	require.NoError(t, err)

	c := &client.Client{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, store.Clients().Create(ctx, c))
	o := &order.Order{ClientID: c.ID, Total: dec("100"), Lines: []order.Line{
		{MenuItemID: item.ID, MenuItemName: "Crepe", Quantity: 1, UnitPrice: dec("100"), Subtotal: dec("100")},
	}}
	require.NoError(t, store.Orders().Create(ctx, o))

	require.NoError(t, svc.Delete(ctx, "Crepe"))
	_, err = svc.Get(ctx, "Crepe")
	require.ErrorIs(t, err, recipe.ErrNotFound)

	kept, err := store.Orders().Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Crepe", kept.Lines[0].MenuItemName)
	assert.Zero(t, kept.Lines[0].MenuItemID)
}

package stock

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/larder/internal/domain/inventory"
	"github.com/xenking/larder/internal/domain/menu"
	"github.com/xenking/larder/internal/domain/uow"
	"github.com/xenking/larder/internal/storage/memory"
)

// --- Mock implementations ---

// failingStore runs nothing and reports err from every unit of work.
type failingStore struct {
	uow.Store
	err error
}

func (s *failingStore) Execute(context.Context, func(r uow.Repositories) error) error {
	return s.err
}

// racingStore hides existing ingredients from the first lookup of every unit
// of work, as if another writer created them right after it.
type racingStore struct {
	*memory.Store
}

func (s *racingStore) Execute(ctx context.Context, fn func(r uow.Repositories) error) error {
	return s.Store.Execute(ctx, func(r uow.Repositories) error {
		return fn(racingRepos{Repositories: r, ing: &racingIngredients{Repository: r.Ingredients()}})
	})
}

type racingRepos struct {
	uow.Repositories
	ing *racingIngredients
}

func (r racingRepos) Ingredients() inventory.Repository { return r.ing }

type racingIngredients struct {
	inventory.Repository
	looked bool
}

func (r *racingIngredients) GetByName(ctx context.Context, name string) (*inventory.Ingredient, error) {
	if !r.looked {
		r.looked = true
		return nil, inventory.ErrNotFound
	}
	return r.Repository.GetByName(ctx, name)
}

// --- Helpers ---

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewService(store), store
}

// --- Tests ---

func TestUpsert_ConcurrentCreateAddsToStock(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	_, err := NewService(store).Upsert(ctx, "Flour", inventory.UnitKilogram, dec("1"))
	require.NoError(t, err)

	svc := NewService(&racingStore{Store: store})
	ing, err := svc.Upsert(ctx, "flour", inventory.UnitKilogram, dec("0.5"))
	require.NoError(t, err)
	assert.True(t, ing.Quantity.Equal(dec("1.5")), "got %s", ing.Quantity)

	_, err = svc.Upsert(ctx, "Flour", inventory.UnitLiter, dec("1"))
	require.ErrorIs(t, err, inventory.ErrUnitMismatch)

	res, err := svc.Import(ctx, []inventory.Delta{{Name: "Flour", Unit: inventory.UnitKilogram, Quantity: dec("1")}})
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, 1, res.Updated)
}

func TestUpsert_CreatesAndAccumulates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	ing, err := svc.Upsert(ctx, "  flour ", inventory.UnitKilogram, dec("1.5"))
	require.NoError(t, err)
	assert.Equal(t, "Flour", ing.Name)
	assert.True(t, ing.Quantity.Equal(dec("1.5")))

	ing, err = svc.Upsert(ctx, "FLOUR", inventory.UnitKilogram, dec("0.25"))
	require.NoError(t, err)
	assert.True(t, ing.Quantity.Equal(dec("1.75")))

	// Registering with zero leaves the quantity alone.
	ing, err = svc.Upsert(ctx, "Flour", inventory.UnitKilogram, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, ing.Quantity.Equal(dec("1.75")))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpsert_Validation(t *testing.T) {
	tests := []struct {
		name    string
		ingName string
		unit    inventory.Unit
		qty     string
		wantErr error
	}{
		{name: "blank name", ingName: "  ", unit: inventory.UnitKilogram, qty: "1", wantErr: inventory.ErrInvalidName},
		{name: "unknown unit", ingName: "Salt", unit: "cup", qty: "1", wantErr: inventory.ErrInvalidUnit},
		{name: "negative quantity", ingName: "Salt", unit: inventory.UnitKilogram, qty: "-1", wantErr: inventory.ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t)
			_, err := svc.Upsert(context.Background(), tt.ingName, tt.unit, dec(tt.qty))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpsert_UnitMismatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.Upsert(ctx, "Milk", inventory.UnitLiter, dec("2"))
	require.NoError(t, err)

	_, err = svc.Upsert(ctx, "milk", inventory.UnitKilogram, dec("1"))
	require.ErrorIs(t, err, inventory.ErrUnitMismatch)

	q, err := svc.Quantity(ctx, "Milk")
	require.NoError(t, err)
	assert.True(t, q.Equal(dec("2")))
}

func TestApplyDelta(t *testing.T) {
	tests := []struct {
		name    string
		delta   string
		mode    inventory.Mode
		want    string
		wantErr error
	}{
		{name: "increment", delta: "0.5", mode: inventory.Guarded, want: "1.5"},
		{name: "decrement", delta: "-0.4", mode: inventory.Guarded, want: "0.6"},
		{name: "to zero", delta: "-1", mode: inventory.Guarded, want: "0"},
		{name: "guarded overdraw", delta: "-1.01", mode: inventory.Guarded, want: "1", wantErr: inventory.ErrInsufficientStock},
		{name: "clamped overdraw", delta: "-3", mode: inventory.Clamped, want: "0"},
		{name: "zero delta", delta: "0", mode: inventory.Guarded, want: "1", wantErr: inventory.ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, _ := newService(t)
			_, err := svc.Upsert(ctx, "Flour", inventory.UnitKilogram, dec("1"))
			require.NoError(t, err)

			got, err := svc.ApplyDelta(ctx, "flour", dec(tt.delta), tt.mode)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
			}

			q, err := svc.Quantity(ctx, "Flour")
			require.NoError(t, err)
			assert.True(t, q.Equal(dec(tt.want)), "stored %s", q)
		})
	}
}

func TestApplyDelta_ShortageNamesIngredient(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.Upsert(ctx, "Egg", inventory.UnitCount, dec("2"))
	require.NoError(t, err)

	_, err = svc.ApplyDelta(ctx, "Egg", dec("-5"), inventory.Guarded)
	var short *inventory.InsufficientStockError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, "Egg", short.Ingredient)
	assert.Empty(t, short.MenuItem)
	assert.True(t, short.Required.Equal(dec("5")))
	assert.True(t, short.Available.Equal(dec("2")))
}

func TestApplyDelta_Unknown(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.ApplyDelta(context.Background(), "Saffron", dec("1"), inventory.Guarded)
	require.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestImport_MergesAndCounts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.Upsert(ctx, "Flour", inventory.UnitKilogram, dec("1"))
	require.NoError(t, err)

	res, err := svc.Import(ctx, []inventory.Delta{
		{Name: "flour", Unit: inventory.UnitKilogram, Quantity: dec("2")},
		{Name: "Sugar", Unit: inventory.UnitKilogram, Quantity: dec("1")},
		{Name: "sugar ", Unit: inventory.UnitKilogram, Quantity: dec("0.5")},
	})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 1, Updated: 1}, *res)

	q, err := svc.Quantity(ctx, "Flour")
	require.NoError(t, err)
	assert.True(t, q.Equal(dec("3")))
	q, err = svc.Quantity(ctx, "Sugar")
	require.NoError(t, err)
	assert.True(t, q.Equal(dec("1.5")))
}

func TestImport_AllOrNothing(t *testing.T) {
	tests := []struct {
		name      string
		batch     []inventory.Delta
		wantIndex int
		wantErr   error
	}{
		{
			name: "zero quantity",
			batch: []inventory.Delta{
				{Name: "Salt", Unit: inventory.UnitKilogram, Quantity: dec("1")},
				{Name: "Pepper", Unit: inventory.UnitKilogram, Quantity: decimal.Zero},
			},
			wantIndex: 1,
			wantErr:   inventory.ErrInvalidQuantity,
		},
		{
			name: "unit conflicts within batch",
			batch: []inventory.Delta{
				{Name: "Salt", Unit: inventory.UnitKilogram, Quantity: dec("1")},
				{Name: "salt", Unit: inventory.UnitLiter, Quantity: dec("1")},
			},
			wantIndex: 1,
			wantErr:   inventory.ErrUnitMismatch,
		},
		{
			name: "unit conflicts with stored",
			batch: []inventory.Delta{
				{Name: "Salt", Unit: inventory.UnitKilogram, Quantity: dec("1")},
				{Name: "Flour", Unit: inventory.UnitLiter, Quantity: dec("1")},
			},
			wantIndex: 1,
			wantErr:   inventory.ErrUnitMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, _ := newService(t)
			_, err := svc.Upsert(ctx, "Flour", inventory.UnitKilogram, dec("1"))
			require.NoError(t, err)

			_, err = svc.Import(ctx, tt.batch)
			require.ErrorIs(t, err, tt.wantErr)
			var ie *ImportError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tt.wantIndex, ie.Index)

			_, err = svc.Get(ctx, "Salt")
			require.ErrorIs(t, err, inventory.ErrNotFound)
			q, err := svc.Quantity(ctx, "Flour")
			require.NoError(t, err)
			assert.True(t, q.Equal(dec("1")))
		})
	}
}

func TestImport_Empty(t *testing.T) {
	svc, _ := newService(t)
	res, err := svc.Import(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, *res)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	_, err := svc.Upsert(ctx, "Flour", inventory.UnitKilogram, dec("1"))
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, "Salt", inventory.UnitKilogram, dec("1"))
	require.NoError(t, err)
	_, err = menu.NewService(store).Create(ctx, menu.CreateRequest{
		Name:  "Bread",
		Price: dec("100"),
		Lines: []menu.LineRequest{{Ingredient: "Flour", Required: dec("0.5")}},
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, "flour"), inventory.ErrInUse)
	require.NoError(t, svc.Delete(ctx, "salt"))
	require.ErrorIs(t, svc.Delete(ctx, "Salt"), inventory.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, ""), inventory.ErrInvalidName)
}

func TestStorageFailure(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(&failingStore{err: boom})

	_, err := svc.ApplyDelta(context.Background(), "Flour", dec("1"), inventory.Guarded)
	require.ErrorIs(t, err, boom)
	_, err = svc.Upsert(context.Background(), "Flour", inventory.UnitKilogram, dec("1"))
	require.ErrorIs(t, err, boom)
}

package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/larder/db"
	"github.com/xenking/larder/internal/domain/inventory"
	"github.com/xenking/larder/internal/domain/menu"
	"github.com/xenking/larder/internal/domain/recipe"
)

// menuCreateLimit caps concurrent menu item transactions.
const menuCreateLimit = 4

type seedJSON struct {
	Ingredients []ingredientJSON `json:"ingredients"`
	Menu        []menuItemJSON   `json:"menu"`
}

type ingredientJSON struct {
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	Quantity decimal.Decimal `json:"quantity"`
}

type menuItemJSON struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Recipe      []struct {
		Ingredient string          `json:"ingredient"`
		Quantity   decimal.Decimal `json:"quantity"`
	} `json:"recipe"`
}

// loadSeed reads path, transparently gunzipping .gz files. An empty path
// selects the built-in menu.
func loadSeed(path string) (*seedJSON, error) {
	var data []byte
	switch {
	case path == "":
		slog.Info("using built-in menu")
		data = db.DefaultMenu
	case strings.HasSuffix(path, ".gz"):
		b, err := readGzFile(path)
		if err != nil {
			return nil, err
		}
		data = b
	default:
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		data = b
	}

	var seed seedJSON
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, errors.Wrap(err, "parse seed JSON")
	}
	return &seed, nil
}

func readGzFile(path string) ([]byte, error) {
	slog.Info("reading compressed seed file", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, errors.Wrapf(err, "decompress %s", path)
	}
	return data, nil
}

// ingredientUpserter is satisfied by *stock.Service.
type ingredientUpserter interface {
	Upsert(ctx context.Context, name string, unit inventory.Unit, quantity decimal.Decimal) (*inventory.Ingredient, error)
}

// seedIngredients registers every ingredient, adding the seeded quantity to
// whatever is already stocked.
func seedIngredients(ctx context.Context, svc ingredientUpserter, ingredients []ingredientJSON) error {
	slog.Info("upserting ingredients", slog.Int("count", len(ingredients)))

	for _, in := range ingredients {
		ing, err := svc.Upsert(ctx, in.Name, inventory.Unit(in.Unit), in.Quantity)
		if err != nil {
			return errors.Wrapf(err, "upsert ingredient %s", in.Name)
		}
		slog.Info("upserted ingredient",
			slog.String("name", ing.Name),
			slog.String("quantity", ing.Quantity.String()),
			slog.String("unit", string(ing.Unit)),
		)
	}
	return nil
}

// menuCreator is satisfied by *menu.Service.
type menuCreator interface {
	Create(ctx context.Context, req menu.CreateRequest) (*recipe.MenuItem, error)
}

// seedMenu creates menu items concurrently. Items that already exist are
// left untouched so the command can be re-run.
func seedMenu(ctx context.Context, svc menuCreator, items []menuItemJSON) error {
	slog.Info("creating menu items", slog.Int("count", len(items)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(menuCreateLimit)
	for _, it := range items {
		req := menu.CreateRequest{
			Name:        it.Name,
			Price:       it.Price,
			Description: it.Description,
		}
		for _, l := range it.Recipe {
			req.Lines = append(req.Lines, menu.LineRequest{Ingredient: l.Ingredient, Required: l.Quantity})
		}
		g.Go(func() error {
			item, err := svc.Create(ctx, req)
			switch {
			case errors.Is(err, recipe.ErrDuplicateMenuItem):
				slog.Info("menu item exists, skipping", slog.String("name", req.Name))
				return nil
			case err != nil:
				return errors.Wrapf(err, "create menu item %s", req.Name)
			}
			slog.Info("created menu item", slog.String("name", item.Name), slog.Int("lines", len(item.Lines)))
			return nil
		})
	}
	return g.Wait()
}

// Package fulfillment commits customer orders against ingredient stock.
//
// Submit is the only authority on whether stock covers an order. It
// re-reads and locks the ingredient rows inside the unit of work, checks the
// whole cart's needs in one pass and deducts them together with writing the
// order, so either everything is persisted or nothing is.
package fulfillment

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/larder/internal/domain/client"
	"github.com/xenking/larder/internal/domain/inventory"
	"github.com/xenking/larder/internal/domain/order"
	"github.com/xenking/larder/internal/domain/recipe"
	"github.com/xenking/larder/internal/domain/uow"
)

const instrumentationName = "github.com/xenking/larder/internal/domain/fulfillment"

// DefaultTxTimeout bounds a submission when Config.TxTimeout is zero.
const DefaultTxTimeout = 5 * time.Second

// NoRecipeError is returned when an ordered menu item has no recipe.
type NoRecipeError struct {
	MenuItem string
}

func (e *NoRecipeError) Error() string {
	return fmt.Sprintf("menu item %s has no recipe and cannot be sold", e.MenuItem)
}

// Receipt is the outcome of a committed order.
type Receipt struct {
	OrderID   int64
	Total     decimal.Decimal
	Lines     []order.Line
	CreatedAt time.Time
}

// Config tunes a Coordinator. Nil providers fall back to the otel globals.
type Config struct {
	TxTimeout      time.Duration
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// Coordinator turns carts into committed orders.
type Coordinator struct {
	store   uow.Manager
	timeout time.Duration

	tracer    trace.Tracer
	committed metric.Int64Counter
	rejected  metric.Int64Counter
}

// NewCoordinator creates a Coordinator running its units of work on store.
func NewCoordinator(store uow.Manager, cfg Config) (*Coordinator, error) {
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = DefaultTxTimeout
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}

	meter := cfg.MeterProvider.Meter(instrumentationName)
	committed, err := meter.Int64Counter("larder.orders.committed",
		metric.WithDescription("Orders committed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create committed counter")
	}
	rejected, err := meter.Int64Counter("larder.orders.rejected",
		metric.WithDescription("Order submissions that did not commit"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create rejected counter")
	}

	return &Coordinator{
		store:     store,
		timeout:   cfg.TxTimeout,
		tracer:    cfg.TracerProvider.Tracer(instrumentationName),
		committed: committed,
		rejected:  rejected,
	}, nil
}

// Submit commits an order for clientID covering cart. Duplicate menu items
// in the cart are summed into one line.
func (c *Coordinator) Submit(ctx context.Context, clientID int64, cart []order.CartLine) (_ *Receipt, err error) {
	ctx, span := c.tracer.Start(ctx, "fulfillment.Submit", trace.WithAttributes(
		attribute.Int64("client.id", clientID),
		attribute.Int("cart.lines", len(cart)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason(err))))
		}
		span.End()
	}()

	lines, err := mergeCart(cart)
	if err != nil {
		return nil, err
	}
	if clientID <= 0 {
		return nil, order.ErrInvalidClient
	}

	txCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var o *order.Order
	err = c.store.Execute(txCtx, func(r uow.Repositories) error {
		var err error
		o, err = commit(txCtx, r, clientID, lines)
		return err
	})
	if err != nil {
		if isBusiness(err) {
			return nil, err
		}
		return nil, &order.TransactionError{Err: err}
	}

	c.committed.Add(ctx, 1)
	span.SetAttributes(attribute.Int64("order.id", o.ID))
	zctx.From(ctx).Info("Order committed",
		zap.Int64("order_id", o.ID),
		zap.Int64("client_id", clientID),
		zap.Stringer("total", o.Total),
	)

	return &Receipt{
		OrderID:   o.ID,
		Total:     o.Total,
		Lines:     o.Lines,
		CreatedAt: o.CreatedAt,
	}, nil
}

// Delete removes an order and its lines. Stock deducted by the order is not
// given back.
func (c *Coordinator) Delete(ctx context.Context, orderID int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.store.Execute(ctx, func(r uow.Repositories) error {
		return r.Orders().Delete(ctx, orderID)
	})
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return err
		}
		return &order.TransactionError{Err: err}
	}
	zctx.From(ctx).Info("Order deleted", zap.Int64("order_id", orderID))
	return nil
}

// mergeCart validates cart lines and sums repeated menu items, keeping the
// position of each item's first appearance. Names match case-insensitively
// like everywhere else in the catalog.
func mergeCart(cart []order.CartLine) ([]order.CartLine, error) {
	if len(cart) == 0 {
		return nil, order.ErrEmptyCart
	}
	merged := make([]order.CartLine, 0, len(cart))
	index := make(map[string]int, len(cart))
	for _, l := range cart {
		if l.Quantity < 1 || l.Quantity > order.MaxLineQuantity {
			return nil, &order.InvalidQuantityError{MenuItem: l.MenuItem, Quantity: int64(l.Quantity)}
		}
		key := strings.ToLower(strings.TrimSpace(l.MenuItem))
		if i, ok := index[key]; ok {
			// Both operands are at most MaxLineQuantity.
			sum := int64(merged[i].Quantity) + int64(l.Quantity)
			if sum > order.MaxLineQuantity {
				return nil, &order.InvalidQuantityError{MenuItem: merged[i].MenuItem, Quantity: sum}
			}
			merged[i].Quantity = int(sum)
			continue
		}
		index[key] = len(merged)
		merged = append(merged, l)
	}
	return merged, nil
}

// need is the total amount of one ingredient an order consumes.
type need struct {
	name   string
	amount decimal.Decimal
}

func commit(ctx context.Context, r uow.Repositories, clientID int64, lines []order.CartLine) (*order.Order, error) {
	if _, err := r.Clients().Get(ctx, clientID); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, order.ErrInvalidClient
		}
		return nil, errors.Wrap(err, "get client")
	}

	items := make([]*recipe.MenuItem, len(lines))
	for i, l := range lines {
		item, err := r.Recipes().GetByName(ctx, l.MenuItem)
		if err != nil {
			return nil, errors.Wrapf(err, "menu item %q", l.MenuItem)
		}
		if !item.HasRecipe() {
			return nil, &NoRecipeError{MenuItem: item.Name}
		}
		items[i] = item
	}

	needs := make(map[int64]*need)
	for i, item := range items {
		qty := decimal.NewFromInt(int64(lines[i].Quantity))
		for _, rl := range item.Lines {
			n, ok := needs[rl.IngredientID]
			if !ok {
				n = &need{name: rl.Ingredient}
				needs[rl.IngredientID] = n
			}
			n.amount = n.amount.Add(rl.Required.Mul(qty))
		}
	}

	ids := make([]int64, 0, len(needs))
	for id := range needs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	locked, err := r.Ingredients().LockByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "lock ingredients")
	}
	onHand := make(map[int64]inventory.Ingredient, len(locked))
	for _, ing := range locked {
		onHand[ing.ID] = ing
	}
	for _, id := range ids {
		if _, ok := onHand[id]; !ok {
			return nil, errors.Wrapf(inventory.ErrNotFound, "ingredient %q", needs[id].name)
		}
	}

	if err := checkStock(lines, items, needs, onHand); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, err := r.Ingredients().Adjust(ctx, id, needs[id].amount.Neg()); err != nil {
			return nil, errors.Wrapf(err, "deduct %s", needs[id].name)
		}
	}

	o := &order.Order{
		ClientID: clientID,
		Total:    decimal.Zero,
		Lines:    make([]order.Line, len(lines)),
	}
	for i, item := range items {
		subtotal := item.Price.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
		o.Lines[i] = order.Line{
			MenuItemID:   item.ID,
			MenuItemName: item.Name,
			Quantity:     lines[i].Quantity,
			UnitPrice:    item.Price,
			Subtotal:     subtotal,
		}
		o.Total = o.Total.Add(subtotal)
	}
	if err := r.Orders().Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// checkStock compares each ingredient's whole-order need with the locked
// quantity. On a shortage it blames the first cart line at which the
// running total for that ingredient exceeds stock.
func checkStock(lines []order.CartLine, items []*recipe.MenuItem, needs map[int64]*need, onHand map[int64]inventory.Ingredient) error {
	running := make(map[int64]decimal.Decimal, len(needs))
	for i, item := range items {
		qty := decimal.NewFromInt(int64(lines[i].Quantity))
		for _, rl := range item.Lines {
			sum := running[rl.IngredientID].Add(rl.Required.Mul(qty))
			running[rl.IngredientID] = sum

			ing := onHand[rl.IngredientID]
			if sum.GreaterThan(ing.Quantity) {
				return &inventory.InsufficientStockError{
					Ingredient: ing.Name,
					MenuItem:   item.Name,
					Required:   needs[rl.IngredientID].amount,
					Available:  ing.Quantity,
				}
			}
		}
	}
	return nil
}

func isBusiness(err error) bool {
	var noRecipe *NoRecipeError
	switch {
	case errors.Is(err, order.ErrInvalidClient),
		errors.Is(err, recipe.ErrNotFound),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.As(err, &noRecipe):
		return true
	default:
		return false
	}
}

func reason(err error) string {
	var noRecipe *NoRecipeError
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, order.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, order.ErrInvalidClient):
		return "invalid_client"
	case errors.Is(err, recipe.ErrNotFound):
		return "menu_item_not_found"
	case errors.As(err, &noRecipe):
		return "no_recipe"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "transaction_failed"
	}
}

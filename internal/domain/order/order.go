package order

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order submission and lookup.
var (
	ErrNotFound          = errors.New("order not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidClient     = errors.New("invalid client")
	ErrInvalidQuantity   = errors.New("quantity out of range")
	ErrTransactionFailed = errors.New("transaction failed")
)

// MaxLineQuantity is the largest quantity one order line can carry. It
// matches the INTEGER order_lines.quantity column.
const MaxLineQuantity = math.MaxInt32

// InvalidQuantityError indicates a cart line, or the sum of the lines for
// one menu item, falls outside [1, MaxLineQuantity].
type InvalidQuantityError struct {
	MenuItem string
	Quantity int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be between 1 and %d for %s, got %d", MaxLineQuantity, e.MenuItem, e.Quantity)
}

// Is makes errors.Is(err, ErrInvalidQuantity) match.
func (e *InvalidQuantityError) Is(target error) bool {
	return target == ErrInvalidQuantity
}

// TransactionError wraps a storage-level failure that rolled an order back.
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	return "transaction failed: " + e.Err.Error()
}

func (e *TransactionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTransactionFailed) match.
func (e *TransactionError) Is(target error) bool {
	return target == ErrTransactionFailed
}

// Order is a committed customer order.
type Order struct {
	ID         int64
	ClientID   int64
	ClientName string
	Total      decimal.Decimal
	Lines      []Line
	CreatedAt  time.Time
}

// Line is one menu item of an order. UnitPrice and Subtotal are captured at
// commit time and never change afterwards. MenuItemID is zero once the menu
// item has been deleted.
type Line struct {
	MenuItemID   int64
	MenuItemName string
	Quantity     int
	UnitPrice    decimal.Decimal
	Subtotal     decimal.Decimal
}

// CartLine is a requested menu item and quantity awaiting submission.
type CartLine struct {
	MenuItem string
	Quantity int
}

// Filter narrows order listings. A zero ClientID lists every order.
type Filter struct {
	ClientID int64
}

// Repository defines persistence operations for orders. Create assigns ID
// and CreatedAt. List returns newest orders first.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	Delete(ctx context.Context, id int64) error
}

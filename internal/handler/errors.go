package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/larder/internal/domain/auth"
	"github.com/xenking/larder/internal/domain/client"
	"github.com/xenking/larder/internal/domain/fulfillment"
	"github.com/xenking/larder/internal/domain/inventory"
	"github.com/xenking/larder/internal/domain/menu"
	"github.com/xenking/larder/internal/domain/order"
	"github.com/xenking/larder/internal/domain/recipe"
)

// statusOf maps a domain error to its HTTP status. Unknown errors are 500.
func statusOf(err error) int {
	var (
		noRecipe *fulfillment.NoRecipeError
		invalid  *client.ValidationError
		verrs    validator.ValidationErrors
	)
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden

	case errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, recipe.ErrNotFound),
		errors.Is(err, client.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, errBadRequest),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidClient),
		errors.Is(err, inventory.ErrInvalidName),
		errors.Is(err, inventory.ErrInvalidUnit),
		errors.Is(err, menu.ErrInvalidName),
		errors.Is(err, menu.ErrInvalidDescription):
		return http.StatusBadRequest

	case errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, recipe.ErrInvalidQuantity),
		errors.Is(err, recipe.ErrInvalidPrice),
		errors.As(err, &invalid),
		errors.As(err, &verrs):
		return http.StatusUnprocessableEntity

	case errors.Is(err, inventory.ErrInsufficientStock),
		errors.As(err, &noRecipe),
		errors.Is(err, inventory.ErrUnitMismatch),
		errors.Is(err, inventory.ErrAlreadyExists),
		errors.Is(err, inventory.ErrInUse),
		errors.Is(err, recipe.ErrDuplicateIngredient),
		errors.Is(err, recipe.ErrDuplicateMenuItem),
		errors.Is(err, client.ErrEmailTaken),
		errors.Is(err, client.ErrHasOrders):
		return http.StatusConflict

	case errors.Is(err, order.ErrTransactionFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"code":..,"message":..}. Stock shortages add
// the ingredient and menu item involved.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal server error"
	}

	var short *inventory.InsufficientStockError
	errors.As(err, &short)

	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
			if short == nil {
				return
			}
			e.Field("ingredient", func(e *jx.Encoder) { e.Str(short.Ingredient) })
			if short.MenuItem != "" {
				e.Field("menu_item", func(e *jx.Encoder) { e.Str(short.MenuItem) })
			}
			e.Field("required", func(e *jx.Encoder) { encodeDecimal(e, short.Required) })
			e.Field("available", func(e *jx.Encoder) { encodeDecimal(e, short.Available) })
		})
	})
}

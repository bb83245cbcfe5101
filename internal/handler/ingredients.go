package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/larder/internal/domain/inventory"
)

type ingredientRequest struct {
	Name     string          `validate:"required,max=100"`
	Unit     string          `validate:"required,oneof=kg l unit"`
	Quantity decimal.Decimal `validate:"-"`
}

type deltaRequest struct {
	Delta decimal.Decimal `validate:"-"`
	Mode  string          `validate:"omitempty,oneof=guarded clamped"`
}

func (h *Handler) listIngredients(w http.ResponseWriter, r *http.Request) {
	list, err := h.stock.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, ing := range list {
				encodeIngredient(e, ing)
			}
		})
	})
}

func (h *Handler) getIngredient(w http.ResponseWriter, r *http.Request) {
	ing, err := h.stock.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeIngredient(e, *ing) })
}

// upsertIngredient creates the ingredient or adds quantity to it.
func (h *Handler) upsertIngredient(w http.ResponseWriter, r *http.Request) {
	var req ingredientRequest
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		return decodeIngredient(d, key, &req)
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}

	ing, err := h.stock.Upsert(r.Context(), req.Name, inventory.Unit(req.Unit), req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeIngredient(e, *ing) })
}

func (h *Handler) applyDelta(w http.ResponseWriter, r *http.Request) {
	var (
		req   deltaRequest
		found bool
	)
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "delta":
			found = true
			req.Delta, err = decodeDecimal(d)
		case "mode":
			req.Mode, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, badRequest("delta is required"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}

	mode := inventory.Guarded
	if req.Mode == "clamped" {
		mode = inventory.Clamped
	}
	name := r.PathValue("name")
	qty, err := h.stock.ApplyDelta(r.Context(), name, req.Delta, mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("name", func(e *jx.Encoder) { e.Str(inventory.CanonicalName(name)) })
			e.Field("quantity", func(e *jx.Encoder) { encodeDecimal(e, qty) })
		})
	})
}

// importIngredients applies a batch of upserts. The batch commits as a whole
// or not at all.
func (h *Handler) importIngredients(w http.ResponseWriter, r *http.Request) {
	var batch []inventory.Delta
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "items" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var req ingredientRequest
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				return decodeIngredient(d, key, &req)
			}); err != nil {
				return err
			}
			batch = append(batch, inventory.Delta{
				Name:     req.Name,
				Unit:     inventory.Unit(req.Unit),
				Quantity: req.Quantity,
			})
			return nil
		})
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.stock.Import(r.Context(), batch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("created", func(e *jx.Encoder) { e.Int(res.Created) })
			e.Field("updated", func(e *jx.Encoder) { e.Int(res.Updated) })
		})
	})
}

func (h *Handler) deleteIngredient(w http.ResponseWriter, r *http.Request) {
	if err := h.stock.Delete(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeIngredient(d *jx.Decoder, key string, req *ingredientRequest) error {
	var err error
	switch key {
	case "name":
		req.Name, err = d.Str()
	case "unit":
		req.Unit, err = d.Str()
	case "quantity":
		req.Quantity, err = decodeDecimal(d)
	default:
		err = d.Skip()
	}
	return err
}

func encodeIngredient(e *jx.Encoder, ing inventory.Ingredient) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(ing.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(ing.Name) })
		e.Field("unit", func(e *jx.Encoder) { e.Str(string(ing.Unit)) })
		e.Field("quantity", func(e *jx.Encoder) { encodeDecimal(e, ing.Quantity) })
	})
}

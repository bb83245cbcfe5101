package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/larder/internal/domain/availability"
	"github.com/xenking/larder/internal/domain/menu"
	"github.com/xenking/larder/internal/domain/recipe"
)

// listMenu returns the menu split by what current stock can serve. The
// answer is advisory and reserves nothing.
func (h *Handler) listMenu(w http.ResponseWriter, r *http.Request) {
	adv, err := h.avail.Menu(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("checked_at", func(e *jx.Encoder) { encodeTime(e, adv.CheckedAt) })
			e.Field("available", func(e *jx.Encoder) { encodeStatuses(e, adv.Available) })
			e.Field("unavailable", func(e *jx.Encoder) { encodeStatuses(e, adv.Unavailable) })
		})
	})
}

func (h *Handler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	st, err := h.avail.Check(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeStatus(e, *st) })
}

func (h *Handler) createMenuItem(w http.ResponseWriter, r *http.Request) {
	var req menu.CreateRequest
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			req.Name, err = d.Str()
		case "description":
			req.Description, err = d.Str()
		case "price":
			req.Price, err = decodeDecimal(d)
		case "recipe":
			err = d.Arr(func(d *jx.Decoder) error {
				var line menu.LineRequest
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					return decodeLine(d, key, &line)
				}); err != nil {
					return err
				}
				req.Lines = append(req.Lines, line)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.menu.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) { encodeMenuItemFields(e, *item) })
	})
}

func (h *Handler) addRecipeLine(w http.ResponseWriter, r *http.Request) {
	var line menu.LineRequest
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		return decodeLine(d, key, &line)
	}); err != nil {
		writeError(w, r, err)
		return
	}

	name := r.PathValue("name")
	if err := h.menu.AddLine(r.Context(), name, line.Ingredient, line.Required); err != nil {
		writeError(w, r, err)
		return
	}
	lines, err := h.menu.Recipe(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeRecipe(e, lines) })
}

func (h *Handler) setPrice(w http.ResponseWriter, r *http.Request) {
	var (
		price decimal.Decimal
		found bool
	)
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "price" {
			return d.Skip()
		}
		found = true
		var err error
		price, err = decodeDecimal(d)
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if !found {
		writeError(w, r, badRequest("price is required"))
		return
	}
	if err := h.menu.SetPrice(r.Context(), r.PathValue("name"), price); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.menu.Delete(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeLine(d *jx.Decoder, key string, line *menu.LineRequest) error {
	var err error
	switch key {
	case "ingredient":
		line.Ingredient, err = d.Str()
	case "required":
		line.Required, err = decodeDecimal(d)
	default:
		err = d.Skip()
	}
	return err
}

func encodeStatuses(e *jx.Encoder, sts []availability.Status) {
	e.Arr(func(e *jx.Encoder) {
		for _, st := range sts {
			encodeStatus(e, st)
		}
	})
}

func encodeStatus(e *jx.Encoder, st availability.Status) {
	e.Obj(func(e *jx.Encoder) {
		encodeMenuItemFields(e, st.Item)
		e.Field("available", func(e *jx.Encoder) { e.Bool(st.Available) })
		if len(st.Shortfalls) == 0 {
			return
		}
		e.Field("shortfalls", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, s := range st.Shortfalls {
					e.Obj(func(e *jx.Encoder) {
						e.Field("ingredient", func(e *jx.Encoder) { e.Str(s.Ingredient) })
						e.Field("unit", func(e *jx.Encoder) { e.Str(string(s.Unit)) })
						e.Field("required", func(e *jx.Encoder) { encodeDecimal(e, s.Required) })
						e.Field("on_hand", func(e *jx.Encoder) { encodeDecimal(e, s.OnHand) })
					})
				}
			})
		})
	})
}

func encodeMenuItemFields(e *jx.Encoder, item recipe.MenuItem) {
	e.Field("id", func(e *jx.Encoder) { e.Int64(item.ID) })
	e.Field("name", func(e *jx.Encoder) { e.Str(item.Name) })
	e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, item.Price) })
	if item.Description != "" {
		e.Field("description", func(e *jx.Encoder) { e.Str(item.Description) })
	}
	e.Field("recipe", func(e *jx.Encoder) { encodeRecipe(e, item.Lines) })
}

func encodeRecipe(e *jx.Encoder, lines []recipe.Line) {
	e.Arr(func(e *jx.Encoder) {
		for _, l := range lines {
			e.Obj(func(e *jx.Encoder) {
				e.Field("ingredient", func(e *jx.Encoder) { e.Str(l.Ingredient) })
				e.Field("unit", func(e *jx.Encoder) { e.Str(string(l.Unit)) })
				e.Field("required", func(e *jx.Encoder) { encodeDecimal(e, l.Required) })
			})
		}
	})
}

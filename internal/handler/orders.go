package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/larder/internal/domain/order"
)

func (h *Handler) submitOrder(w http.ResponseWriter, r *http.Request) {
	var (
		clientID int64
		cart     []order.CartLine
	)
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "client_id":
			clientID, err = d.Int64()
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				var line order.CartLine
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "menu_item":
						line.MenuItem, err = d.Str()
					case "quantity":
						line.Quantity, err = d.Int()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				cart = append(cart, line)
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

	rec, err := h.orders.Submit(r.Context(), clientID, cart)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Int64(rec.OrderID) })
			e.Field("client_id", func(e *jx.Encoder) { e.Int64(clientID) })
			e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, rec.Total) })
			e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, rec.CreatedAt) })
			e.Field("lines", func(e *jx.Encoder) { encodeOrderLines(e, rec.Lines) })
		})
	})
}

// listOrders returns orders newest first, optionally for one client.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var clientID *int64
	if v := r.URL.Query().Get("client"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, badRequest("invalid client %q", v))
			return
		}
		clientID = &id
	}

	list, err := h.history.List(r.Context(), clientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, o := range list {
				encodeOrder(e, o)
			}
		})
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.history.Order(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, *o) })
}

// deleteOrder removes the order record. Stock consumed by it is not
// returned.
func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.orders.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("client_id", func(e *jx.Encoder) { e.Int64(o.ClientID) })
		e.Field("client_name", func(e *jx.Encoder) { e.Str(o.ClientName) })
		e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, o.Total) })
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
		e.Field("lines", func(e *jx.Encoder) { encodeOrderLines(e, o.Lines) })
	})
}

func encodeOrderLines(e *jx.Encoder, lines []order.Line) {
	e.Arr(func(e *jx.Encoder) {
		for _, l := range lines {
			e.Obj(func(e *jx.Encoder) {
				if l.MenuItemID != 0 {
					e.Field("menu_item_id", func(e *jx.Encoder) { e.Int64(l.MenuItemID) })
				}
				e.Field("menu_item", func(e *jx.Encoder) { e.Str(l.MenuItemName) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
				e.Field("unit_price", func(e *jx.Encoder) { encodeDecimal(e, l.UnitPrice) })
				e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, l.Subtotal) })
			})
		}
	})
}

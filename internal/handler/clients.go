package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/larder/internal/domain/client"
)

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	list, err := h.clients.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, c := range list {
				encodeClient(e, c)
			}
		})
	})
}

func (h *Handler) registerClient(w http.ResponseWriter, r *http.Request) {
	var name, email string
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			name, err = d.Str()
		case "email":
			email, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.clients.Register(r.Context(), name, email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeClient(e, *c) })
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.clients.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeClient(e, *c) })
}

func (h *Handler) deleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.clients.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func encodeClient(e *jx.Encoder, c client.Client) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(c.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(c.Name) })
		e.Field("email", func(e *jx.Encoder) { e.Str(c.Email) })
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, c.CreatedAt) })
	})
}

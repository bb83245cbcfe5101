// Package handler exposes the larder services as a JSON HTTP API.
package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/xenking/larder/internal/domain/auth"
	"github.com/xenking/larder/internal/domain/availability"
	"github.com/xenking/larder/internal/domain/client"
	"github.com/xenking/larder/internal/domain/fulfillment"
	"github.com/xenking/larder/internal/domain/history"
	"github.com/xenking/larder/internal/domain/menu"
	"github.com/xenking/larder/internal/domain/stock"
)

// Deps are the services a Handler delegates to.
type Deps struct {
	Stock        *stock.Service
	Menu         *menu.Service
	Availability *availability.Service
	Coordinator  *fulfillment.Coordinator
	History      *history.Service
	Clients      *client.Service
	Auth         *Authenticator
}

// Handler serves the /api routes.
type Handler struct {
	stock    *stock.Service
	menu     *menu.Service
	avail    *availability.Service
	orders   *fulfillment.Coordinator
	history  *history.Service
	clients  *client.Service
	auth     *Authenticator
	validate *validator.Validate
}

// New constructs a Handler.
func New(d Deps) *Handler {
	return &Handler{
		stock:    d.Stock,
		menu:     d.Menu,
		avail:    d.Availability,
		orders:   d.Coordinator,
		history:  d.History,
		clients:  d.Clients,
		auth:     d.Auth,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	menuScope := func(fn http.HandlerFunc) http.HandlerFunc { return h.auth.Require(auth.ScopeManageMenu, fn) }
	stockScope := func(fn http.HandlerFunc) http.HandlerFunc { return h.auth.Require(auth.ScopeManageStock, fn) }

	mux.HandleFunc("GET /api/menu", h.listMenu)
	mux.HandleFunc("GET /api/menu/{name}", h.getMenuItem)
	mux.HandleFunc("POST /api/menu", menuScope(h.createMenuItem))
	mux.HandleFunc("POST /api/menu/{name}/lines", menuScope(h.addRecipeLine))
	mux.HandleFunc("PUT /api/menu/{name}/price", menuScope(h.setPrice))
	mux.HandleFunc("DELETE /api/menu/{name}", menuScope(h.deleteMenuItem))

	mux.HandleFunc("GET /api/ingredients", h.listIngredients)
	mux.HandleFunc("GET /api/ingredients/{name}", h.getIngredient)
	mux.HandleFunc("POST /api/ingredients", stockScope(h.upsertIngredient))
	mux.HandleFunc("POST /api/ingredients/import", stockScope(h.importIngredients))
	mux.HandleFunc("POST /api/ingredients/{name}/delta", stockScope(h.applyDelta))
	mux.HandleFunc("DELETE /api/ingredients/{name}", stockScope(h.deleteIngredient))

	mux.HandleFunc("GET /api/clients", h.listClients)
	mux.HandleFunc("POST /api/clients", h.registerClient)
	mux.HandleFunc("GET /api/clients/{id}", h.getClient)
	mux.HandleFunc("DELETE /api/clients/{id}", h.auth.Require(auth.ScopeClients, h.deleteClient))

	mux.HandleFunc("POST /api/orders", h.auth.Require(auth.ScopeOrders, h.submitOrder))
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.auth.Require(auth.ScopeOrders, h.deleteOrder))
}

// Package memory is an in-process implementation of the storage contracts.
// Units of work run one at a time against a private copy of the data that
// replaces the shared copy only on success.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/xenking/larder/internal/domain/client"
	"github.com/xenking/larder/internal/domain/inventory"
	"github.com/xenking/larder/internal/domain/order"
	"github.com/xenking/larder/internal/domain/recipe"
	"github.com/xenking/larder/internal/domain/uow"
)

var _ uow.Store = (*Store)(nil)

type state struct {
	ingredients map[int64]inventory.Ingredient
	menu        map[int64]recipe.MenuItem
	clients     map[int64]client.Client
	orders      map[int64]order.Order

	ingredientSeq int64
	menuSeq       int64
	clientSeq     int64
	orderSeq      int64
}

func newState() *state {
	return &state{
		ingredients: make(map[int64]inventory.Ingredient),
		menu:        make(map[int64]recipe.MenuItem),
		clients:     make(map[int64]client.Client),
		orders:      make(map[int64]order.Order),
	}
}

func (s *state) clone() *state {
	c := *s
	c.ingredients = make(map[int64]inventory.Ingredient, len(s.ingredients))
	for id, v := range s.ingredients {
		c.ingredients[id] = v
	}
	c.menu = make(map[int64]recipe.MenuItem, len(s.menu))
	for id, v := range s.menu {
		v.Lines = slices.Clone(v.Lines)
		c.menu[id] = v
	}
	c.clients = make(map[int64]client.Client, len(s.clients))
	for id, v := range s.clients {
		c.clients[id] = v
	}
	c.orders = make(map[int64]order.Order, len(s.orders))
	for id, v := range s.orders {
		v.Lines = slices.Clone(v.Lines)
		c.orders[id] = v
	}
	return &c
}

// Store keeps all data in memory.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

// Execute runs fn against a copy of the data and publishes the copy when fn
// succeeds and ctx is still live.
func (s *Store) Execute(ctx context.Context, fn func(r uow.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.st.clone()
	if err := fn(&view{store: s, tx: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = tx
	return nil
}

// Ingredients returns a repository that commits every call on its own.
func (s *Store) Ingredients() inventory.Repository { return &ingredientRepo{view{store: s}} }

// Recipes returns a repository that commits every call on its own.
func (s *Store) Recipes() recipe.Repository { return &recipeRepo{view{store: s}} }

// Clients returns a repository that commits every call on its own.
func (s *Store) Clients() client.Repository { return &clientRepo{view{store: s}} }

// Orders returns a repository that commits every call on its own.
func (s *Store) Orders() order.Repository { return &orderRepo{view{store: s}} }

// view routes repository calls either to a transaction copy or, outside a
// unit of work, to the shared data under the store lock.
type view struct {
	store *Store
	tx    *state
}

func (v view) do(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

func (v *view) Ingredients() inventory.Repository { return &ingredientRepo{*v} }
func (v *view) Recipes() recipe.Repository         { return &recipeRepo{*v} }
func (v *view) Clients() client.Repository         { return &clientRepo{*v} }
func (v *view) Orders() order.Repository           { return &orderRepo{*v} }

func (v view) now() time.Time { return v.store.now().UTC() }

func sameName(a, b string) bool { return strings.EqualFold(a, b) }

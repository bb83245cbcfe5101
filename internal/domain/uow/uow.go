// Package uow defines the unit of work shared by services that must change
// several entities atomically.
package uow

import (
	"context"

	"github.com/xenking/larder/internal/domain/client"
	"github.com/xenking/larder/internal/domain/inventory"
	"github.com/xenking/larder/internal/domain/order"
	"github.com/xenking/larder/internal/domain/recipe"
)

// Repositories gives access to every repository. Inside Execute they are
// bound to the running transaction and see its uncommitted writes.
type Repositories interface {
	Ingredients() inventory.Repository
	Recipes() recipe.Repository
	Clients() client.Repository
	Orders() order.Repository
}

// Manager runs fn in one transaction. It commits when fn returns nil and
// rolls back when fn returns an error, panics or ctx ends first.
type Manager interface {
	Execute(ctx context.Context, fn func(r Repositories) error) error
}

// Store is a storage handle with both plain and transactional access.
type Store interface {
	Repositories
	Manager
}

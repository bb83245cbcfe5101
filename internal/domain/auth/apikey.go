package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for a missing, unknown or inactive API key.
var ErrUnauthorized = errors.New("unauthorized")

// Scopes granted to API keys.
const (
	ScopeManageStock = "manage_stock"
	ScopeManageMenu  = "manage_menu"
	ScopeOrders      = "orders"
	ScopeClients     = "clients"
)

// APIKey holds the identity and permission data for an API key.
type APIKey struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
	Active  bool
}

// HasScope reports whether the key grants scope.
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// HashKey returns the hex HMAC-SHA256 of key under pepper. Only hashes are
// ever stored.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Repository stores API keys by their hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
	Upsert(ctx context.Context, key *APIKey) error
}

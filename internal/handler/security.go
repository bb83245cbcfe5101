package handler

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/larder/internal/domain/auth"
)

var errForbidden = errors.New("api key lacks required scope")

type apiKeyCtx struct{}

// APIKeyFromContext returns the key that authenticated the request.
func APIKeyFromContext(ctx context.Context) (*auth.APIKey, bool) {
	k, ok := ctx.Value(apiKeyCtx{}).(*auth.APIKey)
	return k, ok
}

// Authenticator checks API keys sent in the X-API-Key or api_key header
// against their stored HMAC-SHA256 hashes.
type Authenticator struct {
	keys   auth.Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(keys auth.Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, pepper: pepper}
}

// Authenticate resolves a raw key to an active APIKey.
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (*auth.APIKey, error) {
	if raw == "" {
		return nil, auth.ErrUnauthorized
	}
	hash := auth.HashKey(a.pepper, raw)
	key, err := a.keys.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			return nil, err
		}
		return nil, errors.Wrap(err, "find api key")
	}
	if subtle.ConstantTimeCompare([]byte(hash), []byte(key.KeyHash)) != 1 || !key.Active {
		return nil, auth.ErrUnauthorized
	}
	return key, nil
}

// Require wraps next so that it only runs for keys granting scope.
func (a *Authenticator) Require(scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-API-Key")
		if raw == "" {
			raw = r.Header.Get("api_key")
		}
		key, err := a.Authenticate(r.Context(), raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !key.HasScope(scope) {
			writeError(w, r, errors.Wrap(errForbidden, scope))
			return
		}
		ctx := context.WithValue(r.Context(), apiKeyCtx{}, key)
		ctx = zctx.With(ctx, zap.String("api_key", key.Name))
		next(w, r.WithContext(ctx))
	}
}

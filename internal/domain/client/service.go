package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

// ValidationError reports the first client field that failed validation.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: failed %q", strings.ToLower(e.Field), e.Rule)
}

// Service registers and removes clients.
type Service struct {
	clients  Repository
	validate *validator.Validate
}

// NewService creates a client Service backed by the given repository.
func NewService(clients Repository) *Service {
	return &Service{
		clients:  clients,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register validates and stores a new client. Emails are unique regardless
// of case and are stored lower-cased.
func (s *Service) Register(ctx context.Context, name, email string) (*Client, error) {
	c := &Client{
		Name:  strings.TrimSpace(name),
		Email: strings.ToLower(strings.TrimSpace(email)),
	}
	if err := s.validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &ValidationError{Field: verrs[0].Field(), Rule: verrs[0].Tag()}
		}
		return nil, errors.Wrap(err, "validate client")
	}
	if err := s.clients.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create client")
	}
	return c, nil
}

// Get returns a client by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	return s.clients.Get(ctx, id)
}

// List returns every registered client.
func (s *Service) List(ctx context.Context) ([]Client, error) {
	return s.clients.List(ctx)
}

// Delete removes a client that has never ordered. Clients referenced by an
// order are kept and ErrHasOrders is returned.
func (s *Service) Delete(ctx context.Context, id int64) error {
	n, err := s.clients.CountOrders(ctx, id)
	if err != nil {
		return errors.Wrap(err, "count orders")
	}
	if n > 0 {
		return ErrHasOrders
	}
	if err := s.clients.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete client")
	}
	return nil
}

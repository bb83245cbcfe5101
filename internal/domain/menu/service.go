// Package menu manages menu items and the recipes that tie them to stock.
package menu

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xenking/larder/internal/domain/inventory"
	"github.com/xenking/larder/internal/domain/recipe"
	"github.com/xenking/larder/internal/domain/uow"
)

var (
	// ErrInvalidName is returned when a menu item name is blank or too long.
	ErrInvalidName = errors.New("invalid menu item name")
	// ErrInvalidDescription is returned when a description is too long.
	ErrInvalidDescription = errors.New("invalid menu item description")
)

// ValidationError reports the first CreateRequest field that failed
// validation. It matches ErrInvalidName or ErrInvalidDescription by field.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid menu item %s: failed %q", strings.ToLower(e.Field), e.Rule)
}

func (e *ValidationError) Is(target error) bool {
	switch e.Field {
	case "Name":
		return target == ErrInvalidName
	case "Description":
		return target == ErrInvalidDescription
	}
	return false
}

// CreateRequest describes a new menu item and its full recipe.
type CreateRequest struct {
	Name        string `validate:"required,max=100"`
	Price       decimal.Decimal
	Description string `validate:"max=500"`
	Lines       []LineRequest
}

// LineRequest names an ingredient and the amount one serving needs.
type LineRequest struct {
	Ingredient string
	Required   decimal.Decimal
}

// Service is the recipe catalog.
type Service struct {
	store    uow.Store
	validate *validator.Validate
}

// NewService creates a menu Service over the given store.
func NewService(store uow.Store) *Service {
	return &Service{
		store:    store,
		validate: validator.New(),
	}
}

// List returns every menu item with its recipe.
func (s *Service) List(ctx context.Context) ([]recipe.MenuItem, error) {
	return s.store.Recipes().List(ctx)
}

// Get returns one menu item with its recipe.
func (s *Service) Get(ctx context.Context, name string) (*recipe.MenuItem, error) {
	return s.store.Recipes().GetByName(ctx, strings.TrimSpace(name))
}

// Recipe returns the recipe lines of a menu item in the order they were added.
func (s *Service) Recipe(ctx context.Context, name string) ([]recipe.Line, error) {
	item, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return item.Lines, nil
}

// Create stores a menu item together with its recipe in one transaction.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*recipe.MenuItem, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &ValidationError{Field: verrs[0].Field(), Rule: verrs[0].Tag()}
		}
		return nil, errors.Wrap(err, "validate menu item")
	}
	if !req.Price.IsPositive() {
		return nil, recipe.ErrInvalidPrice
	}

	seen := make(map[string]struct{}, len(req.Lines))
	for i, l := range req.Lines {
		name := inventory.CanonicalName(l.Ingredient)
		if name == "" {
			return nil, inventory.ErrInvalidName
		}
		if !l.Required.IsPositive() {
			return nil, errors.Wrapf(recipe.ErrInvalidQuantity, "line %d (%s)", i, name)
		}
		if _, ok := seen[name]; ok {
			return nil, errors.Wrapf(recipe.ErrDuplicateIngredient, "line %d (%s)", i, name)
		}
		seen[name] = struct{}{}
		req.Lines[i].Ingredient = name
	}

	item := &recipe.MenuItem{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
	}
	err := s.store.Execute(ctx, func(r uow.Repositories) error {
		item.Lines = nil
		if err := r.Recipes().Create(ctx, item); err != nil {
			return err
		}
		for _, l := range req.Lines {
			line, err := resolveLine(ctx, r.Ingredients(), l.Ingredient, l.Required)
			if err != nil {
				return err
			}
			if err := r.Recipes().AddLine(ctx, item.ID, line); err != nil {
				return err
			}
			item.Lines = append(item.Lines, line)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// AddLine appends an ingredient to a menu item's recipe.
func (s *Service) AddLine(ctx context.Context, menuItem, ingredient string, required decimal.Decimal) error {
	if !required.IsPositive() {
		return recipe.ErrInvalidQuantity
	}
	ingredient = inventory.CanonicalName(ingredient)
	if ingredient == "" {
		return inventory.ErrInvalidName
	}

	return s.store.Execute(ctx, func(r uow.Repositories) error {
		item, err := r.Recipes().GetByName(ctx, strings.TrimSpace(menuItem))
		if err != nil {
			return err
		}
		line, err := resolveLine(ctx, r.Ingredients(), ingredient, required)
		if err != nil {
			return err
		}
		for _, l := range item.Lines {
			if l.IngredientID == line.IngredientID {
				return recipe.ErrDuplicateIngredient
			}
		}
		return r.Recipes().AddLine(ctx, item.ID, line)
	})
}

// SetPrice changes the price future orders are charged. Committed orders
// keep the price they were sold at.
func (s *Service) SetPrice(ctx context.Context, name string, price decimal.Decimal) error {
	if !price.IsPositive() {
		return recipe.ErrInvalidPrice
	}
	item, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	return s.store.Recipes().SetPrice(ctx, item.ID, price)
}

// Delete removes a menu item and its recipe. Past order lines keep the item
// name they were sold under.
func (s *Service) Delete(ctx context.Context, name string) error {
	item, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	return s.store.Recipes().Delete(ctx, item.ID)
}

func resolveLine(ctx context.Context, ingredients inventory.Repository, name string, required decimal.Decimal) (recipe.Line, error) {
	ing, err := ingredients.GetByName(ctx, name)
	if err != nil {
		return recipe.Line{}, err
	}
	return recipe.Line{
		IngredientID: ing.ID,
		Ingredient:   ing.Name,
		Unit:         ing.Unit,
		Required:     required,
	}, nil
}

package domain

import (
	"context"
	"time"
)

// Recipe is a shared recipe with its popularity counters.
type Recipe struct {
	ID           int64
	Title        string
	Country      string
	Description  string
	Ingredients  []string
	Instructions string
	Clicks       int64
	Favorites    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewRecipe holds the input for creating a recipe.
type NewRecipe struct {
	Title        string
	Country      string
	Description  string
	Ingredients  []string
	Instructions string
}

// RecipePatch is a partial update of a recipe. Nil fields are left unchanged;
// a non-nil Ingredients replaces the whole sequence.
type RecipePatch struct {
	Title        *string
	Country      *string
	Description  *string
	Ingredients  *[]string
	Instructions *string
}

// Apply copies the present fields of p onto r.
func (p RecipePatch) Apply(r *Recipe) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Country != nil {
		r.Country = *p.Country
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Ingredients != nil {
		r.Ingredients = append([]string(nil), (*p.Ingredients)...)
	}
	if p.Instructions != nil {
		r.Instructions = *p.Instructions
	}
}

// IngredientOrder selects the ordering of an ingredient search.
type IngredientOrder string

const (
	OrderDefault IngredientOrder = "default"
	OrderCountry IngredientOrder = "country"
)

// Valid reports whether o is a known ordering.
func (o IngredientOrder) Valid() bool {
	return o == OrderDefault || o == OrderCountry
}

// Popularity thresholds for the top recipes query.
const (
	TopMinFavorites = 100
	TopMinClicks    = 50
	TopLimit        = 3
)

// RecipeRepository defines persistence operations for recipes.
type RecipeRepository interface {
	Create(ctx context.Context, recipe *Recipe) error
	GetByID(ctx context.Context, id int64) (*Recipe, error)
	List(ctx context.Context, page Page) ([]Recipe, error)
	// FindByIngredients returns recipes whose ingredients contain every
	// element of ingredients.
	FindByIngredients(ctx context.Context, ingredients []string, order IngredientOrder) ([]Recipe, error)
	// Top returns up to limit recipes with favorites > minFavorites and
	// clicks > minClicks.
	Top(ctx context.Context, minFavorites, minClicks int64, limit int) ([]Recipe, error)
	Update(ctx context.Context, recipe *Recipe) error
	// Delete removes the recipe and its favorites edges and returns the
	// removed row.
	Delete(ctx context.Context, id int64) (*Recipe, error)
	// IncrementClicks atomically adds one click and returns the new count.
	IncrementClicks(ctx context.Context, id int64) (int64, error)
}

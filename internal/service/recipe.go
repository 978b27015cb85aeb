package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/msomdec/recipe-box/internal/cache"
	"github.com/msomdec/recipe-box/internal/domain"
	"github.com/msomdec/recipe-box/internal/events"
)

const (
	msgRecipeNotFound = "Recipe not found"
	msgRecipeExists   = "Recipe already exist"
	msgNoRecipes      = "There are not recipes registered yet"
)

// RecipeService serves recipe reads from the cache and writes to the store,
// announcing every write on the event bus.
type RecipeService struct {
	recipes domain.RecipeRepository
	cache   cache.Cache
	events  events.Publisher
	logger  *slog.Logger
}

// NewRecipeService creates a new RecipeService.
func NewRecipeService(recipes domain.RecipeRepository, c cache.Cache, pub events.Publisher) *RecipeService {
	return &RecipeService{
		recipes: recipes,
		cache:   c,
		events:  pub,
		logger:  slog.Default().With("component", "recipes"),
	}
}

// Create validates and stores a new recipe.
func (s *RecipeService) Create(ctx context.Context, in domain.NewRecipe) (*domain.Recipe, error) {
	ingredients := cleanIngredients(in.Ingredients)
	if blank(in.Title) || blank(in.Country) || blank(in.Description) || blank(in.Instructions) || len(ingredients) == 0 {
		return nil, invalid("title, country, description, ingredients and instructions are required")
	}

	recipe := &domain.Recipe{
		Title:        strings.TrimSpace(in.Title),
		Country:      strings.TrimSpace(in.Country),
		Description:  in.Description,
		Ingredients:  ingredients,
		Instructions: in.Instructions,
	}
	if err := s.recipes.Create(ctx, recipe); err != nil {
		if errors.Is(err, domain.ErrDuplicateTitle) {
			return nil, domain.NewError(domain.ErrDuplicateTitle, msgRecipeExists)
		}
		return nil, classify(s.logger, "create recipe", err)
	}

	s.publish(ctx, events.TopicRecipeCreated, events.RecipeEvent{ID: recipe.ID})
	return recipe, nil
}

// List returns one page of recipes ordered by id.
func (s *RecipeService) List(ctx context.Context, page domain.Page) ([]domain.Recipe, error) {
	page = page.Normalize()
	if err := page.Validate(); err != nil {
		return nil, err
	}

	recipes, err := cache.GetOrFetch(ctx, s.cache, cache.RecipeListKey(page), func(ctx context.Context) ([]domain.Recipe, error) {
		recipes, err := s.recipes.List(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(recipes) == 0 {
			return nil, domain.NewError(domain.ErrEmptyResult, msgNoRecipes)
		}
		return recipes, nil
	})
	if err != nil {
		return nil, classify(s.logger, "list recipes", err)
	}
	return recipes, nil
}

// GetByID returns a recipe and records the visit. The click counter is
// persisted on every call and the cached copy is overlaid with the fresh
// count; aggregates that embed the counter are invalidated through the
// clicked event.
func (s *RecipeService) GetByID(ctx context.Context, id int64) (*domain.Recipe, error) {
	recipe, err := cache.GetOrFetch(ctx, s.cache, cache.RecipeKey(id), func(ctx context.Context) (*domain.Recipe, error) {
		recipe, err := s.recipes.GetByID(ctx, id)
		return recipe, notFound(err, msgRecipeNotFound)
	})
	if err != nil {
		return nil, classify(s.logger, "get recipe", err)
	}

	clicks, err := s.recipes.IncrementClicks(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Deleted since it was cached.
			_ = s.cache.Delete(ctx, cache.RecipeKey(id))
		}
		return nil, classify(s.logger, "increment clicks", notFound(err, msgRecipeNotFound))
	}
	recipe.Clicks = clicks
	s.publish(ctx, events.TopicRecipeClicked, events.RecipeEvent{ID: id})
	return recipe, nil
}

// FindByIngredients returns the recipes whose ingredients contain every
// requested ingredient. The request is treated as a set.
func (s *RecipeService) FindByIngredients(ctx context.Context, ingredients []string, order domain.IngredientOrder) ([]domain.Recipe, error) {
	set := cache.NormalizeIngredients(ingredients)
	if len(set) == 0 {
		return nil, invalid("at least one ingredient is required")
	}
	if order == "" {
		order = domain.OrderDefault
	}
	if !order.Valid() {
		return nil, invalid("orderBy must be one of default, country")
	}

	recipes, err := cache.GetOrFetch(ctx, s.cache, cache.RecipeIngredientsKey(set, order), func(ctx context.Context) ([]domain.Recipe, error) {
		recipes, err := s.recipes.FindByIngredients(ctx, set, order)
		if err != nil {
			return nil, err
		}
		if len(recipes) == 0 {
			return nil, domain.NewError(domain.ErrNotFound, msgRecipeNotFound)
		}
		return recipes, nil
	})
	if err != nil {
		return nil, classify(s.logger, "find recipes by ingredients", err)
	}
	return recipes, nil
}

// Update applies patch to the recipe. Popularity counters are not editable.
func (s *RecipeService) Update(ctx context.Context, id int64, patch domain.RecipePatch) (*domain.Recipe, error) {
	if err := validateRecipePatch(&patch); err != nil {
		return nil, err
	}

	recipe, err := s.recipes.GetByID(ctx, id)
	if err != nil {
		return nil, classify(s.logger, "get recipe", notFound(err, msgRecipeNotFound))
	}
	patch.Apply(recipe)
	if err := s.recipes.Update(ctx, recipe); err != nil {
		if errors.Is(err, domain.ErrDuplicateTitle) {
			return nil, domain.NewError(domain.ErrDuplicateTitle, msgRecipeExists)
		}
		return nil, classify(s.logger, "update recipe", notFound(err, msgRecipeNotFound))
	}

	s.publish(ctx, events.TopicRecipeMutated, events.RecipeEvent{ID: recipe.ID})
	return recipe, nil
}

// Delete removes the recipe and its favorites edges.
func (s *RecipeService) Delete(ctx context.Context, id int64) error {
	removed, err := s.recipes.Delete(ctx, id)
	if err != nil {
		return classify(s.logger, "delete recipe", notFound(err, msgRecipeNotFound))
	}
	s.publish(ctx, events.TopicRecipeMutated, events.RecipeEvent{ID: removed.ID})
	return nil
}

// TopThree returns up to three recipes that are both well liked and
// frequently visited. An empty result is not an error.
func (s *RecipeService) TopThree(ctx context.Context) ([]domain.Recipe, error) {
	recipes, err := cache.GetOrFetch(ctx, s.cache, cache.RecipeTopKey, func(ctx context.Context) ([]domain.Recipe, error) {
		recipes, err := s.recipes.Top(ctx, domain.TopMinFavorites, domain.TopMinClicks, domain.TopLimit)
		if err != nil {
			return nil, err
		}
		if recipes == nil {
			recipes = []domain.Recipe{}
		}
		return recipes, nil
	})
	if err != nil {
		return nil, classify(s.logger, "top recipes", err)
	}
	return recipes, nil
}

// publish emits an event after a committed write. A failed publish is
// logged; the write stands.
func (s *RecipeService) publish(ctx context.Context, topic string, payload any) {
	if err := s.events.Publish(ctx, topic, payload); err != nil {
		s.logger.Error("publish event failed", "topic", topic, "error", err)
	}
}

func validateRecipePatch(p *domain.RecipePatch) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"title", p.Title},
		{"country", p.Country},
		{"description", p.Description},
		{"instructions", p.Instructions},
	}
	for _, f := range fields {
		if f.value != nil && blank(*f.value) {
			return invalid(f.name + " must not be empty")
		}
	}
	if p.Ingredients != nil {
		cleaned := cleanIngredients(*p.Ingredients)
		if len(cleaned) == 0 {
			return invalid("ingredients must not be empty")
		}
		p.Ingredients = &cleaned
	}
	return nil
}

// cleanIngredients trims entries and drops blank ones, keeping order.
func cleanIngredients(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

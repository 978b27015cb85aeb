package cache

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/msomdec/recipe-box/internal/domain"
)

// Separator joins key segments.
const Separator = "::"

// Key families. Each prefix ends with Separator so that it never matches a
// sibling family.
const (
	RecipeListPrefix        = "recipes" + Separator + "list" + Separator
	RecipeByIDPrefix        = "recipes" + Separator + "id" + Separator
	RecipeIngredientsPrefix = "recipes" + Separator + "ingredients" + Separator
	RecipeTopKey            = "recipes" + Separator + "top3"

	UserListPrefix      = "users" + Separator + "list" + Separator
	UserByIDPrefix      = "users" + Separator + "id" + Separator
	UserProfilePrefix   = "users" + Separator + "profile" + Separator
	UserFavoritesPrefix = "users" + Separator + "favorites" + Separator
)

// RecipeListKey keys one page of the recipe list.
func RecipeListKey(p domain.Page) string {
	return RecipeListPrefix + pageSuffix(p)
}

func RecipeKey(id int64) string {
	return RecipeByIDPrefix + strconv.FormatInt(id, 10)
}

// RecipeIngredientsKey keys an ingredient search. Ingredients are treated as
// a set: order and duplicates do not change the key.
func RecipeIngredientsKey(ingredients []string, order domain.IngredientOrder) string {
	set := NormalizeIngredients(ingredients)
	escaped := make([]string, len(set))
	for i, s := range set {
		escaped[i] = url.QueryEscape(s)
	}
	return RecipeIngredientsPrefix + string(order) + Separator + strings.Join(escaped, ",")
}

func UserListKey(p domain.Page) string {
	return UserListPrefix + pageSuffix(p)
}

func UserKey(id int64) string {
	return UserByIDPrefix + strconv.FormatInt(id, 10)
}

func UserProfileKey(id int64) string {
	return UserProfilePrefix + strconv.FormatInt(id, 10)
}

func UserFavoritesKey(id int64) string {
	return UserFavoritesPrefix + strconv.FormatInt(id, 10)
}

// NormalizeIngredients trims, drops empty entries, sorts and deduplicates.
func NormalizeIngredients(ingredients []string) []string {
	out := make([]string, 0, len(ingredients))
	for _, s := range ingredients {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func pageSuffix(p domain.Page) string {
	return strconv.Itoa(p.Limit) + Separator + strconv.Itoa(p.Offset)
}

package cache_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/msomdec/recipe-box/internal/cache"
	"github.com/msomdec/recipe-box/internal/domain"
)

func TestRecipeIngredientsKey_SetSemantics(t *testing.T) {
	a := cache.RecipeIngredientsKey([]string{"b", "a", "a", " c "}, domain.OrderDefault)
	b := cache.RecipeIngredientsKey([]string{"c", "b", "a"}, domain.OrderDefault)
	if a != b {
		t.Fatalf("expected equal keys for the same set, got %q and %q", a, b)
	}

	byCountry := cache.RecipeIngredientsKey([]string{"a", "b", "c"}, domain.OrderCountry)
	if byCountry == a {
		t.Fatal("expected order mode to change the key")
	}
	if !strings.HasPrefix(a, cache.RecipeIngredientsPrefix) {
		t.Fatalf("expected %q to start with %q", a, cache.RecipeIngredientsPrefix)
	}
}

func TestRecipeIngredientsKey_EscapesSeparators(t *testing.T) {
	joined := cache.RecipeIngredientsKey([]string{"salt,pepper"}, domain.OrderDefault)
	split := cache.RecipeIngredientsKey([]string{"salt", "pepper"}, domain.OrderDefault)
	if joined == split {
		t.Fatalf("expected distinct keys, both were %q", joined)
	}
}

func TestPageKeys(t *testing.T) {
	p1 := cache.RecipeListKey(domain.Page{Limit: 10, Offset: 0})
	p2 := cache.RecipeListKey(domain.Page{Limit: 10, Offset: 10})
	if p1 == p2 {
		t.Fatal("expected pages to have distinct keys")
	}
	if cache.UserListKey(domain.Page{Limit: 10}) == p1 {
		t.Fatal("expected user and recipe lists to have distinct keys")
	}
}

func TestNormalizeIngredients(t *testing.T) {
	got := cache.NormalizeIngredients([]string{"tomato", "", "basil", "tomato", "  garlic"})
	want := []string{"basil", "garlic", "tomato"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

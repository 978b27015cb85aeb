package sqlstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/msomdec/recipe-box/internal/domain"
	"github.com/msomdec/recipe-box/internal/repository/sqlstore"
)

func createUser(t *testing.T, repo *sqlstore.UserRepository, email string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{
		Name:         "Test",
		Email:        email,
		PasswordHash: "hashedpw",
		Role:         role,
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create %s: %v", email, err)
	}
	return u
}

func TestUserRepository_Create(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	user := createUser(t, repo, "test@example.com", domain.RoleRegular)
	if user.ID == 0 {
		t.Fatal("expected user ID to be set after create")
	}
	if user.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	got, err := repo.GetByEmail(ctx, "test@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != user.ID || got.Role != domain.RoleRegular || got.LastName != "" {
		t.Fatalf("unexpected user %+v", got)
	}
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()

	createUser(t, repo, "dup@example.com", domain.RoleRegular)

	err := repo.Create(context.Background(), &domain.User{Name: "Other", Email: "dup@example.com", PasswordHash: "x", Role: domain.RoleRegular})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.Users().GetByID(context.Background(), 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := db.Users().GetByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_Update(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	createUser(t, repo, "taken@example.com", domain.RoleRegular)
	u := createUser(t, repo, "me@example.com", domain.RoleRegular)

	u.LastName = "Doe"
	u.Role = domain.RoleAdmin
	if err := repo.Update(ctx, u); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.LastName != "Doe" || got.Role != domain.RoleAdmin {
		t.Fatalf("expected update to persist, got %+v", got)
	}

	u.Email = "taken@example.com"
	if err := repo.Update(ctx, u); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUserRepository_ExistsWithRole(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	exists, err := repo.ExistsWithRole(ctx, domain.RoleAdmin)
	if err != nil || exists {
		t.Fatalf("expected no admin yet, got exists=%v err=%v", exists, err)
	}

	createUser(t, repo, "admin@example.com", domain.RoleAdmin)
	exists, err = repo.ExistsWithRole(ctx, domain.RoleAdmin)
	if err != nil || !exists {
		t.Fatalf("expected admin to exist, got exists=%v err=%v", exists, err)
	}
}

func TestUserRepository_Favorites_AddRemove(t *testing.T) {
	db := newTestDB(t)
	users := db.Users()
	recipes := db.Recipes()
	ctx := context.Background()

	u := createUser(t, users, "fan@example.com", domain.RoleRegular)
	r1 := createRecipe(t, recipes, "r1", "X", "a")
	r2 := createRecipe(t, recipes, "r2", "X", "b")

	for _, r := range []*domain.Recipe{r1, r2} {
		added, err := users.AddFavorite(ctx, u.ID, r.ID)
		if err != nil || !added {
			t.Fatalf("AddFavorite %d: added=%v err=%v", r.ID, added, err)
		}
	}

	added, err := users.AddFavorite(ctx, u.ID, r1.ID)
	if err != nil {
		t.Fatalf("AddFavorite again: %v", err)
	}
	if added {
		t.Fatal("expected second add of the same pair to be a no-op")
	}

	got, err := recipes.GetByID(ctx, r1.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Favorites != 1 {
		t.Fatalf("expected favorites counter 1 after idempotent add, got %d", got.Favorites)
	}

	withFavs, err := users.GetWithFavorites(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetWithFavorites: %v", err)
	}
	if diff := cmp.Diff([]string{"r1", "r2"}, titles(withFavs.Favorites)); diff != "" {
		t.Fatalf("favorites mismatch (-want +got):\n%s", diff)
	}

	if err := users.RemoveFavorite(ctx, u.ID, r1.ID); err != nil {
		t.Fatalf("RemoveFavorite: %v", err)
	}
	favs, err := users.Favorites(ctx, u.ID)
	if err != nil {
		t.Fatalf("Favorites: %v", err)
	}
	if diff := cmp.Diff([]string{"r2"}, titles(favs)); diff != "" {
		t.Fatalf("favorites mismatch after remove (-want +got):\n%s", diff)
	}

	got, _ = recipes.GetByID(ctx, r1.ID)
	if got.Favorites != 0 {
		t.Fatalf("expected favorites counter back to 0, got %d", got.Favorites)
	}

	err = users.RemoveFavorite(ctx, u.ID, r1.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound removing absent favorite, got %v", err)
	}
	if msg, _ := domain.PublicMessage(err); msg != "Recipe not found in favorites" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestUserRepository_Favorites_MissingEntities(t *testing.T) {
	db := newTestDB(t)
	users := db.Users()
	recipes := db.Recipes()
	ctx := context.Background()

	u := createUser(t, users, "fan@example.com", domain.RoleRegular)
	r := createRecipe(t, recipes, "r1", "X", "a")

	tests := []struct {
		name     string
		userID   int64
		recipeID int64
		msg      string
	}{
		{"missing user", 999, r.ID, "User not found"},
		{"missing recipe", u.ID, 999, "Recipe not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users.AddFavorite(ctx, tt.userID, tt.recipeID)
			if !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("AddFavorite: expected ErrNotFound, got %v", err)
			}
			if msg, _ := domain.PublicMessage(err); msg != tt.msg {
				t.Fatalf("AddFavorite: expected %q, got %q", tt.msg, msg)
			}

			err = users.RemoveFavorite(ctx, tt.userID, tt.recipeID)
			if !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("RemoveFavorite: expected ErrNotFound, got %v", err)
			}
		})
	}

	if _, err := users.Favorites(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Favorites: expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_Delete_DecrementsFavorites(t *testing.T) {
	db := newTestDB(t)
	users := db.Users()
	recipes := db.Recipes()
	ctx := context.Background()

	a := createUser(t, users, "a@example.com", domain.RoleRegular)
	b := createUser(t, users, "b@example.com", domain.RoleRegular)
	r := createRecipe(t, recipes, "shared", "X", "a")

	for _, u := range []*domain.User{a, b} {
		if _, err := users.AddFavorite(ctx, u.ID, r.ID); err != nil {
			t.Fatalf("AddFavorite: %v", err)
		}
	}

	if err := users.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := recipes.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("expected recipe to survive user delete: %v", err)
	}
	if got.Favorites != 1 {
		t.Fatalf("expected favorites counter 1, got %d", got.Favorites)
	}

	if err := users.Delete(ctx, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUserRepository_List(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()

	for _, email := range []string{"1@x.com", "2@x.com", "3@x.com"} {
		createUser(t, repo, email, domain.RoleRegular)
	}

	got, err := repo.List(context.Background(), domain.Page{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	emails := make([]string, len(got))
	for i, u := range got {
		emails[i] = u.Email
	}
	if diff := cmp.Diff([]string{"2@x.com", "3@x.com"}, emails); diff != "" {
		t.Fatalf("page mismatch (-want +got):\n%s", diff)
	}
}

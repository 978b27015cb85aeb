package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/msomdec/recipe-box/internal/cache"
	"github.com/msomdec/recipe-box/internal/domain"
	"github.com/msomdec/recipe-box/internal/events"
	"github.com/msomdec/recipe-box/internal/mail"
	"github.com/msomdec/recipe-box/internal/repository/sqlstore"
	"github.com/msomdec/recipe-box/internal/service"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests-0123456789"
	testResetURL  = "http://localhost:3000/reset"
)

type testEnv struct {
	db       *sqlstore.DB
	cache    cache.Cache
	recipes  *service.RecipeService
	users    *service.UserService
	auth     *service.AuthService
	recovery *service.RecoveryService
	mailer   *mail.Recorder
	limiter  *service.KeyedLimiter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlstore.Open(ctx, sqlstore.Config{Driver: sqlstore.DriverSQLite, Path: dbPath})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := cache.DefaultConfig()
	cfg.Capacity = 1024
	cfg.NumShards = 4
	c, err := cache.New(cfg)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}

	bus := events.NewBus(nil)
	t.Cleanup(func() { bus.Close() })
	if err := service.NewInvalidator(c).Register(ctx, bus); err != nil {
		t.Fatalf("Register: %v", err)
	}

	recipes := service.NewRecipeService(db.Recipes(), c, bus)
	// Use cost 4 for fast tests.
	users := service.NewUserService(db.Users(), recipes, service.NewBcryptHasher(4), c, bus)
	auth := service.NewAuthService(users, testJWTSecret, time.Hour, 15*time.Minute)

	limiter := service.NewKeyedLimiter(0, 3)
	t.Cleanup(limiter.Stop)
	mailer := &mail.Recorder{}

	return &testEnv{
		db:       db,
		cache:    c,
		recipes:  recipes,
		users:    users,
		auth:     auth,
		recovery: service.NewRecoveryService(users, auth, mailer, limiter, testResetURL),
		mailer:   mailer,
		limiter:  limiter,
	}
}

func (e *testEnv) createRecipe(t *testing.T, title, country string, ingredients ...string) *domain.Recipe {
	t.Helper()
	r, err := e.recipes.Create(context.Background(), domain.NewRecipe{
		Title:        title,
		Country:      country,
		Description:  "description of " + title,
		Ingredients:  ingredients,
		Instructions: "mix and cook",
	})
	if err != nil {
		t.Fatalf("Create recipe %s: %v", title, err)
	}
	return r
}

func (e *testEnv) createUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), domain.NewUser{
		Name:     "Test",
		LastName: "User",
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("Create user %s: %v", email, err)
	}
	return u
}

func titles(recipes []domain.Recipe) []string {
	out := make([]string, len(recipes))
	for i, r := range recipes {
		out[i] = r.Title
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func publicMessage(t *testing.T, err error) string {
	t.Helper()
	msg, ok := domain.PublicMessage(err)
	if !ok {
		t.Fatalf("expected a classified error with a message, got %v", err)
	}
	return msg
}

func cmpIgnoreTime() cmp.Option {
	return cmpopts.IgnoreFields(domain.Profile{}, "CreatedAt")
}

package handler_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/msomdec/recipe-box/internal/cache"
	"github.com/msomdec/recipe-box/internal/events"
	"github.com/msomdec/recipe-box/internal/handler"
	"github.com/msomdec/recipe-box/internal/mail"
	"github.com/msomdec/recipe-box/internal/repository/sqlstore"
	"github.com/msomdec/recipe-box/internal/service"
)

const (
	testJWTSecret = "test-secret-for-handler-tests-0123456789"
	testResetURL  = "http://localhost:3000/reset"

	adminEmail    = "admin@potato.com"
	adminPassword = "passwordBeLike#43"
	userPassword  = "Sup3r#Secret"
)

type testServer struct {
	srv      *httptest.Server
	auth     *service.AuthService
	users    *service.UserService
	recipes  *service.RecipeService
	mailer   *mail.Recorder
	db       *sqlstore.DB
	t        *testing.T
	adminJWT string
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithConfig(t, handler.RouterConfig{CORSOrigins: []string{"*"}})
}

func newTestServerWithConfig(t *testing.T, cfg handler.RouterConfig) *testServer {
	t.Helper()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlstore.Open(ctx, sqlstore.Config{Driver: sqlstore.DriverSQLite, Path: dbPath})
	if err != nil {
		t.Fatalf("Open DB: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ccfg := cache.DefaultConfig()
	ccfg.Capacity = 1024
	ccfg.NumShards = 4
	c, err := cache.New(ccfg)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}

	bus := events.NewBus(nil)
	t.Cleanup(func() { bus.Close() })
	if err := service.NewInvalidator(c).Register(ctx, bus); err != nil {
		t.Fatalf("Register invalidator: %v", err)
	}

	recipes := service.NewRecipeService(db.Recipes(), c, bus)
	// Use cost 4 for fast tests.
	users := service.NewUserService(db.Users(), recipes, service.NewBcryptHasher(4), c, bus)
	auth := service.NewAuthService(users, testJWTSecret, time.Hour, 15*time.Minute)
	limiter := service.NewKeyedLimiter(0, 5)
	t.Cleanup(limiter.Stop)
	mailer := &mail.Recorder{}
	recovery := service.NewRecoveryService(users, auth, mailer, limiter, testResetURL)

	if err := users.EnsureAdminSeed(ctx, service.AdminSeed{Name: "admin", Email: adminEmail, Password: adminPassword}); err != nil {
		t.Fatalf("EnsureAdminSeed: %v", err)
	}

	router := handler.NewRouter(cfg, handler.Services{
		Auth:     auth,
		Recipes:  recipes,
		Users:    users,
		Recovery: recovery,
		DB:       db,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ts := &testServer{
		srv:     srv,
		auth:    auth,
		users:   users,
		recipes: recipes,
		mailer:  mailer,
		db:      db,
		t:       t,
	}
	ts.adminJWT = ts.signIn(adminEmail, adminPassword)
	return ts
}

// do sends a JSON request and returns the status and raw body.
func (ts *testServer) do(method, path, token string, body any) (int, []byte) {
	ts.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			ts.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, r)
	if err != nil {
		ts.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		ts.t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

// doInto is do with the body decoded into dst and the status checked.
func (ts *testServer) doInto(method, path, token string, body any, wantStatus int, dst any) {
	ts.t.Helper()
	status, data := ts.do(method, path, token, body)
	if status != wantStatus {
		ts.t.Fatalf("%s %s: expected %d, got %d: %s", method, path, wantStatus, status, data)
	}
	if dst != nil {
		if err := json.Unmarshal(data, dst); err != nil {
			ts.t.Fatalf("%s %s: decode %s: %v", method, path, data, err)
		}
	}
}

func (ts *testServer) signUp(email string) handler.UserDTO {
	ts.t.Helper()
	var user handler.UserDTO
	ts.doInto(http.MethodPost, "/auth/signup", "", map[string]string{
		"name":     "Test",
		"lastname": "User",
		"email":    email,
		"password": userPassword,
	}, http.StatusCreated, &user)
	return user
}

func (ts *testServer) signIn(email, password string) string {
	ts.t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	ts.doInto(http.MethodPost, "/auth/signin", "", map[string]string{
		"email":    email,
		"password": password,
	}, http.StatusOK, &resp)
	if resp.Token == "" {
		ts.t.Fatal("expected a token")
	}
	return resp.Token
}

// newUser signs up a REGULAR user and returns its id and token.
func (ts *testServer) newUser(email string) (int64, string) {
	ts.t.Helper()
	user := ts.signUp(email)
	return user.ID, ts.signIn(email, userPassword)
}

func (ts *testServer) createRecipe(title, country string, ingredients ...string) handler.RecipeDTO {
	ts.t.Helper()
	var recipe handler.RecipeDTO
	ts.doInto(http.MethodPost, "/admin/newRecipe", ts.adminJWT, map[string]any{
		"title":        title,
		"country":      country,
		"description":  "description of " + title,
		"ingredients":  ingredients,
		"instructions": "mix and cook",
	}, http.StatusCreated, &recipe)
	return recipe
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error body %s: %v", body, err)
	}
	return resp.Error
}

func recipeTitles(recipes []handler.RecipeDTO) string {
	out := make([]string, len(recipes))
	for i, r := range recipes {
		out[i] = r.Title
	}
	return strings.Join(out, ",")
}

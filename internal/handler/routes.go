package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/msomdec/recipe-box/internal/metrics"
	"github.com/msomdec/recipe-box/internal/service"
)

// RouterConfig tunes the cross-cutting middleware.
type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	// AuthRateLimit requests per AuthRateWindow are allowed per client IP
	// on the auth and mailer routes. Zero disables the limit.
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// Services are the dependencies of the HTTP layer.
type Services struct {
	Auth     *service.AuthService
	Recipes  *service.RecipeService
	Users    *service.UserService
	Recovery *service.RecoveryService
	DB       Pinger
}

// NewRouter builds the HTTP routes.
func NewRouter(cfg RouterConfig, svc Services) http.Handler {
	authH := NewAuthHandler(svc.Auth)
	recipeH := NewRecipeHandler(svc.Recipes)
	userH := NewUserHandler(svc.Users)
	adminH := NewAdminHandler(svc.Users)
	mailerH := NewMailerHandler(svc.Recovery)

	requireAuth := func(next http.Handler) http.Handler { return RequireAuth(svc.Auth, next) }
	requireAdmin := func(next http.Handler) http.Handler { return RequireAdmin(svc.Auth, svc.Users, next) }

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/healthz", HandleHealthz)
	if svc.DB != nil {
		r.Get("/readyz", HandleReadyz(svc.DB))
	}
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Use(rateLimit(cfg))
		r.Post("/signup", authH.HandleSignUp)
		r.Post("/signin", authH.HandleSignIn)
	})

	r.Route("/recipes", func(r chi.Router) {
		r.Get("/", recipeH.HandleList)
		r.Get("/top", recipeH.HandleTop)
		r.Get("/{id}", recipeH.HandleGet)
		r.With(requireAuth).Post("/new", recipeH.HandleCreate)
		r.With(requireAdmin).Patch("/{id}", recipeH.HandleUpdate)
		r.With(requireAdmin).Delete("/{id}", recipeH.HandleDelete)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/profile", userH.HandleProfile)
		r.Patch("/update", userH.HandleUpdate)
		r.Delete("/delete", userH.HandleDelete)
		r.Get("/favorites", userH.HandleFavorites)
		r.Get("/recipes/findByIngredients", userH.HandleFindByIngredients)
		r.Post("/recipe/add/{id}", userH.HandleAddFavorite)
		r.Patch("/recipe/remove/{id}", userH.HandleRemoveFavorite)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/create", adminH.HandleCreateUser)
		r.Get("/users", adminH.HandleListUsers)
		r.Get("/users/{id}", adminH.HandleGetUser)
		r.Patch("/users/{id}", adminH.HandleUpdateUser)
		r.Delete("/users/{id}", adminH.HandleDeleteUser)
		r.Post("/newRecipe", recipeH.HandleCreate)
		r.Get("/recipes", recipeH.HandleList)
		r.Patch("/updateRecipe/{id}", recipeH.HandleUpdate)
		r.Delete("/deleteRecipe/{id}", recipeH.HandleDelete)
	})

	r.Route("/mailer", func(r chi.Router) {
		r.Use(rateLimit(cfg))
		r.Post("/recover-pass", mailerH.HandleRecoverPassword)
		r.Post("/newPassRequest/{token}", mailerH.HandleNewPassword)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Cannot "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})
	return r
}

func rateLimit(cfg RouterConfig) func(http.Handler) http.Handler {
	if cfg.AuthRateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		cfg.AuthRateLimit,
		cfg.AuthRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "Too many requests, try again later")
		}),
	)
}

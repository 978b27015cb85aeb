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
	msgUserNotFound     = "User not found"
	msgEmailUsed        = "Email already used"
	msgNoUsers          = "There are no users registered yet"
	msgOldPasswordReq   = "The latest password is required"
	msgOldPasswordWrong = "The latest password is not correct"
	msgBadCredentials   = "Invalid combination of email and password or this account does not exist"
)

// AdminSeed is the account created when no administrator exists.
type AdminSeed struct {
	Name     string
	Email    string
	Password string
}

// UserService manages users and their favorites relation.
type UserService struct {
	users   domain.UserRepository
	recipes *RecipeService
	hasher  domain.Hasher
	cache   cache.Cache
	events  events.Publisher
	logger  *slog.Logger
}

// NewUserService creates a new UserService. recipes serves the ingredient
// search exposed to users.
func NewUserService(users domain.UserRepository, recipes *RecipeService, hasher domain.Hasher, c cache.Cache, pub events.Publisher) *UserService {
	return &UserService{
		users:   users,
		recipes: recipes,
		hasher:  hasher,
		cache:   c,
		events:  pub,
		logger:  slog.Default().With("component", "users"),
	}
}

// Create registers a user through the public signup path. The requested
// role is ignored and the account is always REGULAR.
func (s *UserService) Create(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	in.Role = domain.RoleRegular
	return s.create(ctx, in)
}

// CreateByAdmin registers a user with the requested role, REGULAR when
// none is given.
func (s *UserService) CreateByAdmin(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	if in.Role == "" {
		in.Role = domain.RoleRegular
	}
	if !in.Role.Valid() {
		return nil, invalid("role must be ADMIN or REGULAR")
	}
	return s.create(ctx, in)
}

func (s *UserService) create(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	if blank(in.Name) || blank(in.Email) || in.Password == "" {
		return nil, invalid("name, email and password are required")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, classify(s.logger, "hash password", err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(in.Name),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         in.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.NewError(domain.ErrDuplicateEmail, msgEmailUsed)
		}
		return nil, classify(s.logger, "create user", err)
	}

	s.publish(ctx, events.TopicUserCreated, events.UserEvent{ID: user.ID})
	return redact(user), nil
}

// List returns one page of users ordered by id.
func (s *UserService) List(ctx context.Context, page domain.Page) ([]domain.User, error) {
	page = page.Normalize()
	if err := page.Validate(); err != nil {
		return nil, err
	}

	users, err := cache.GetOrFetch(ctx, s.cache, cache.UserListKey(page), func(ctx context.Context) ([]domain.User, error) {
		users, err := s.users.List(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(users) == 0 {
			return nil, domain.NewError(domain.ErrEmptyResult, msgNoUsers)
		}
		for i := range users {
			users[i].PasswordHash = ""
		}
		return users, nil
	})
	if err != nil {
		return nil, classify(s.logger, "list users", err)
	}
	return users, nil
}

// GetByID returns the user with its favorite recipes.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := cache.GetOrFetch(ctx, s.cache, cache.UserKey(id), func(ctx context.Context) (*domain.User, error) {
		user, err := s.users.GetWithFavorites(ctx, id)
		if err != nil {
			return nil, notFound(err, msgUserNotFound)
		}
		if user.Favorites == nil {
			user.Favorites = []domain.Recipe{}
		}
		return redact(user), nil
	})
	if err != nil {
		return nil, classify(s.logger, "get user", err)
	}
	return user, nil
}

// Update applies a self-service patch. Changing the password requires the
// current one.
func (s *UserService) Update(ctx context.Context, id int64, patch domain.UserPatch) (*domain.User, error) {
	if err := validateIdentity(patch.Name, patch.Email); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, classify(s.logger, "get user", notFound(err, msgUserNotFound))
	}

	if patch.NewPassword != nil {
		if *patch.NewPassword == "" {
			return nil, invalid("newPassword must not be empty")
		}
		if patch.OldPassword == nil || *patch.OldPassword == "" {
			return nil, invalid(msgOldPasswordReq)
		}
		if !s.hasher.Verify(*patch.OldPassword, user.PasswordHash) {
			return nil, domain.NewError(domain.ErrPasswordMismatch, msgOldPasswordWrong)
		}
		hash, err := s.hasher.Hash(*patch.NewPassword)
		if err != nil {
			return nil, classify(s.logger, "hash password", err)
		}
		user.PasswordHash = hash
	}

	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		patch.Email = &email
	}
	patch.Apply(user)
	return s.save(ctx, user)
}

// UpdateByAdmin applies an administrative patch. The password is replaced
// without checking the current one and the role may change.
func (s *UserService) UpdateByAdmin(ctx context.Context, id int64, patch domain.AdminUserPatch) (*domain.User, error) {
	if err := validateIdentity(patch.Name, patch.Email); err != nil {
		return nil, err
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return nil, invalid("role must be ADMIN or REGULAR")
	}
	if patch.Password != nil && *patch.Password == "" {
		return nil, invalid("password must not be empty")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, classify(s.logger, "get user", notFound(err, msgUserNotFound))
	}

	if patch.Password != nil {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, classify(s.logger, "hash password", err)
		}
		user.PasswordHash = hash
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		patch.Email = &email
	}
	patch.Apply(user)
	return s.save(ctx, user)
}

// SetPassword replaces the password of a user, used by password recovery.
func (s *UserService) SetPassword(ctx context.Context, id int64, password string) error {
	if password == "" {
		return invalid("password must not be empty")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return classify(s.logger, "get user", notFound(err, msgUserNotFound))
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return classify(s.logger, "hash password", err)
	}
	user.PasswordHash = hash
	_, err = s.save(ctx, user)
	return err
}

func (s *UserService) save(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.NewError(domain.ErrDuplicateEmail, msgEmailUsed)
		}
		return nil, classify(s.logger, "update user", notFound(err, msgUserNotFound))
	}
	s.publish(ctx, events.TopicUserMutated, events.UserEvent{ID: user.ID})
	return redact(user), nil
}

// DeleteSelf removes the calling user's account.
func (s *UserService) DeleteSelf(ctx context.Context, id int64) error {
	return s.delete(ctx, id)
}

// DeleteByAdmin removes any account. Authorization is the caller's concern.
func (s *UserService) DeleteByAdmin(ctx context.Context, id int64) error {
	return s.delete(ctx, id)
}

func (s *UserService) delete(ctx context.Context, id int64) error {
	// The favorites counters of these recipes drop with the user.
	favorites, err := s.users.Favorites(ctx, id)
	if err != nil {
		return classify(s.logger, "get favorites", notFound(err, msgUserNotFound))
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return classify(s.logger, "delete user", notFound(err, msgUserNotFound))
	}

	s.publish(ctx, events.TopicUserMutated, events.UserEvent{ID: id})
	for _, r := range favorites {
		s.publish(ctx, events.TopicRecipeMutated, events.RecipeEvent{ID: r.ID})
	}
	return nil
}

// GetProfile returns the public projection of a user. Favorites have their
// own endpoint.
func (s *UserService) GetProfile(ctx context.Context, id int64) (*domain.Profile, error) {
	profile, err := cache.GetOrFetch(ctx, s.cache, cache.UserProfileKey(id), func(ctx context.Context) (*domain.Profile, error) {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, notFound(err, msgUserNotFound)
		}
		return &domain.Profile{
			ID:        user.ID,
			Name:      user.Name,
			LastName:  user.LastName,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
		}, nil
	})
	if err != nil {
		return nil, classify(s.logger, "get profile", err)
	}
	return profile, nil
}

// GetFavorites returns the user's favorite recipes in the order they were added.
func (s *UserService) GetFavorites(ctx context.Context, id int64) ([]domain.Recipe, error) {
	favorites, err := cache.GetOrFetch(ctx, s.cache, cache.UserFavoritesKey(id), func(ctx context.Context) ([]domain.Recipe, error) {
		favorites, err := s.users.Favorites(ctx, id)
		if err != nil {
			return nil, notFound(err, msgUserNotFound)
		}
		if favorites == nil {
			favorites = []domain.Recipe{}
		}
		return favorites, nil
	})
	if err != nil {
		return nil, classify(s.logger, "get favorites", err)
	}
	return favorites, nil
}

// AddToFavorites marks the recipe as a favorite of the user and returns the
// user with its favorites. Adding an existing favorite changes nothing.
func (s *UserService) AddToFavorites(ctx context.Context, userID, recipeID int64) (*domain.User, error) {
	added, err := s.users.AddFavorite(ctx, userID, recipeID)
	if err != nil {
		return nil, classify(s.logger, "add favorite", err)
	}
	if added {
		s.favoritesChanged(ctx, userID, recipeID)
	}
	return s.withFavorites(ctx, userID)
}

// RemoveFromFavorites drops the recipe from the user's favorites and returns
// the user with its remaining favorites.
func (s *UserService) RemoveFromFavorites(ctx context.Context, userID, recipeID int64) (*domain.User, error) {
	if err := s.users.RemoveFavorite(ctx, userID, recipeID); err != nil {
		return nil, classify(s.logger, "remove favorite", err)
	}
	s.favoritesChanged(ctx, userID, recipeID)
	return s.withFavorites(ctx, userID)
}

// favoritesChanged announces an edge change. The recipe event carries no
// ingredients because they did not change, only the counter did.
func (s *UserService) favoritesChanged(ctx context.Context, userID, recipeID int64) {
	s.publish(ctx, events.TopicUserMutated, events.UserEvent{ID: userID})
	s.publish(ctx, events.TopicRecipeMutated, events.RecipeEvent{ID: recipeID})
}

func (s *UserService) withFavorites(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetWithFavorites(ctx, userID)
	if err != nil {
		return nil, classify(s.logger, "get user", notFound(err, msgUserNotFound))
	}
	if user.Favorites == nil {
		user.Favorites = []domain.Recipe{}
	}
	return redact(user), nil
}

// FindByIngredients delegates to the recipe service.
func (s *UserService) FindByIngredients(ctx context.Context, ingredients []string, order domain.IngredientOrder) ([]domain.Recipe, error) {
	return s.recipes.FindByIngredients(ctx, ingredients, order)
}

// Authenticate checks an email and password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.ErrUnauthorized, msgBadCredentials)
		}
		return nil, classify(s.logger, "get user by email", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.NewError(domain.ErrUnauthorized, msgBadCredentials)
	}
	return redact(user), nil
}

// GetByEmail looks a user up by email without touching the cache.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, classify(s.logger, "get user by email", notFound(err, msgUserNotFound))
	}
	return redact(user), nil
}

// EnsureAdminSeed creates the seed administrator unless an administrator
// already exists. The credentials are logged once, on creation.
func (s *UserService) EnsureAdminSeed(ctx context.Context, seed AdminSeed) error {
	exists, err := s.users.ExistsWithRole(ctx, domain.RoleAdmin)
	if err != nil {
		return classify(s.logger, "check admin", err)
	}
	if exists {
		return nil
	}

	user, err := s.create(ctx, domain.NewUser{
		Name:     seed.Name,
		Email:    seed.Email,
		Password: seed.Password,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return err
	}
	s.logger.Warn("seed administrator created, change its password", "id", user.ID, "email", user.Email, "password", seed.Password)
	return nil
}

func (s *UserService) publish(ctx context.Context, topic string, payload any) {
	if err := s.events.Publish(ctx, topic, payload); err != nil {
		s.logger.Error("publish event failed", "topic", topic, "error", err)
	}
}

func validateIdentity(name, email *string) error {
	if name != nil && blank(*name) {
		return invalid("name must not be empty")
	}
	if email != nil && blank(*email) {
		return invalid("email must not be empty")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// redact returns a copy of u without the password digest.
func redact(u *domain.User) *domain.User {
	c := *u
	c.PasswordHash = ""
	return &c
}

package domain

import (
	"context"
	"time"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleRegular Role = "REGULAR"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleRegular
}

// User represents a registered user of the application.
type User struct {
	ID           int64
	Name         string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role
	Confirmed    bool
	Favorites    []Recipe
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the read-only projection of a user returned by the profile endpoint.
type Profile struct {
	ID        int64
	Name      string
	LastName  string
	Email     string
	CreatedAt time.Time
}

// NewUser holds the input for creating a user.
type NewUser struct {
	Name     string
	LastName string
	Email    string
	Password string
	Role     Role
}

// UserPatch is a partial update of a user. Nil fields are left unchanged.
// NewPassword requires OldPassword on the self-service path.
type UserPatch struct {
	Name        *string
	LastName    *string
	Email       *string
	NewPassword *string
	OldPassword *string
}

// AdminUserPatch is a partial update applied by an administrator. It skips
// the old-password check and may change the role.
type AdminUserPatch struct {
	Name     *string
	LastName *string
	Email    *string
	Password *string
	Role     *Role
}

// Apply copies the present fields of p onto u. Password fields are handled
// by the caller because they need hashing.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
}

// Apply copies the present fields of p onto u, except the password.
func (p AdminUserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
}

// UserRepository defines persistence operations for users and their
// favorites relation.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetWithFavorites(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context, page Page) ([]User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int64) error
	ExistsWithRole(ctx context.Context, role Role) (bool, error)

	// AddFavorite inserts the (user, recipe) edge and bumps the recipe's
	// favorites counter in one transaction. It reports false when the edge
	// already existed, in which case nothing changes.
	AddFavorite(ctx context.Context, userID, recipeID int64) (bool, error)
	// RemoveFavorite deletes the edge and decrements the counter in one
	// transaction. It returns ErrNotFound when the edge does not exist.
	RemoveFavorite(ctx context.Context, userID, recipeID int64) error
	Favorites(ctx context.Context, userID int64) ([]Recipe, error)
}

// Hasher is a one-way password hash.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

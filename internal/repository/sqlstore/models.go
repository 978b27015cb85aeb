package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/msomdec/recipe-box/internal/domain"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Name         string    `bun:"name,notnull"`
	LastName     string    `bun:"last_name,nullzero"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Role         string    `bun:"role,notnull"`
	Confirmed    bool      `bun:"confirmed,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

type recipeModel struct {
	bun.BaseModel `bun:"table:recipes,alias:r"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Title        string    `bun:"title,notnull,unique"`
	Country      string    `bun:"country,notnull"`
	Description  string    `bun:"description,notnull"`
	Ingredients  []string  `bun:"ingredients,notnull"`
	Instructions string    `bun:"instructions,notnull"`
	Clicks       int64     `bun:"clicks,notnull,default:0"`
	Favorites    int64     `bun:"favorites,notnull,default:0"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// favoriteModel is one edge of the user/recipe favorites relation. The
// composite primary key makes an edge unique.
type favoriteModel struct {
	bun.BaseModel `bun:"table:user_favorites,alias:uf"`

	UserID    int64     `bun:"user_id,pk"`
	RecipeID  int64     `bun:"recipe_id,pk"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func toUserModel(u *domain.User) *userModel {
	return &userModel{
		ID:           u.ID,
		Name:         u.Name,
		LastName:     u.LastName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Confirmed:    u.Confirmed,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (m *userModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Name:         m.Name,
		LastName:     m.LastName,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		Confirmed:    m.Confirmed,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toRecipeModel(r *domain.Recipe) *recipeModel {
	ingredients := r.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	return &recipeModel{
		ID:           r.ID,
		Title:        r.Title,
		Country:      r.Country,
		Description:  r.Description,
		Ingredients:  ingredients,
		Instructions: r.Instructions,
		Clicks:       r.Clicks,
		Favorites:    r.Favorites,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (m *recipeModel) toDomain() *domain.Recipe {
	return &domain.Recipe{
		ID:           m.ID,
		Title:        m.Title,
		Country:      m.Country,
		Description:  m.Description,
		Ingredients:  m.Ingredients,
		Instructions: m.Instructions,
		Clicks:       m.Clicks,
		Favorites:    m.Favorites,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func recipesToDomain(models []recipeModel) []domain.Recipe {
	out := make([]domain.Recipe, len(models))
	for i := range models {
		out[i] = *models[i].toDomain()
	}
	return out
}

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/msomdec/recipe-box/internal/domain"
)

var (
	errUserNotFound     = domain.NewError(domain.ErrNotFound, "User not found")
	errRecipeNotFound   = domain.NewError(domain.ErrNotFound, "Recipe not found")
	errFavoriteNotFound = domain.NewError(domain.ErrNotFound, "Recipe not found in favorites")
)

// UserRepository implements domain.UserRepository.
type UserRepository struct {
	db *bun.DB
}

var _ domain.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a UserRepository on db.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.bun}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	m := toUserModel(user)
	if _, err := r.db.NewInsert().Model(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.ID = m.ID
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getBy(ctx, "u.id = ?", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "u.email = ?", email)
}

func (r *UserRepository) getBy(ctx context.Context, where string, arg any) (*domain.User, error) {
	m := new(userModel)
	if err := r.db.NewSelect().Model(m).Where(where, arg).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return m.toDomain(), nil
}

func (r *UserRepository) GetWithFavorites(ctx context.Context, id int64) (*domain.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	favorites, err := r.favorites(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	user.Favorites = favorites
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, page domain.Page) ([]domain.User, error) {
	var rows []userModel
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("u.id ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]domain.User, len(rows))
	for i := range rows {
		users[i] = *rows[i].toDomain()
	}
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	m := toUserModel(user)

	res, err := r.db.NewUpdate().
		Model(m).
		Column("name", "last_name", "email", "password_hash", "role", "confirmed", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}
	return checkAffected(res, domain.ErrNotFound)
}

// Delete removes the user and its favorites edges, decrementing the
// favorites counter of every recipe the user had favorited.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*recipeModel)(nil)).
			Set("favorites = favorites - 1").
			Where("id IN (SELECT recipe_id FROM user_favorites WHERE user_id = ?)", id).
			Where("favorites > 0").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("decrement favorites: %w", err)
		}

		if _, err := tx.NewDelete().Model((*favoriteModel)(nil)).Where("user_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("delete favorites edges: %w", err)
		}

		res, err := tx.NewDelete().Model((*userModel)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return checkAffected(res, domain.ErrNotFound)
	})
}

func (r *UserRepository) ExistsWithRole(ctx context.Context, role domain.Role) (bool, error) {
	exists, err := r.db.NewSelect().Model((*userModel)(nil)).Where("role = ?", string(role)).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("query users by role: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) AddFavorite(ctx context.Context, userID, recipeID int64) (bool, error) {
	var added bool
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := mustExist(ctx, tx, (*userModel)(nil), userID, errUserNotFound); err != nil {
			return err
		}
		if err := mustExist(ctx, tx, (*recipeModel)(nil), recipeID, errRecipeNotFound); err != nil {
			return err
		}

		edge := &favoriteModel{UserID: userID, RecipeID: recipeID, CreatedAt: time.Now().UTC()}
		res, err := tx.NewInsert().Model(edge).On("CONFLICT DO NOTHING").Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert favorite: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return nil
		}

		_, err = tx.NewUpdate().
			Model((*recipeModel)(nil)).
			Set("favorites = favorites + 1").
			Where("id = ?", recipeID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("increment favorites: %w", err)
		}
		added = true
		return nil
	})
	return added, err
}

func (r *UserRepository) RemoveFavorite(ctx context.Context, userID, recipeID int64) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := mustExist(ctx, tx, (*userModel)(nil), userID, errUserNotFound); err != nil {
			return err
		}
		if err := mustExist(ctx, tx, (*recipeModel)(nil), recipeID, errRecipeNotFound); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*favoriteModel)(nil)).
			Where("user_id = ?", userID).
			Where("recipe_id = ?", recipeID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete favorite: %w", err)
		}
		if err := checkAffected(res, errFavoriteNotFound); err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*recipeModel)(nil)).
			Set("favorites = favorites - 1").
			Where("id = ?", recipeID).
			Where("favorites > 0").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("decrement favorites: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) Favorites(ctx context.Context, userID int64) ([]domain.Recipe, error) {
	var out []domain.Recipe
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := mustExist(ctx, tx, (*userModel)(nil), userID, errUserNotFound); err != nil {
			return err
		}
		var err error
		out, err = r.favorites(ctx, tx, userID)
		return err
	})
	return out, err
}

func (r *UserRepository) favorites(ctx context.Context, db bun.IDB, userID int64) ([]domain.Recipe, error) {
	var rows []recipeModel
	err := db.NewSelect().
		Model(&rows).
		Join("JOIN user_favorites AS uf ON uf.recipe_id = r.id").
		Where("uf.user_id = ?", userID).
		OrderExpr("uf.created_at ASC, r.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	return recipesToDomain(rows), nil
}

func mustExist(ctx context.Context, tx bun.Tx, model any, id int64, notFound error) error {
	exists, err := tx.NewSelect().Model(model).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return fmt.Errorf("check existence: %w", err)
	}
	if !exists {
		return notFound
	}
	return nil
}

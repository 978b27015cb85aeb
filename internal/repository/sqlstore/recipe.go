package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/uptrace/bun"

	"github.com/msomdec/recipe-box/internal/domain"
)

// RecipeRepository implements domain.RecipeRepository.
type RecipeRepository struct {
	db     *bun.DB
	driver string
}

var _ domain.RecipeRepository = (*RecipeRepository)(nil)

// NewRecipeRepository creates a RecipeRepository on db.
func NewRecipeRepository(db *DB) *RecipeRepository {
	return &RecipeRepository{db: db.bun, driver: db.driver}
}

func (r *RecipeRepository) Create(ctx context.Context, recipe *domain.Recipe) error {
	now := time.Now().UTC()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	m := toRecipeModel(recipe)
	if _, err := r.db.NewInsert().Model(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTitle
		}
		return fmt.Errorf("insert recipe: %w", err)
	}

	recipe.ID = m.ID
	return nil
}

func (r *RecipeRepository) GetByID(ctx context.Context, id int64) (*domain.Recipe, error) {
	m := new(recipeModel)
	err := r.db.NewSelect().Model(m).Where("r.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query recipe by id: %w", err)
	}
	return m.toDomain(), nil
}

func (r *RecipeRepository) List(ctx context.Context, page domain.Page) ([]domain.Recipe, error) {
	var rows []recipeModel
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("r.id ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipesToDomain(rows), nil
}

func (r *RecipeRepository) FindByIngredients(ctx context.Context, ingredients []string, order domain.IngredientOrder) ([]domain.Recipe, error) {
	want, err := json.Marshal(ingredients)
	if err != nil {
		return nil, fmt.Errorf("encode ingredients: %w", err)
	}

	var rows []recipeModel
	q := r.db.NewSelect().Model(&rows)
	if r.driver == DriverPostgres {
		q = q.Where("r.ingredients @> ?::jsonb", string(want))
	} else {
		q = q.Where(`NOT EXISTS (
			SELECT 1 FROM json_each(?) AS want
			WHERE want.value NOT IN (SELECT have.value FROM json_each(r.ingredients) AS have)
		)`, string(want))
	}
	if order == domain.OrderCountry {
		q = q.OrderExpr("r.country ASC")
	}
	q = q.OrderExpr("r.id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("find recipes by ingredients: %w", err)
	}
	return recipesToDomain(rows), nil
}

func (r *RecipeRepository) Top(ctx context.Context, minFavorites, minClicks int64, limit int) ([]domain.Recipe, error) {
	var rows []recipeModel
	err := r.db.NewSelect().
		Model(&rows).
		Where("r.favorites > ?", minFavorites).
		Where("r.clicks > ?", minClicks).
		OrderExpr("r.id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("query top recipes: %w", err)
	}
	return recipesToDomain(rows), nil
}

// Update writes the editable columns. The counters are owned by
// IncrementClicks and the favorites relation and are never overwritten here.
func (r *RecipeRepository) Update(ctx context.Context, recipe *domain.Recipe) error {
	recipe.UpdatedAt = time.Now().UTC()
	m := toRecipeModel(recipe)

	res, err := r.db.NewUpdate().
		Model(m).
		Column("title", "country", "description", "ingredients", "instructions", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTitle
		}
		return fmt.Errorf("update recipe: %w", err)
	}
	return checkAffected(res, domain.ErrNotFound)
}

func (r *RecipeRepository) Delete(ctx context.Context, id int64) (*domain.Recipe, error) {
	m := new(recipeModel)
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(m).Where("r.id = ?", id).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("query recipe: %w", err)
		}

		if _, err := tx.NewDelete().Model((*favoriteModel)(nil)).Where("recipe_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("delete favorites edges: %w", err)
		}

		res, err := tx.NewDelete().Model((*recipeModel)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete recipe: %w", err)
		}
		return checkAffected(res, domain.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

func (r *RecipeRepository) IncrementClicks(ctx context.Context, id int64) (int64, error) {
	var clicks int64
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*recipeModel)(nil)).
			Set("clicks = clicks + 1").
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("increment clicks: %w", err)
		}
		if err := checkAffected(res, domain.ErrNotFound); err != nil {
			return err
		}
		return tx.NewSelect().
			Model((*recipeModel)(nil)).
			Column("clicks").
			Where("id = ?", id).
			Scan(ctx, &clicks)
	})
	if err != nil {
		return 0, err
	}
	return clicks, nil
}

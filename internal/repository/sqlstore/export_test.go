package sqlstore

import (
	"context"
	"testing"
)

// SetCounters overwrites the popularity counters of the recipe with the
// given title, bypassing the repositories.
func SetCounters(t *testing.T, db *DB, title string, favorites, clicks int64) {
	t.Helper()
	_, err := db.bun.NewUpdate().
		Model((*recipeModel)(nil)).
		Set("favorites = ?", favorites).
		Set("clicks = ?", clicks).
		Where("title = ?", title).
		Exec(context.Background())
	if err != nil {
		t.Fatalf("set counters on %s: %v", title, err)
	}
}

package backup_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/msomdec/recipe-box/internal/backup"
	"github.com/msomdec/recipe-box/internal/domain"
	"github.com/msomdec/recipe-box/internal/repository/sqlstore"
)

type fakeUploader struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.paths = append(f.paths, path)
	return nil
}

func newTestDB(t *testing.T) *sqlstore.DB {
	t.Helper()
	ctx := context.Background()
	db, err := sqlstore.Open(ctx, sqlstore.Config{Driver: sqlstore.DriverSQLite, Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	r := &domain.Recipe{Title: "t", Country: "c", Description: "d", Ingredients: []string{"a"}, Instructions: "i"}
	if err := db.Recipes().Create(ctx, r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return db
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, time.January, 31, 23, 59, 12, 0, time.UTC)
	if got := backup.FileName("recipes", at); got != "recipes-2024-01-31-23-59.backup" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestManager_RunAndPrune(t *testing.T) {
	db := newTestDB(t)
	dir := filepath.Join(t.TempDir(), "backups")
	up := &fakeUploader{}

	m, err := backup.NewManager(backup.Config{Driver: backup.DriverSQLite, Dir: dir, Name: "recipes", Retain: 2}, db, up)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	base := time.Date(2024, time.March, 1, 23, 59, 0, 0, time.UTC)
	var pruned []string
	for day := 0; day < 3; day++ {
		at := base.AddDate(0, 0, day)
		m.SetClock(func() time.Time { return at })

		res, err := m.Run(context.Background())
		if err != nil {
			t.Fatalf("Run day %d: %v", day, err)
		}
		if res.Size == 0 || !res.Uploaded {
			t.Fatalf("unexpected result %+v", res)
		}
		pruned = append(pruned, res.Pruned...)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"recipes-2024-03-02-23-59.backup", "recipes-2024-03-03-23-59.backup"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("kept files mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "recipes-2024-03-01-23-59.backup")}, pruned); diff != "" {
		t.Fatalf("pruned mismatch (-want +got):\n%s", diff)
	}
	if len(up.paths) != 3 {
		t.Fatalf("expected 3 uploads, got %d", len(up.paths))
	}
}

func TestManager_BackupIsReadable(t *testing.T) {
	db := newTestDB(t)
	dir := t.TempDir()

	m, err := backup.NewManager(backup.Config{Driver: backup.DriverSQLite, Dir: dir}, db, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	res, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	restored, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: sqlstore.DriverSQLite, Path: res.Path})
	if err != nil {
		t.Fatalf("Open backup: %v", err)
	}
	defer restored.Close()
	got, err := restored.Recipes().List(context.Background(), domain.Page{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Title != "t" {
		t.Fatalf("unexpected recipes in backup: %+v", got)
	}
}

func TestManager_SameMinuteReplacesFile(t *testing.T) {
	db := newTestDB(t)
	m, err := backup.NewManager(backup.Config{Driver: backup.DriverSQLite, Dir: t.TempDir()}, db, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	at := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return at })

	for i := 0; i < 2; i++ {
		if _, err := m.Run(context.Background()); err != nil {
			t.Fatalf("Run #%d: %v", i+1, err)
		}
	}
}

func TestManager_UploadFailureKeepsFile(t *testing.T) {
	db := newTestDB(t)
	up := &fakeUploader{err: errors.New("bucket unreachable")}
	m, err := backup.NewManager(backup.Config{Driver: backup.DriverSQLite, Dir: t.TempDir()}, db, up)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	res, err := m.Run(context.Background())
	if err == nil {
		t.Fatal("expected upload error")
	}
	if res.Uploaded {
		t.Fatal("expected Uploaded=false")
	}
	if _, statErr := os.Stat(res.Path); statErr != nil {
		t.Fatalf("expected local backup kept: %v", statErr)
	}
}

func TestNewManager_Errors(t *testing.T) {
	tests := map[string]backup.Config{
		"no dir":         {Driver: backup.DriverSQLite},
		"unknown driver": {Driver: "mysql", Dir: "x"},
		"sqlite no db":   {Driver: backup.DriverSQLite, Dir: "x"},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := backup.NewManager(cfg, nil, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// Package backup takes periodic copies of the database.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/msomdec/recipe-box/internal/metrics"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	extension = ".backup"
)

// Config configures a Manager.
type Config struct {
	// Driver selects the dump method: sqlite or postgres.
	Driver string
	// Dir receives the backup files.
	Dir string
	// Name prefixes each file name.
	Name string
	// Retain is the number of files kept after pruning. Zero keeps all.
	Retain int
	// PgDumpPath is the pg_dump binary. Default: pg_dump on PATH.
	PgDumpPath string
	// DSN is passed to pg_dump.
	DSN string
}

// Snapshotter writes a consistent copy of an SQLite database to dest.
type Snapshotter interface {
	VacuumInto(ctx context.Context, dest string) error
}

// Uploader copies a finished backup off the host.
type Uploader interface {
	Upload(ctx context.Context, path string) error
}

// Result describes one backup run.
type Result struct {
	Path     string
	Size     int64
	Duration time.Duration
	Uploaded bool
	Pruned   []string
}

// Manager produces backup files and prunes old ones.
type Manager struct {
	cfg      Config
	db       Snapshotter
	uploader Uploader
	now      func() time.Time
	logger   *slog.Logger
}

// NewManager creates a Manager. db is only used for SQLite; uploader may be nil.
func NewManager(cfg Config, db Snapshotter, uploader Uploader) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, errors.New("backup: dir is required")
	}
	if cfg.Name == "" {
		cfg.Name = "recipe-box"
	}
	switch cfg.Driver {
	case DriverSQLite:
		if db == nil {
			return nil, errors.New("backup: sqlite backups need a database handle")
		}
	case DriverPostgres:
		if cfg.PgDumpPath == "" {
			cfg.PgDumpPath = "pg_dump"
		}
	default:
		return nil, fmt.Errorf("backup: unsupported driver %q", cfg.Driver)
	}
	return &Manager{
		cfg:      cfg,
		db:       db,
		uploader: uploader,
		now:      time.Now,
		logger:   slog.Default().With("component", "backup"),
	}, nil
}

// FileName returns the backup file name for t, e.g.
// recipe-box-2024-01-31-23-59.backup.
func FileName(name string, t time.Time) string {
	return fmt.Sprintf("%s-%s%s", name, t.Format("2006-01-02-15-04"), extension)
}

// Run writes one backup, uploads it when an uploader is configured, and
// prunes the directory. A failed upload fails the run but keeps the file.
func (m *Manager) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res, err := m.run(ctx)
	res.Duration = time.Since(start)

	metrics.BackupDuration.Observe(res.Duration.Seconds())
	if err != nil {
		metrics.Backups.WithLabelValues("error").Inc()
		m.logger.Error("backup failed", "error", err)
		return res, err
	}
	metrics.Backups.WithLabelValues("ok").Inc()
	m.logger.Info("backup complete", "path", res.Path, "bytes", res.Size, "uploaded", res.Uploaded, "pruned", len(res.Pruned), "duration", res.Duration)
	return res, nil
}

func (m *Manager) run(ctx context.Context) (Result, error) {
	if err := os.MkdirAll(m.cfg.Dir, 0o750); err != nil {
		return Result{}, fmt.Errorf("create backup dir: %w", err)
	}

	path := filepath.Join(m.cfg.Dir, FileName(m.cfg.Name, m.now()))
	// VACUUM INTO refuses to overwrite; two runs in one minute replace the file.
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Result{}, fmt.Errorf("remove previous backup: %w", err)
	}

	var err error
	switch m.cfg.Driver {
	case DriverSQLite:
		err = m.db.VacuumInto(ctx, path)
	case DriverPostgres:
		err = m.pgDump(ctx, path)
	}
	if err != nil {
		return Result{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("stat backup: %w", err)
	}
	res := Result{Path: path, Size: info.Size()}

	if m.uploader != nil {
		if err := m.uploader.Upload(ctx, path); err != nil {
			return res, fmt.Errorf("upload backup: %w", err)
		}
		res.Uploaded = true
	}

	res.Pruned, err = m.prune()
	if err != nil {
		return res, err
	}
	return res, nil
}

func (m *Manager) pgDump(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, m.cfg.PgDumpPath, "--format=custom", "--file="+path, "--dbname="+m.cfg.DSN)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pg_dump: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// prune deletes all but the newest Retain backups carrying this manager's
// name. File names sort chronologically.
func (m *Manager) prune() ([]string, error) {
	if m.cfg.Retain <= 0 {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(m.cfg.Dir, m.cfg.Name+"-*"+extension))
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	if len(matches) <= m.cfg.Retain {
		return nil, nil
	}

	slices.Sort(matches)
	stale := matches[:len(matches)-m.cfg.Retain]
	for _, p := range stale {
		if err := os.Remove(p); err != nil {
			return nil, fmt.Errorf("prune %s: %w", filepath.Base(p), err)
		}
	}
	return stale, nil
}

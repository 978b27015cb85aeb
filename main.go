package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/msomdec/recipe-box/internal/backup"
	"github.com/msomdec/recipe-box/internal/cache"
	"github.com/msomdec/recipe-box/internal/config"
	"github.com/msomdec/recipe-box/internal/events"
	"github.com/msomdec/recipe-box/internal/handler"
	"github.com/msomdec/recipe-box/internal/logging"
	"github.com/msomdec/recipe-box/internal/mail"
	"github.com/msomdec/recipe-box/internal/repository/sqlstore"
	"github.com/msomdec/recipe-box/internal/service"
	"github.com/msomdec/recipe-box/internal/supervisor"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Recovery requests allowed per email: a burst of recoveryBurst, then one
// every recoveryEvery.
const (
	recoveryBurst = 3
	recoveryEvery = 5 * time.Minute
)

func main() {
	flags := flag.NewFlagSet("recipe-box", flag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to a YAML config file (default $"+config.PathEnvVar+")")
	backupNow := flags.Bool("backup-now", false, "run one database backup and exit")
	showVersion := flags.BoolP("version", "v", false, "print the version and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *backupNow); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, backupNow bool) error {
	db, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	slog.Info("database schema ready", "driver", db.Driver())

	backups, err := newBackupManager(ctx, cfg, db)
	if err != nil {
		return err
	}
	if backupNow {
		if backups == nil {
			return errors.New("backups are disabled, set backup.enabled")
		}
		_, err := backups.Run(ctx)
		return err
	}

	c, err := cache.New(cache.Config{
		Backend:            cfg.Cache.Backend,
		Capacity:           cfg.Cache.Capacity,
		NumShards:          cfg.Cache.NumShards,
		TTL:                cfg.Cache.TTL,
		EvictionPercentage: cfg.Cache.EvictionPercentage,
	})
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}

	bus := events.NewBus(slog.Default())
	defer bus.Close()
	if err := service.NewInvalidator(c).Register(ctx, bus); err != nil {
		return fmt.Errorf("register cache invalidator: %w", err)
	}

	recipeService := service.NewRecipeService(db.Recipes(), c, bus)
	userService := service.NewUserService(db.Users(), recipeService, service.NewBcryptHasher(cfg.Auth.BcryptCost), c, bus)
	authService := service.NewAuthService(userService, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.ResetTokenTTL)

	mailer, err := newMailer(cfg.Mail)
	if err != nil {
		return err
	}
	limiter := service.NewKeyedLimiter(1/recoveryEvery.Seconds(), recoveryBurst)
	defer limiter.Stop()
	recoveryService := service.NewRecoveryService(userService, authService, mailer, limiter, cfg.Mail.ResetURL)

	if err := userService.EnsureAdminSeed(ctx, service.AdminSeed{
		Name:     cfg.Admin.Name,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}); err != nil {
		return fmt.Errorf("seed administrator: %w", err)
	}

	router := handler.NewRouter(handler.RouterConfig{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		AuthRateLimit:  cfg.Server.AuthRateLimit,
		AuthRateWindow: cfg.Server.AuthRateWindow,
	}, handler.Services{
		Auth:     authService,
		Recipes:  recipeService,
		Users:    userService,
		Recovery: recoveryService,
		DB:       db,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	tree := supervisor.New(slog.Default(), supervisor.Config{ShutdownTimeout: cfg.Server.ShutdownTimeout * 2})
	tree.AddAPI(supervisor.NewHTTPService(srv, cfg.Server.ShutdownTimeout))
	if backups != nil {
		schedule, err := backup.ParseSchedule(cfg.Backup.Schedule)
		if err != nil {
			return fmt.Errorf("parse backup schedule: %w", err)
		}
		tree.AddJob(backup.NewScheduler(backups, schedule))
		slog.Info("backups scheduled", "schedule", cfg.Backup.Schedule, "dir", cfg.Backup.Dir)
	}

	slog.Info("server starting", "addr", srv.Addr, "version", version)
	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		slog.Warn("services did not stop in time", "count", len(report))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func newMailer(cfg config.MailConfig) (mail.Sender, error) {
	if !cfg.Enabled {
		slog.Warn("smtp disabled, recovery mails are only logged")
		return mail.LogSender{}, nil
	}
	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:             cfg.Host,
		Port:             cfg.Port,
		Username:         cfg.Username,
		Password:         cfg.Password,
		From:             cfg.From,
		UseTLS:           cfg.UseTLS,
		FailureThreshold: cfg.FailureThreshold,
		BreakerTimeout:   cfg.BreakerTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create smtp sender: %w", err)
	}
	return sender, nil
}

// newBackupManager returns nil when backups are disabled.
func newBackupManager(ctx context.Context, cfg *config.Config, db *sqlstore.DB) (*backup.Manager, error) {
	if !cfg.Backup.Enabled {
		return nil, nil
	}

	var uploader backup.Uploader
	if s3 := cfg.Backup.S3; s3.Enabled {
		u, err := backup.NewS3Uploader(ctx, backup.S3Config{
			Bucket:    s3.Bucket,
			Region:    s3.Region,
			Endpoint:  s3.Endpoint,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Prefix:    s3.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("create s3 uploader: %w", err)
		}
		uploader = u
	}

	m, err := backup.NewManager(backup.Config{
		Driver:     cfg.Database.Driver,
		Dir:        cfg.Backup.Dir,
		Name:       "recipe-box",
		Retain:     cfg.Backup.Retain,
		PgDumpPath: cfg.Backup.PgDumpPath,
		DSN:        cfg.Database.DSN,
	}, db, uploader)
	if err != nil {
		return nil, fmt.Errorf("create backup manager: %w", err)
	}
	return m, nil
}

package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/bryanwahyu/lungscan/internal/application"
	appai "github.com/bryanwahyu/lungscan/internal/application/ai"
	appscans "github.com/bryanwahyu/lungscan/internal/application/scans"
	"github.com/bryanwahyu/lungscan/internal/config"
	domai "github.com/bryanwahyu/lungscan/internal/domain/ai"
	"github.com/bryanwahyu/lungscan/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/lungscan/internal/domain/scans"
	aiopenai "github.com/bryanwahyu/lungscan/internal/infra/ai/openai"
	"github.com/bryanwahyu/lungscan/internal/infra/classifier"
	"github.com/bryanwahyu/lungscan/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/lungscan/internal/infra/db/mysql"
	"github.com/bryanwahyu/lungscan/internal/infra/db/postgres"
	"github.com/bryanwahyu/lungscan/internal/infra/db/sqlite"
	"github.com/bryanwahyu/lungscan/internal/infra/imaging"
	"github.com/bryanwahyu/lungscan/internal/infra/report"
	"github.com/bryanwahyu/lungscan/internal/infra/storage"
	"github.com/bryanwahyu/lungscan/internal/middleware"
)

// App is the wired object graph shared by the server and the CLI.
type App struct {
	Scans    *appscans.Service
	Reports  *report.Renderer
	Checkers map[string]middleware.HealthChecker

	db *sql.DB
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Build constructs every collaborator from cfg. Order: store, artifacts,
// classifier, overlay, advisory.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Checkers: map[string]middleware.HealthChecker{}}

	repo, failures, err := app.openStore(ctx, cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	artifacts, err := openArtifacts(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	cls, err := newClassifier(cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	overlay := newOverlay(cfg, logger)

	advisor := appai.NewService(newAIClient(cfg), cfg.AI.Timeout, logger)
	if !advisor.Configured() {
		logger.Warn("advisory backend not configured; narratives will use the fallback")
	}

	app.Scans = &appscans.Service{
		Repo:       repo,
		Classifier: cls,
		Overlay:    overlay,
		Artifacts:  artifacts,
		Advisor:    advisor,
		Failures:   failures,
		MaxPixels:  cfg.Imaging.MaxPixels,
		Clock:      application.SystemClock{},
		Logger:     logger,
	}
	app.Reports = report.NewRenderer(cfg.Report.Paper, cfg.Report.Font, appscans.Treatment, appscans.Lifestyle)

	logger.Info("lungscan wired",
		"database", cfg.Database.Driver,
		"storage", cfg.Storage.Backend,
		"classifier", cls.Name(),
		"overlay", cfg.Imaging.OverlayBackend,
		"ai", cfg.AI.Provider)
	return app, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.Repository, scanerrors.Repository, error) {
	var (
		db      *sql.DB
		err     error
		migrate func(context.Context, *sql.DB) error
	)
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("using in-memory history store; records are lost on restart")
		return memory.NewPatientRepository(), memory.NewScanErrorRepository(), nil
	case "sqlite":
		db, err = sqlite.Connect(ctx, cfg.SQLitePath())
		migrate = sqlite.Migrate
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		migrate = mysqlp.Migrate
	case "postgres":
		db, err = postgres.Connect(ctx, cfg.PostgresDSN())
		migrate = postgres.Migrate
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	a.db = db
	a.Checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}

	if err := migrate(ctx, db); err != nil {
		return nil, nil, fmt.Errorf("%s migrate: %w", cfg.Database.Driver, err)
	}

	switch cfg.Database.Driver {
	case "sqlite":
		return sqlite.NewPatientRepository(db), sqlite.NewScanErrorRepository(db), nil
	case "mysql":
		return mysqlp.NewPatientRepository(db), mysqlp.NewScanErrorRepository(db), nil
	default:
		return postgres.NewPatientRepository(db), postgres.NewScanErrorRepository(db), nil
	}
}

func openArtifacts(ctx context.Context, cfg *config.Config) (domain.ArtifactStore, error) {
	if cfg.Storage.Backend == "minio" {
		store, err := storage.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return nil, fmt.Errorf("minio init: %w", err)
		}
		return store, nil
	}
	return storage.NewLocalStore(cfg.Storage.Path)
}

func newClassifier(cfg *config.Config, logger *slog.Logger) (domain.Classifier, error) {
	if cfg.Classifier.Kind == "cnn" {
		return classifier.NewCNNFromFile(cfg.Classifier.ModelPath, cfg.Classifier.Seed, logger)
	}
	var src classifier.Source
	if cfg.Classifier.Seed != 0 {
		src = rand.New(rand.NewSource(cfg.Classifier.Seed))
	}
	return classifier.NewDemo(src), nil
}

func newOverlay(cfg *config.Config, logger *slog.Logger) domain.OverlayGenerator {
	if cfg.Imaging.KernelSize != imaging.DefaultKernelSize {
		logger.Warn("non-canonical overlay kernel; heatmaps will differ from the 21x21 reference",
			"kernel_size", cfg.Imaging.KernelSize)
	}
	if cfg.Imaging.OverlayBackend == "gocv" {
		o, err := imaging.NewGoCVOverlay(cfg.Imaging.KernelSize)
		if err == nil {
			return o
		}
		logger.Warn("gocv overlay unavailable, using native backend", "error", err)
	}
	o := imaging.NewOverlay()
	o.KernelSize = cfg.Imaging.KernelSize
	return o
}

// newAIClient returns nil when no provider or key is configured.
func newAIClient(cfg *config.Config) domai.Client {
	if cfg.AI.APIKey == "" {
		return nil
	}
	switch cfg.AI.Provider {
	case "openai":
		return aiopenai.New(aiopenai.Options{APIKey: cfg.AI.APIKey, Model: cfg.AI.Model, BaseURL: cfg.AI.BaseURL})
	case "openrouter":
		return aiopenai.NewOpenRouter(cfg.AI.APIKey, cfg.AI.Model)
	}
	return nil
}

// Package bootstrap provides dependency initialization for the voice
// pipeline server.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/Aneek02/voice/internal/blob"
	"github.com/Aneek02/voice/internal/config"
	"github.com/Aneek02/voice/internal/engine"
	"github.com/Aneek02/voice/internal/job"
	"github.com/Aneek02/voice/internal/registry"
	"github.com/Aneek02/voice/internal/workspace"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	JobService      *job.Service
	RegistryService *registry.Service
	Blobs           blob.Store
	Workspaces      *workspace.Manager
	// Cron runs the background reaper. The caller owns Start/Stop.
	Cron *cron.Cron
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	blobs, err := initBlobStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	repo, err := initRepository(cfg, logger)
	if err != nil {
		return nil, err
	}
	registryService := registry.NewService(repo, logger)

	workspaces, err := workspace.NewManager(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("create workspace manager: %w", err)
	}

	reaper := workspace.NewReaper(workspaces, cfg.ReapMaxAge, logger)
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := reaper.Schedule(c, cfg.ReapInterval); err != nil {
		return nil, fmt.Errorf("schedule reaper: %w", err)
	}

	eng := engine.NewSubprocess(
		cfg.EngineCommand,
		cfg.EngineScript,
		cfg.EngineParagraphScript,
		cfg.EngineTimeout,
		logger,
	)

	jobService := job.NewService(workspaces, reaper, blobs, eng, registryService, logger)

	return &Dependencies{
		JobService:      jobService,
		RegistryService: registryService,
		Blobs:           blobs,
		Workspaces:      workspaces,
		Cron:            c,
	}, nil
}

// initBlobStore creates the appropriate blob store backend based on
// configuration.
func initBlobStore(cfg *config.Config, logger *slog.Logger) (blob.Store, error) {
	if cfg.S3Enabled() {
		s3Store, err := blob.NewS3Store(blob.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 blob store: %w", err)
		}
		logger.Info("S3 blob store configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := blob.NewLocalStore(cfg.DataDir + "/blobs")
	if err != nil {
		return nil, fmt.Errorf("create local blob store: %w", err)
	}
	logger.Info("local blob store configured",
		slog.String("dir", cfg.DataDir+"/blobs"),
	)
	return localStore, nil
}

// initRepository creates the registry repository. An empty DB_PATH selects
// the in-memory repository, useful for tests and throwaway runs.
func initRepository(cfg *config.Config, logger *slog.Logger) (registry.Repository, error) {
	if cfg.DBPath == "" {
		logger.Warn("no DB_PATH configured, registry records will not survive restarts")
		return registry.NewMemoryRepository(), nil
	}

	db, err := registry.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}
	repo, err := registry.NewGormRepository(db)
	if err != nil {
		return nil, fmt.Errorf("migrate registry database: %w", err)
	}
	logger.Info("sqlite registry configured", slog.String("path", cfg.DBPath))
	return repo, nil
}

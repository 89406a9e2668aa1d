package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ersonp/relmap/internal/application/handlers"
	"github.com/ersonp/relmap/internal/application/host"
	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/services"
	"github.com/ersonp/relmap/internal/infrastructure/config"
	"github.com/ersonp/relmap/internal/infrastructure/logging"
	"github.com/ersonp/relmap/internal/infrastructure/relationaldb/sqlite"
	"github.com/ersonp/relmap/internal/infrastructure/saveformat"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config        *config.Config
	RelationTypes *handlers.RelationTypeHandler
	Schema        *handlers.SchemaHandler
	Entities      *handlers.EntityHandler
	Relations     *handlers.RelationHandler
}

// projectDir returns the --dir flag or the current directory.
func projectDir() (string, error) {
	if globalDir != "" {
		return globalDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return cwd, nil
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // stderr sync fails on some terminals

	dbPath := cfg.DatabasePath(dir)
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}

	repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: dbPath})
	if err != nil {
		return fmt.Errorf("creating sqlite repository: %w", err)
	}
	defer repo.Close()

	deps, err := buildDeps(ctx, cfg, repo, logger)
	if err != nil {
		return err
	}
	return fn(deps)
}

// buildDeps ensures the schema, seeds the default relation types, and wires the
// relation mapping engine onto the host's save events.
func buildDeps(ctx context.Context, cfg *config.Config, repo *sqlite.Repository, logger *zap.SugaredLogger) (*Deps, error) {
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	relationTypes := services.NewRelationTypeService(repo)
	if err := relationTypes.LoadDefaults(ctx); err != nil {
		return nil, fmt.Errorf("seeding relation types: %w", err)
	}
	relationships := services.NewRelationshipService(repo, repo)

	pickers := entities.NewPickerEditorSet(cfg.Mapping.PickerEditors)
	h := host.New(repo, repo, pickers, logger)

	synchronizer := services.NewRelationSynchronizer(repo, repo, repo, repo, logger).
		WithAuditLog(repo).
		WithDuplicatePolicy(services.DuplicatePolicy(cfg.Mapping.Duplicates))
	coordinator := services.NewSaveCoordinator(synchronizer, repo, h.Accessor(), saveformat.Decoder{}, repo, logger,
		services.CoordinatorOptions{
			NullValue: services.NullValuePolicy(cfg.Mapping.NullValue),
			Workers:   cfg.Mapping.Workers,
		})
	coordinator.Register(h.Sources()...)

	return &Deps{
		Config:        cfg,
		RelationTypes: handlers.NewRelationTypeHandler(relationTypes, relationships),
		Schema:        handlers.NewSchemaHandler(repo, relationTypes, pickers),
		Entities:      handlers.NewEntityHandler(h, repo, repo, services.NewRelationReader(repo, repo), pickers),
		Relations:     handlers.NewRelationHandler(relationships, repo),
	}, nil
}

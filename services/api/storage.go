package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmchat/internal/config"
	"github.com/dmchat/internal/logger"
	"github.com/dmchat/internal/model"
	"github.com/dmchat/internal/repository"
	"github.com/dmchat/internal/startup"
	"github.com/dmchat/internal/storage"
	"github.com/dmchat/internal/storage/devstore"
	"github.com/dmchat/internal/storage/memory"
	"github.com/dmchat/migrations"
)

// storageSet is everything the services need, plus the teardown for it.
type storageSet struct {
	backend  storage.ChatBackend
	sessions storage.SessionStore
	secrets  storage.SessionSecretStore
	closers  []func()
}

func (s *storageSet) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func openStorage(ctx context.Context, cfg *config.Config, dev bool) (*storageSet, error) {
	if cfg.Storage == config.StorageMemory && !dev {
		return openMemory(cfg), nil
	}
	return openPostgres(ctx, cfg, dev)
}

func openMemory(cfg *config.Config) *storageSet {
	st := memory.New()
	now := time.Now().UTC()
	for _, id := range cfg.SeedUserIDs() {
		st.AddUser(model.User{ID: id, Username: id, CreatedAt: now})
	}
	logger.Infof("in-memory storage, %d seeded users", len(cfg.SeedUserIDs()))
	return &storageSet{
		backend:  st.Backend(),
		sessions: memory.Sessions{Store: st},
		secrets:  st,
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, dev bool) (*storageSet, error) {
	set := &storageSet{}

	if dev {
		db, err := startEmbeddedPostgres(cfg)
		if err != nil {
			return nil, fmt.Errorf("embedded postgres: %w", err)
		}
		set.closers = append(set.closers, func() {
			logger.Info("stopping embedded postgres...")
			if err := db.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		})
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		set.close()
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	poolCfg.MinConns = 2

	pool, err := startup.ConnectDB(ctx, poolCfg, 60*time.Second)
	if err != nil {
		set.close()
		return nil, err
	}
	set.closers = append(set.closers, pool.Close)

	migCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	applied, err := migrations.Apply(migCtx, pool)
	cancel()
	if err != nil {
		set.close()
		return nil, err
	}
	logger.Infow("database connected", "migrations", applied)

	sessionRepo := repository.NewSessionRepository(pool)
	set.backend = repository.NewBackend(pool)
	set.sessions = sessionRepo

	if dev {
		users := repository.NewUserRepository(pool)
		now := time.Now().UTC()
		for _, id := range cfg.SeedUserIDs() {
			if err := users.EnsureExists(ctx, &model.User{ID: id, Username: id, CreatedAt: now}); err != nil {
				logger.Errorf("seed user %s: %v", id, err)
			}
		}
	}

	switch {
	case cfg.RedisURL != "":
		rc, err := startup.ConnectRedis(ctx, cfg.RedisURL, 30*time.Second)
		if err != nil {
			set.close()
			return nil, err
		}
		set.secrets = rc
		set.closers = append(set.closers, func() { _ = rc.Close() })
	case dev:
		logger.Info("session secrets stored in embedded postgres")
		set.secrets = devstore.New(sessionRepo)
	default:
		logger.Errorf("REDIS_URL not set: session secrets kept in process memory")
		set.secrets = memory.New()
	}
	return set, nil
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "dmchat"
		password = "dmchat_secret"
		database = "dmchat"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "dmchat-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}

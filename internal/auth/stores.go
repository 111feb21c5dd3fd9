package auth

import (
	"context"
	"fmt"
	"time"

	"secure-auth/internal/auth/adapter/persistence/memory"
	"secure-auth/internal/auth/adapter/persistence/mongodb"
	"secure-auth/internal/auth/adapter/persistence/postgres"
	"secure-auth/internal/auth/config"
	"secure-auth/internal/auth/domain/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const storeConnectTimeout = 10 * time.Second

// stores holds the credential and session stores of the configured backend.
type stores struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	close    func(ctx context.Context) error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.SessionStore {
	case config.StoreMongo:
		return openMongo(ctx, cfg)
	case config.StorePostgres:
		return openPostgres(ctx, cfg)
	case config.StoreMemory:
		return &stores{
			users:    memory.NewUserRepository(),
			sessions: memory.NewSessionRepository(),
			close:    func(context.Context) error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

func openMongo(ctx context.Context, cfg *config.Config) (*stores, error) {
	connectCtx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoDBURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.DatabaseName)
	users, err := mongodb.NewUserRepository(connectCtx, db)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	sessions, err := mongodb.NewSessionRepository(connectCtx, db, cfg.RecordRetention)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &stores{users: users, sessions: sessions, close: client.Disconnect}, nil
}

func openPostgres(ctx context.Context, cfg *config.Config) (*stores, error) {
	connectCtx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Postgres pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	users, err := postgres.NewUserRepository(connectCtx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	sessions, err := postgres.NewSessionRepository(connectCtx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	closePool := func(context.Context) error {
		pool.Close()
		return nil
	}
	return &stores{users: users, sessions: sessions, close: closePool}, nil
}

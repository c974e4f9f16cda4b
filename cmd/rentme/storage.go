package main

import (
	"context"
	"fmt"
	"log/slog"

	"rentme/internal/app/middleware"
	appoutbox "rentme/internal/app/outbox"
	"rentme/internal/app/policies"
	"rentme/internal/app/uow"
	"rentme/internal/infra/config"
	dbmongo "rentme/internal/infra/db/mongo"
	"rentme/internal/infra/db/postgres"
	"rentme/internal/infra/inbox"
	infraoutbox "rentme/internal/infra/outbox"
	"rentme/internal/infra/storage/memory"
)

// storage bundles the driver specific adapters behind app ports.
type storage struct {
	uow         uow.UoWFactory
	outbox      appoutbox.Outbox
	queue       infraoutbox.Queue
	idempotency middleware.IdempotencyStore
	inbox       inbox.Inbox
	ready       func(ctx context.Context) error
	close       func(ctx context.Context)
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMongo:
		return openMongo(ctx, cfg)
	case config.StoragePostgres:
		return openPostgres(ctx, cfg)
	case config.StorageMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		box := memory.NewOutbox(store)
		return storage{
			uow:         memory.Factory{Store: store},
			outbox:      box,
			queue:       box,
			idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
			inbox:       inbox.NewMemoryStore(),
			ready:       func(context.Context) error { return nil },
			close:       func(context.Context) {},
		}, nil
	}
	return storage{}, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func openMongo(ctx context.Context, cfg config.Config) (storage, error) {
	client, err := dbmongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storage{}, err
	}
	if err := client.EnsureIndexes(ctx); err != nil {
		return storage{}, fmt.Errorf("mongo indexes: %w", err)
	}
	box, err := infraoutbox.NewMongoStore(ctx, client.DB)
	if err != nil {
		return storage{}, err
	}
	idem, err := dbmongo.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		return storage{}, err
	}
	in, err := inbox.NewMongoStore(ctx, client.DB, cfg.KafkaGroupID)
	if err != nil {
		return storage{}, err
	}
	return storage{
		uow:         dbmongo.NewFactory(client.DB),
		outbox:      box,
		queue:       box,
		idempotency: idem,
		inbox:       in,
		ready:       client.Ping,
		close:       func(ctx context.Context) { _ = client.Close(ctx) },
	}, nil
}

func openPostgres(ctx context.Context, cfg config.Config) (storage, error) {
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return storage{}, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return storage{}, err
	}
	box := postgres.NewOutboxStore(pool)
	return storage{
		uow:         postgres.NewFactory(pool),
		outbox:      box,
		queue:       box,
		idempotency: postgres.NewIdempotencyStore(pool, cfg.IdempotencyTTL),
		inbox:       postgres.NewInboxStore(pool, cfg.KafkaGroupID),
		ready:       pool.Ping,
		close:       func(context.Context) { pool.Close() },
	}, nil
}

func newMemoryLocker() policies.PropertyLocker {
	return memory.NewLocker()
}

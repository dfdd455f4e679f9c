package databases

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/custody-ledger-api/config"
	"github.com/linesmerrill/custody-ledger-api/custody"
	"github.com/linesmerrill/custody-ledger-api/databases/sqlstore"
)

const connectTimeout = 15 * time.Second

// Backend is a connected record store chosen by DB_DRIVER
type Backend struct {
	custody.Store
	driver string
	ping   func(ctx context.Context, timeout time.Duration) error
	close  func(ctx context.Context) error
}

// Open connects to the configured datastore: "mongo" (default), "sqlite" or "mysql"
func Open(ctx context.Context, conf *config.Config) (*Backend, error) {
	switch conf.DBDriver {
	case "", "mongo", "mongodb":
		return openMongo(ctx, conf)
	case "sqlite", "mysql":
		s, err := sqlstore.Open(conf.DBDriver, conf.SQLDSN)
		if err != nil {
			return nil, err
		}
		zap.S().Infow("connected to sql datastore", "driver", conf.DBDriver)
		return &Backend{
			Store:  s,
			driver: conf.DBDriver,
			ping:   s.Ping,
			close:  func(context.Context) error { return s.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", conf.DBDriver)
}

func openMongo(ctx context.Context, conf *config.Config) (*Backend, error) {
	client, err := NewClient(conf)
	if err != nil {
		return nil, fmt.Errorf("create mongo client: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	rdb := NewRecordDatabase(NewDatabase(conf, client), conf.DBTransactions)
	if err := rdb.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	zap.S().Infow("connected to mongo datastore",
		"database", conf.DatabaseName,
		"transactions", conf.DBTransactions,
	)
	return &Backend{
		Store:  rdb,
		driver: "mongo",
		ping:   rdb.Ping,
		close:  client.Disconnect,
	}, nil
}

// Driver names the connected backend
func (b *Backend) Driver() string {
	return b.driver
}

// Ping checks the datastore is reachable within timeout
func (b *Backend) Ping(ctx context.Context, timeout time.Duration) error {
	return b.ping(ctx, timeout)
}

// Close disconnects from the datastore
func (b *Backend) Close(ctx context.Context) error {
	return b.close(ctx)
}

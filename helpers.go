package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/resumezk/internal/clock"
	"github.com/muhammadolammi/resumezk/internal/database"
	"github.com/muhammadolammi/resumezk/internal/ledger"
	"github.com/muhammadolammi/resumezk/internal/share"
)

// closers runs cleanup functions in reverse order.
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) close() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func newLogger(cfg Config) *logrus.Logger {
	log := logrus.New()
	if cfg.LogFormat == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// openDB connects to Postgres and applies the schema.
func openDB(ctx context.Context, url string) (*sql.DB, *database.Queries, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("error reaching db: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, database.New(db), nil
}

func openShareBackend(cfg Config, q *database.Queries, cl *closers) (share.Backend, error) {
	switch cfg.ShareBackend {
	case backendPostgres:
		return share.NewPostgres(q), nil
	case backendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping().Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("error reaching redis: %w", err)
		}
		cl.add(func() { client.Close() })
		return share.NewRedis(client, cfg.RedisPrefix), nil
	case backendBadger:
		b, err := share.OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("error opening badger: %w", err)
		}
		cl.add(func() { b.Close() })
		return b, nil
	default:
		return share.NewMemory(), nil
	}
}

// openLedger dials the contract when an RPC URL is set and otherwise falls
// back to a process-local ledger.
func openLedger(ctx context.Context, cfg Config, log logrus.FieldLogger, cl *closers) (ledger.Ledger, error) {
	if cfg.EthRPCURL == "" {
		log.Warn("ETH_RPC_URL not set, using in-memory ledger")
		return ledger.NewMemory(cfg.LedgerOwner, clock.System)
	}
	c, err := ledger.DialContract(ctx, ledger.ContractConfig{
		RPCURL:     cfg.EthRPCURL,
		Address:    cfg.ContractAddress,
		PrivateKey: cfg.LedgerPrivateKey,
	}, log)
	if err != nil {
		return nil, err
	}
	cl.add(c.Close)
	return c, nil
}

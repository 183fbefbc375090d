package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Pool struct {
	*pgxpool.Pool
}

// Option adjusts the pool configuration parsed from the database URL.
type Option func(*pgxpool.Config)

// WithMaxConns caps the pool. Values below one are ignored.
func WithMaxConns(n int32) Option {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = n
			if cfg.MinConns > n {
				cfg.MinConns = n
			}
		}
	}
}

// WithQueryTracing records a span per statement through the global tracer provider.
func WithQueryTracing() Option {
	return func(cfg *pgxpool.Config) {
		cfg.ConnConfig.Tracer = newQueryTracer()
	}
}

// Open connects and pings. Pool settings given in the URL (pool_max_conns and friends) are
// kept. Otherwise the pool defaults to ten connections, and opts apply last.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*Pool, error) {
	cfg, err := pgxpoolConfig(databaseURL, opts...)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Pool{Pool: pool}, nil
}

func pgxpoolConfig(databaseURL string, opts ...Option) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg, databaseURL)
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, nil
}

func applyDefaults(cfg *pgxpool.Config, databaseURL string) {
	set := func(name string) bool { return urlHasParam(databaseURL, name) }
	if !set("pool_max_conns") {
		cfg.MaxConns = 10
	}
	if !set("pool_min_conns") {
		cfg.MinConns = 1
	}
	if !set("pool_max_conn_lifetime") {
		cfg.MaxConnLifetime = 30 * time.Minute
	}
	if !set("pool_max_conn_idle_time") {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}
}

func (p *Pool) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// WithTx runs fn inside a transaction. The transaction is committed when fn returns nil
// and rolled back otherwise.
func (p *Pool) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := p.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func ReadyCheck(pool *Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if pool == nil || pool.Pool == nil {
			return errors.New("db not configured")
		}
		return pool.Ping(ctx)
	}
}

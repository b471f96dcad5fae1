package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
)

// Pool wraps a *sqlx.DB with an idempotent Connect. sqlx.Open does not dial;
// the first caller to Connect verifies the server is reachable, and later
// callers see the connected flag and return immediately.
type Pool struct {
	db *sqlx.DB

	mu        sync.Mutex
	connected bool
}

func newPool(cfg Config) (*Pool, error) {
	db, err := sqlx.Open("sqlserver", cfg.BuildDSN())
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	return &Pool{db: db}, nil
}

// Connect verifies the pool can reach the server. Safe to call repeatedly
// and from concurrent callers; only the first successful call pings.
func (p *Pool) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.connected {
		return nil
	}
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect pool: %w", err)
	}
	p.connected = true
	return nil
}

// Connected reports whether Connect has succeeded on this pool.
func (p *Pool) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// DB exposes the underlying sqlx pool.
func (p *Pool) DB() *sqlx.DB {
	return p.db
}

// Close closes the underlying pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return p.db.Close()
}

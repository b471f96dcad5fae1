package pool

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// WithRequest connects the pool if needed, checks out a dedicated connection
// (the "request"), and runs fn against it. The connection is single-use and
// released when fn returns; it must not outlive the call. Concurrent callers
// each get their own connection over the shared pool.
func WithRequest[T any](ctx context.Context, p *Pool, fn func(conn *sqlx.Conn) (T, error)) (T, error) {
	var zero T

	if err := p.Connect(ctx); err != nil {
		return zero, err
	}

	conn, err := p.DB().Connx(ctx)
	if err != nil {
		return zero, fmt.Errorf("acquire request: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/cimillas/ticket-booking/internal/domain"
	zsqlite "zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type connKey struct{}

// withTx runs fn inside BEGIN IMMEDIATE. The write lock is taken up front
// so a read inside fn cannot be invalidated by another writer before the
// update. Nested calls reuse the outer transaction.
func withTx(ctx context.Context, pool *Pool, fn func(ctx context.Context) error) error {
	if connFromContext(ctx) != nil {
		return fn(ctx)
	}

	conn, err := pool.Take(ctx)
	if err != nil {
		return domain.StoreFailure("begin tx", err)
	}
	defer pool.Put(conn)

	return domain.StoreFailure("tx", runImmediate(ctx, conn, fn))
}

func runImmediate(ctx context.Context, conn *zsqlite.Conn, fn func(ctx context.Context) error) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}
	defer endFn(&err)

	return fn(context.WithValue(ctx, connKey{}, conn))
}

func connFromContext(ctx context.Context) *zsqlite.Conn {
	conn, _ := ctx.Value(connKey{}).(*zsqlite.Conn)
	return conn
}

// withConn hands fn the transaction's connection, or a pooled one when
// the caller is not inside a transaction.
func withConn(ctx context.Context, pool *Pool, fn func(conn *zsqlite.Conn) error) error {
	if conn := connFromContext(ctx); conn != nil {
		return fn(conn)
	}
	conn, err := pool.Take(ctx)
	if err != nil {
		return err
	}
	defer pool.Put(conn)
	return fn(conn)
}

func isUniqueViolation(err error) bool {
	switch zsqlite.ErrCode(err) {
	case zsqlite.ResultConstraintUnique, zsqlite.ResultConstraintPrimaryKey:
		return true
	default:
		return false
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullable binds empty strings as NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

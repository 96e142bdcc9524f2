package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cimillas/ticket-booking/internal/storage/sqlite"
	"github.com/cimillas/ticket-booking/migrations"
	zsqlite "zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// NewSQLitePool opens a migrated database file in a per-test temp dir.
func NewSQLitePool(t *testing.T) *sqlite.Pool {
	t.Helper()
	return OpenSQLitePool(t, filepath.Join(t.TempDir(), "events.db"))
}

// OpenSQLitePool opens a migrated pool on path. Opening the same path
// twice gives two independent pools, like two processes sharing a file.
func OpenSQLitePool(t *testing.T, path string) *sqlite.Pool {
	t.Helper()
	pool, err := sqlite.Open(sqlite.Config{
		Path:     path,
		PoolSize: 8,
	})
	if err != nil {
		t.Fatalf("open sqlite pool: %v", err)
	}
	t.Cleanup(func() {
		_ = pool.Close()
	})

	if err := migrations.ApplySQLite(context.Background(), pool); err != nil {
		t.Fatalf("apply sqlite migrations: %v", err)
	}
	return pool
}

func InsertSQLiteEvent(t *testing.T, pool *sqlite.Pool, name, date string, tickets int) int64 {
	t.Helper()
	var id int64
	withSQLiteConn(t, pool, func(conn *zsqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO events (name, date, tickets, created_at) VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))`,
			&sqlitex.ExecOptions{Args: []any{name, date, tickets}},
		)
		id = conn.LastInsertRowID()
		return err
	})
	return id
}

// SQLiteTickets reads the remaining inventory of an event.
func SQLiteTickets(t *testing.T, pool *sqlite.Pool, eventID int64) int {
	t.Helper()
	tickets := -1
	withSQLiteConn(t, pool, func(conn *zsqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT tickets FROM events WHERE id = ?`, &sqlitex.ExecOptions{
			Args: []any{eventID},
			ResultFunc: func(stmt *zsqlite.Stmt) error {
				tickets = stmt.ColumnInt(0)
				return nil
			},
		})
	})
	return tickets
}

// CountSQLiteRows counts rows in table, filtered by event id unless it is 0.
func CountSQLiteRows(t *testing.T, pool *sqlite.Pool, table string, eventID int64) int {
	t.Helper()
	var count int
	withSQLiteConn(t, pool, func(conn *zsqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT COUNT(*) FROM `+table+` WHERE ?1 = 0 OR event_id = ?1`, &sqlitex.ExecOptions{
			Args: []any{eventID},
			ResultFunc: func(stmt *zsqlite.Stmt) error {
				count = stmt.ColumnInt(0)
				return nil
			},
		})
	})
	return count
}

func withSQLiteConn(t *testing.T, pool *sqlite.Pool, fn func(conn *zsqlite.Conn) error) {
	t.Helper()
	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("take conn: %v", err)
	}
	defer pool.Put(conn)
	if err := fn(conn); err != nil {
		t.Fatalf("sqlite helper: %v", err)
	}
}

package migrations

import (
	"context"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

//go:embed postgres/*.sql sqlite/*.sql
var migrationFiles embed.FS

const (
	dirPostgres = "postgres"
	dirSQLite   = "sqlite"
)

// ConnPool hands out SQLite connections. It is satisfied by the sqlite
// store's pool.
type ConnPool interface {
	Take(ctx context.Context) (*sqlite.Conn, error)
	Put(conn *sqlite.Conn)
}

// Names returns the migration file names for a backend directory in
// the order they are applied.
func Names(dir string) ([]string, error) {
	entries, err := migrationFiles.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func readMigration(dir, name string) (string, error) {
	sqlBytes, err := migrationFiles.ReadFile(path.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", name, err)
	}
	return strings.TrimSpace(string(sqlBytes)), nil
}

// step is one backend's view of the migration table.
type step struct {
	applied func(name string) (bool, error)
	run     func(name, sql string) error
}

// applyPending runs every migration in dir that the backend has not
// recorded yet, in filename order.
func applyPending(dir string, s step) error {
	names, err := Names(dir)
	if err != nil {
		return err
	}
	for _, name := range names {
		done, err := s.applied(name)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if done {
			continue
		}
		sql, err := readMigration(dir, name)
		if err != nil {
			return err
		}
		if sql == "" {
			continue
		}
		if err := s.run(name, sql); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}

// Apply runs embedded Postgres migrations. Concurrent callers queue on an
// advisory lock.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	const advisoryLockID int64 = 801234567
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, advisoryLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, advisoryLockID)
	}()

	if _, err := conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	name TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	return applyPending(dirPostgres, step{
		applied: func(name string) (bool, error) {
			var ok bool
			err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&ok)
			return ok, err
		},
		run: func(name, sql string) error {
			if _, err := conn.Exec(ctx, sql); err != nil {
				return err
			}
			_, err := conn.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name)
			return err
		},
	})
}

// ApplySQLite runs embedded SQLite migrations. The whole run holds the
// database write lock, so processes starting against the same file apply
// each migration once.
func ApplySQLite(ctx context.Context, pool ConnPool) (err error) {
	conn, err := pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("take conn: %w", err)
	}
	defer pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer endFn(&err)

	if err := sqlitex.ExecuteTransient(conn, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	name TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL
)`, nil); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	return applyPending(dirSQLite, step{
		applied: func(name string) (bool, error) {
			found := false
			err := sqlitex.Execute(conn, `SELECT 1 FROM schema_migrations WHERE name = ?`, &sqlitex.ExecOptions{
				Args: []any{name},
				ResultFunc: func(*sqlite.Stmt) error {
					found = true
					return nil
				},
			})
			return found, err
		},
		run: func(name, sql string) error {
			if err := sqlitex.ExecuteScript(conn, sql, nil); err != nil {
				return err
			}
			return sqlitex.Execute(conn, `INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, &sqlitex.ExecOptions{
				Args: []any{name, time.Now().UTC().Format(time.RFC3339Nano)},
			})
		},
	})
}

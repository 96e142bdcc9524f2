package sqlite

import (
	"context"

	"github.com/cimillas/ticket-booking/internal/domain"
	zsqlite "zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type InventoryRepository struct {
	pool *Pool
}

func NewInventoryRepository(pool *Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

func (r *InventoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// GetTicketsForUpdate relies on the enclosing IMMEDIATE transaction for
// the lock; SQLite has no row locks.
func (r *InventoryRepository) GetTicketsForUpdate(ctx context.Context, eventID int64) (int, error) {
	tickets, found := 0, false
	err := withConn(ctx, r.pool, func(conn *zsqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT tickets FROM events WHERE id = ?`, &sqlitex.ExecOptions{
			Args: []any{eventID},
			ResultFunc: func(stmt *zsqlite.Stmt) error {
				tickets, found = stmt.ColumnInt(0), true
				return nil
			},
		})
	})
	if err != nil {
		return 0, domain.StoreFailure("get tickets", err)
	}
	if !found {
		return 0, domain.ErrEventNotFound
	}
	return tickets, nil
}

func (r *InventoryRepository) DecrementTickets(ctx context.Context, eventID int64, quantity int) (bool, error) {
	var changed int
	err := withConn(ctx, r.pool, func(conn *zsqlite.Conn) error {
		if err := sqlitex.Execute(conn, `UPDATE events SET tickets = tickets - ? WHERE id = ? AND tickets >= ?`, &sqlitex.ExecOptions{
			Args: []any{quantity, eventID, quantity},
		}); err != nil {
			return err
		}
		changed = conn.Changes()
		return nil
	})
	if err != nil {
		return false, domain.StoreFailure("decrement tickets", err)
	}
	return changed == 1, nil
}

func (r *InventoryRepository) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	return appendAudit(ctx, r.pool, entry)
}

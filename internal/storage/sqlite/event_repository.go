package sqlite

import (
	"context"
	"fmt"

	"github.com/cimillas/ticket-booking/internal/domain"
	zsqlite "zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const eventColumns = `id, name, date, tickets, location, description, created_by, created_at`

type EventRepository struct {
	pool *Pool
}

func NewEventRepository(pool *Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *EventRepository) FindIdempotencyRecord(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	var rec *domain.IdempotencyRecord
	err := withConn(ctx, r.pool, func(conn *zsqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT key, request_hash, event_id FROM idempotency WHERE key = ?`, &sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *zsqlite.Stmt) error {
				rec = &domain.IdempotencyRecord{
					Key:         stmt.ColumnText(0),
					RequestHash: stmt.ColumnText(1),
					EventID:     stmt.ColumnInt64(2),
				}
				return nil
			},
		})
	})
	if err != nil {
		return nil, domain.StoreFailure("find idempotency record", err)
	}
	return rec, nil
}

func (r *EventRepository) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	event, err := r.findOne(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	if err != nil {
		return domain.Event{}, domain.StoreFailure("get event", err)
	}
	if event == nil {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return *event, nil
}

func (r *EventRepository) FindEventByNameDate(ctx context.Context, name, date string) (*domain.Event, error) {
	event, err := r.findOne(ctx, `SELECT `+eventColumns+` FROM events WHERE name = ? AND date = ?`, name, date)
	if err != nil {
		return nil, domain.StoreFailure("find event by name and date", err)
	}
	return event, nil
}

func (r *EventRepository) CreateEvent(ctx context.Context, event domain.Event) (int64, error) {
	const stmt = `
INSERT INTO events (name, date, tickets, location, description, created_by, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	var id int64
	err := withConn(ctx, r.pool, func(conn *zsqlite.Conn) error {
		if err := sqlitex.Execute(conn, stmt, &sqlitex.ExecOptions{
			Args: []any{
				event.Name,
				event.Date,
				event.Tickets,
				nullable(event.Location),
				nullable(event.Description),
				nullable(event.CreatedBy),
				formatTime(event.CreatedAt),
			},
		}); err != nil {
			return err
		}
		id = conn.LastInsertRowID()
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrDuplicateEvent
		}
		return 0, domain.StoreFailure("create event", err)
	}
	return id, nil
}

func (r *EventRepository) CreateIdempotencyRecord(ctx context.Context, rec domain.IdempotencyRecord) error {
	err := withConn(ctx, r.pool, func(conn *zsqlite.Conn) error {
		return sqlitex.Execute(conn, `INSERT INTO idempotency (key, request_hash, event_id) VALUES (?, ?, ?)`, &sqlitex.ExecOptions{
			Args: []any{rec.Key, rec.RequestHash, rec.EventID},
		})
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		return domain.StoreFailure("create idempotency record", err)
	}
	return nil
}

func (r *EventRepository) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	return appendAudit(ctx, r.pool, entry)
}

func (r *EventRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	events := make([]domain.Event, 0)
	err := withConn(ctx, r.pool, func(conn *zsqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT `+eventColumns+` FROM events ORDER BY date ASC, id ASC`, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *zsqlite.Stmt) error {
				events = append(events, scanEvent(stmt))
				return nil
			},
		})
	})
	if err != nil {
		return nil, domain.StoreFailure("list events", err)
	}
	return events, nil
}

func (r *EventRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Event, error) {
	var event *domain.Event
	err := withConn(ctx, r.pool, func(conn *zsqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *zsqlite.Stmt) error {
				e := scanEvent(stmt)
				event = &e
				return nil
			},
		})
	})
	return event, err
}

func scanEvent(stmt *zsqlite.Stmt) domain.Event {
	return domain.Event{
		ID:          stmt.ColumnInt64(0),
		Name:        stmt.ColumnText(1),
		Date:        stmt.ColumnText(2),
		Tickets:     stmt.ColumnInt(3),
		Location:    stmt.ColumnText(4),
		Description: stmt.ColumnText(5),
		CreatedBy:   stmt.ColumnText(6),
		CreatedAt:   parseTime(stmt.ColumnText(7)),
	}
}

func appendAudit(ctx context.Context, pool *Pool, entry domain.AuditEntry) error {
	const stmt = `
INSERT INTO event_audit (actor_id, action, event_id, payload, ip, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

	err := withConn(ctx, pool, func(conn *zsqlite.Conn) error {
		return sqlitex.Execute(conn, stmt, &sqlitex.ExecOptions{
			Args: []any{
				nullable(entry.ActorID),
				string(entry.Action),
				entry.EventID,
				string(entry.Payload),
				nullable(entry.SourceIP),
				formatTime(entry.CreatedAt),
			},
		})
	})
	if err != nil {
		return domain.StoreFailure(fmt.Sprintf("append %s audit", entry.Action), err)
	}
	return nil
}

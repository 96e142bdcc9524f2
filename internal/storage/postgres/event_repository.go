package postgres

import (
	"context"
	"errors"

	"github.com/cimillas/ticket-booking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, name, date, tickets, COALESCE(location, ''), COALESCE(description, ''), COALESCE(created_by, ''), created_at`

type EventRepository struct {
	pool *pgxpool.Pool
	q    querier
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool, q: querier{pool: pool}}
}

func (r *EventRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *EventRepository) FindIdempotencyRecord(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	const query = `SELECT key, request_hash, event_id FROM idempotency WHERE key = $1`
	var rec domain.IdempotencyRecord
	err := r.q.queryRow(ctx, query, key).Scan(&rec.Key, &rec.RequestHash, &rec.EventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.StoreFailure("find idempotency record", err)
	}
	return &rec, nil
}

func (r *EventRepository) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	event, err := scanEvent(r.q.queryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, domain.StoreFailure("get event", err)
	}
	return event, nil
}

func (r *EventRepository) FindEventByNameDate(ctx context.Context, name, date string) (*domain.Event, error) {
	event, err := scanEvent(r.q.queryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE name = $1 AND date = $2`, name, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.StoreFailure("find event by name and date", err)
	}
	return &event, nil
}

func (r *EventRepository) CreateEvent(ctx context.Context, event domain.Event) (int64, error) {
	const stmt = `
INSERT INTO events (name, date, tickets, location, description, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`

	var id int64
	err := r.q.queryRow(ctx, stmt,
		event.Name,
		event.Date,
		event.Tickets,
		nullable(event.Location),
		nullable(event.Description),
		nullable(event.CreatedBy),
		event.CreatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrDuplicateEvent
		}
		return 0, domain.StoreFailure("create event", err)
	}
	return id, nil
}

func (r *EventRepository) CreateIdempotencyRecord(ctx context.Context, rec domain.IdempotencyRecord) error {
	const stmt = `INSERT INTO idempotency (key, request_hash, event_id) VALUES ($1, $2, $3)`
	if _, err := r.q.exec(ctx, stmt, rec.Key, rec.RequestHash, rec.EventID); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		return domain.StoreFailure("create idempotency record", err)
	}
	return nil
}

func (r *EventRepository) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	return appendAudit(ctx, r.q, entry)
}

func (r *EventRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.q.query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, domain.StoreFailure("list events", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, domain.StoreFailure("scan event", err)
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, domain.StoreFailure("iterate events", rows.Err())
	}
	return events, nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	err := row.Scan(&e.ID, &e.Name, &e.Date, &e.Tickets, &e.Location, &e.Description, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return domain.Event{}, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

func appendAudit(ctx context.Context, q querier, entry domain.AuditEntry) error {
	const stmt = `
INSERT INTO event_audit (actor_id, action, event_id, payload, ip, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := q.exec(ctx, stmt,
		nullable(entry.ActorID),
		string(entry.Action),
		entry.EventID,
		string(entry.Payload),
		nullable(entry.SourceIP),
		entry.CreatedAt,
	)
	if err != nil {
		return domain.StoreFailure("append audit", err)
	}
	return nil
}

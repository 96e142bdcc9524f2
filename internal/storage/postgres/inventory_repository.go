package postgres

import (
	"context"
	"errors"

	"github.com/cimillas/ticket-booking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InventoryRepository struct {
	pool *pgxpool.Pool
	q    querier
}

func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool, q: querier{pool: pool}}
}

func (r *InventoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *InventoryRepository) GetTicketsForUpdate(ctx context.Context, eventID int64) (int, error) {
	const query = `SELECT tickets FROM events WHERE id = $1 FOR UPDATE`
	var tickets int
	if err := r.q.queryRow(ctx, query, eventID).Scan(&tickets); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrEventNotFound
		}
		return 0, domain.StoreFailure("get tickets", err)
	}
	return tickets, nil
}

func (r *InventoryRepository) DecrementTickets(ctx context.Context, eventID int64, quantity int) (bool, error) {
	const stmt = `UPDATE events SET tickets = tickets - $2 WHERE id = $1 AND tickets >= $2`
	tag, err := r.q.exec(ctx, stmt, eventID, quantity)
	if err != nil {
		return false, domain.StoreFailure("decrement tickets", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *InventoryRepository) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	return appendAudit(ctx, r.q, entry)
}

package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimillas/ticket-booking/internal/domain"
	"github.com/cimillas/ticket-booking/internal/storage/sqlite"
	"github.com/cimillas/ticket-booking/internal/testutil"
)

func TestEventRepository(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	t.Run("CreateEvent and read back", func(t *testing.T) {
		pool := testutil.NewSQLitePool(t)
		repo := sqlite.NewEventRepository(pool)

		id, err := repo.CreateEvent(ctx, domain.Event{
			Name:      "Jazz Night",
			Date:      "2025-11-15",
			Tickets:   2,
			Location:  "Blue Room",
			CreatedBy: "admin",
			CreatedAt: createdAt,
		})
		require.NoError(t, err)
		require.Positive(t, id)

		event, err := repo.GetEvent(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Jazz Night", event.Name)
		assert.Equal(t, "2025-11-15", event.Date)
		assert.Equal(t, 2, event.Tickets)
		assert.Equal(t, "Blue Room", event.Location)
		assert.Empty(t, event.Description)
		assert.Equal(t, "admin", event.CreatedBy)
		assert.True(t, event.CreatedAt.Equal(createdAt))

		found, err := repo.FindEventByNameDate(ctx, "Jazz Night", "2025-11-15")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, id, found.ID)

		missing, err := repo.FindEventByNameDate(ctx, "Jazz Night", "2025-11-16")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("GetEvent returns ErrEventNotFound", func(t *testing.T) {
		pool := testutil.NewSQLitePool(t)
		repo := sqlite.NewEventRepository(pool)

		_, err := repo.GetEvent(ctx, 999)
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
	})

	t.Run("CreateEvent maps unique name and date", func(t *testing.T) {
		pool := testutil.NewSQLitePool(t)
		repo := sqlite.NewEventRepository(pool)
		event := domain.Event{Name: gofakeit.LetterN(12), Date: "2026-01-01", Tickets: 5, CreatedAt: createdAt}

		_, err := repo.CreateEvent(ctx, event)
		require.NoError(t, err)

		_, err = repo.CreateEvent(ctx, event)
		assert.ErrorIs(t, err, domain.ErrDuplicateEvent)

		event.Date = "2026-01-02"
		_, err = repo.CreateEvent(ctx, event)
		assert.NoError(t, err)
	})

	t.Run("idempotency records are write once", func(t *testing.T) {
		pool := testutil.NewSQLitePool(t)
		repo := sqlite.NewEventRepository(pool)
		eventID := testutil.InsertSQLiteEvent(t, pool, "Opera", "2026-02-01", 10)

		rec, err := repo.FindIdempotencyRecord(ctx, "key-1")
		require.NoError(t, err)
		assert.Nil(t, rec)

		require.NoError(t, repo.CreateIdempotencyRecord(ctx, domain.IdempotencyRecord{
			Key: "key-1", RequestHash: "abc", EventID: eventID,
		}))

		rec, err = repo.FindIdempotencyRecord(ctx, "key-1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, domain.IdempotencyRecord{Key: "key-1", RequestHash: "abc", EventID: eventID}, *rec)

		err = repo.CreateIdempotencyRecord(ctx, domain.IdempotencyRecord{
			Key: "key-1", RequestHash: "def", EventID: eventID,
		})
		assert.ErrorIs(t, err, domain.ErrIdempotencyConflict)
	})

	t.Run("ListEvents orders by date then id", func(t *testing.T) {
		pool := testutil.NewSQLitePool(t)
		repo := sqlite.NewEventRepository(pool)

		events, err := repo.ListEvents(ctx)
		require.NoError(t, err)
		assert.Empty(t, events)

		late := testutil.InsertSQLiteEvent(t, pool, "Late", "2026-03-01", 1)
		early := testutil.InsertSQLiteEvent(t, pool, "Early", "2026-01-01", 1)
		sameDay := testutil.InsertSQLiteEvent(t, pool, "Also Early", "2026-01-01", 1)

		events, err = repo.ListEvents(ctx)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, []int64{early, sameDay, late}, []int64{events[0].ID, events[1].ID, events[2].ID})
	})

	t.Run("WithTx rolls back every write on error", func(t *testing.T) {
		pool := testutil.NewSQLitePool(t)
		repo := sqlite.NewEventRepository(pool)
		boom := errors.New("boom")

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			id, err := repo.CreateEvent(txCtx, domain.Event{Name: "Rollback", Date: "2026-04-01", Tickets: 3, CreatedAt: createdAt})
			require.NoError(t, err)
			require.NoError(t, repo.AppendAudit(txCtx, domain.AuditEntry{
				Action: domain.AuditActionCreate, EventID: id, Payload: []byte(`{}`), CreatedAt: createdAt,
			}))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		found, err := repo.FindEventByNameDate(ctx, "Rollback", "2026-04-01")
		require.NoError(t, err)
		assert.Nil(t, found)
		assert.Zero(t, testutil.CountSQLiteRows(t, pool, "event_audit", 0))
	})

	t.Run("cancelled context surfaces as store unavailable", func(t *testing.T) {
		pool := testutil.NewSQLitePool(t)
		repo := sqlite.NewEventRepository(pool)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := repo.ListEvents(cancelled)
		assert.Equal(t, domain.KindStoreUnavailable, domain.KindOf(err))
	})
}

package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cimillas/ticket-booking/internal/clock"
	"github.com/cimillas/ticket-booking/internal/domain"
)

type fakeInventoryRepo struct {
	tickets map[int64]int
	audit   []domain.AuditEntry

	storeCalls int
	// skipGuard makes DecrementTickets report no change, as if another
	// writer drained the row after the read.
	skipGuard bool
	readErr   error
}

func newFakeInventoryRepo(tickets map[int64]int) *fakeInventoryRepo {
	return &fakeInventoryRepo{tickets: tickets}
}

func (f *fakeInventoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.storeCalls++
	return fn(ctx)
}

func (f *fakeInventoryRepo) GetTicketsForUpdate(_ context.Context, eventID int64) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	tickets, ok := f.tickets[eventID]
	if !ok {
		return 0, domain.ErrEventNotFound
	}
	return tickets, nil
}

func (f *fakeInventoryRepo) DecrementTickets(_ context.Context, eventID int64, quantity int) (bool, error) {
	if f.skipGuard || f.tickets[eventID] < quantity {
		return false, nil
	}
	f.tickets[eventID] -= quantity
	return true, nil
}

func (f *fakeInventoryRepo) AppendAudit(_ context.Context, entry domain.AuditEntry) error {
	f.audit = append(f.audit, entry)
	return nil
}

func TestInventoryService_Purchase(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 1, 18, 0, 0, 0, time.UTC)

	t.Run("decrements and reports remaining", func(t *testing.T) {
		repo := newFakeInventoryRepo(map[int64]int{1: 2})
		obs := &recordingObserver{}
		svc := NewInventoryService(repo, clock.NewFixed(now), WithPurchaseObserver(obs))

		res, err := svc.Purchase(context.Background(), PurchaseInput{EventID: 1, Quantity: 1, ActorID: "user-9"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.EventID != 1 || res.Remaining != 1 {
			t.Fatalf("unexpected result: %+v", res)
		}
		if repo.tickets[1] != 1 {
			t.Fatalf("expected 1 ticket left, got %d", repo.tickets[1])
		}
		if len(repo.audit) != 1 {
			t.Fatalf("expected 1 audit entry, got %d", len(repo.audit))
		}
		entry := repo.audit[0]
		if entry.Action != domain.AuditActionPurchase || entry.ActorID != "user-9" || !entry.CreatedAt.Equal(now) {
			t.Fatalf("unexpected audit entry: %+v", entry)
		}
		if string(entry.Payload) != `{"tickets":1,"remaining":1}` {
			t.Fatalf("unexpected audit payload %s", entry.Payload)
		}
		if len(obs.purchases) != 1 || obs.purchases[0] != OutcomePurchased {
			t.Fatalf("unexpected outcomes %v", obs.purchases)
		}
	})

	t.Run("multi ticket purchase", func(t *testing.T) {
		repo := newFakeInventoryRepo(map[int64]int{1: 5})
		svc := NewInventoryService(repo, clock.NewFixed(now))

		res, err := svc.Purchase(context.Background(), PurchaseInput{EventID: 1, Quantity: 5})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Remaining != 0 {
			t.Fatalf("expected 0 remaining, got %d", res.Remaining)
		}
	})

	t.Run("sold out", func(t *testing.T) {
		repo := newFakeInventoryRepo(map[int64]int{1: 0})
		svc := NewInventoryService(repo, clock.NewFixed(now))

		_, err := svc.Purchase(context.Background(), PurchaseInput{EventID: 1, Quantity: 1})
		var insufficient *domain.InsufficientInventoryError
		if !errors.As(err, &insufficient) {
			t.Fatalf("expected InsufficientInventoryError, got %v", err)
		}
		if insufficient.Remaining != 0 || insufficient.Requested != 1 {
			t.Fatalf("unexpected details: %+v", insufficient)
		}
		if len(repo.audit) != 0 {
			t.Fatalf("expected no audit entry, got %d", len(repo.audit))
		}
	})

	t.Run("not enough for requested quantity", func(t *testing.T) {
		repo := newFakeInventoryRepo(map[int64]int{1: 2})
		svc := NewInventoryService(repo, clock.NewFixed(now))

		_, err := svc.Purchase(context.Background(), PurchaseInput{EventID: 1, Quantity: 3})
		if !errors.Is(err, domain.ErrInsufficientInventory) {
			t.Fatalf("expected ErrInsufficientInventory, got %v", err)
		}
		if repo.tickets[1] != 2 {
			t.Fatalf("expected inventory unchanged, got %d", repo.tickets[1])
		}
	})

	t.Run("guarded update rejects lost race", func(t *testing.T) {
		repo := newFakeInventoryRepo(map[int64]int{1: 1})
		repo.skipGuard = true
		obs := &recordingObserver{}
		svc := NewInventoryService(repo, clock.NewFixed(now), WithPurchaseObserver(obs))

		_, err := svc.Purchase(context.Background(), PurchaseInput{EventID: 1, Quantity: 1})
		if !errors.Is(err, domain.ErrInsufficientInventory) {
			t.Fatalf("expected ErrInsufficientInventory, got %v", err)
		}
		if len(repo.audit) != 0 {
			t.Fatalf("expected no audit entry, got %d", len(repo.audit))
		}
		if obs.purchases[0] != OutcomeInsufficient {
			t.Fatalf("unexpected outcomes %v", obs.purchases)
		}
	})

	t.Run("missing event", func(t *testing.T) {
		repo := newFakeInventoryRepo(map[int64]int{})
		svc := NewInventoryService(repo, clock.NewFixed(now))

		_, err := svc.Purchase(context.Background(), PurchaseInput{EventID: 42, Quantity: 1})
		if !errors.Is(err, domain.ErrEventNotFound) {
			t.Fatalf("expected ErrEventNotFound, got %v", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		repo := newFakeInventoryRepo(map[int64]int{1: 1})
		repo.readErr = domain.StoreFailure("get tickets", errors.New("database is locked"))
		svc := NewInventoryService(repo, clock.NewFixed(now))

		_, err := svc.Purchase(context.Background(), PurchaseInput{EventID: 1, Quantity: 1})
		if domain.KindOf(err) != domain.KindStoreUnavailable {
			t.Fatalf("expected store unavailable, got %v", err)
		}
	})

	t.Run("invalid input never reaches the store", func(t *testing.T) {
		repo := newFakeInventoryRepo(map[int64]int{1: 1})
		svc := NewInventoryService(repo, clock.NewFixed(now))

		if _, err := svc.Purchase(context.Background(), PurchaseInput{EventID: 0, Quantity: 1}); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
		if _, err := svc.Purchase(context.Background(), PurchaseInput{EventID: 1, Quantity: 0}); err != domain.ErrInvalidQuantity {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
		if repo.storeCalls != 0 {
			t.Fatalf("expected no store access, got %d", repo.storeCalls)
		}
	})
}

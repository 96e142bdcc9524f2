package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cimillas/ticket-booking/internal/clock"
	"github.com/cimillas/ticket-booking/internal/domain"
)

type InventoryRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// GetTicketsForUpdate reads remaining inventory and holds the write
	// lock on the event until the transaction ends.
	GetTicketsForUpdate(ctx context.Context, eventID int64) (int, error)
	// DecrementTickets applies the guarded update and reports whether a
	// row changed.
	DecrementTickets(ctx context.Context, eventID int64, quantity int) (bool, error)
	AppendAudit(ctx context.Context, entry domain.AuditEntry) error
}

// PurchaseOutcomeObserver is notified of every purchase attempt's outcome.
type PurchaseOutcomeObserver interface {
	PurchaseOutcome(outcome string, quantity int)
}

const (
	OutcomePurchased    = "purchased"
	OutcomeNotFound     = "not_found"
	OutcomeInsufficient = "insufficient"
)

type InventoryService struct {
	repo     InventoryRepository
	clock    clock.Clock
	observer PurchaseOutcomeObserver
}

type InventoryServiceOption func(*InventoryService)

// WithPurchaseObserver reports purchase outcomes, typically to metrics.
func WithPurchaseObserver(o PurchaseOutcomeObserver) InventoryServiceOption {
	return func(s *InventoryService) {
		if o != nil {
			s.observer = o
		}
	}
}

func NewInventoryService(repo InventoryRepository, clk clock.Clock, opts ...InventoryServiceOption) *InventoryService {
	svc := &InventoryService{
		repo:     repo,
		clock:    clk,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type PurchaseInput struct {
	EventID  int64
	Quantity int
	ActorID  string
	SourceIP string
}

type PurchaseResult struct {
	EventID   int64
	Remaining int
}

// Purchase atomically takes Quantity tickets from the event. The read and
// the guarded decrement run in one exclusive transaction, so concurrent
// purchases never sell more than the event holds.
func (s *InventoryService) Purchase(ctx context.Context, in PurchaseInput) (PurchaseResult, error) {
	if in.EventID <= 0 {
		s.observer.PurchaseOutcome(OutcomeInvalid, in.Quantity)
		return PurchaseResult{}, domain.ErrInvalidID
	}
	if in.Quantity <= 0 {
		s.observer.PurchaseOutcome(OutcomeInvalid, in.Quantity)
		return PurchaseResult{}, domain.ErrInvalidQuantity
	}

	var result PurchaseResult
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		before, err := s.repo.GetTicketsForUpdate(txCtx, in.EventID)
		if err != nil {
			return err
		}
		if before < in.Quantity {
			return &domain.InsufficientInventoryError{
				EventID:   in.EventID,
				Requested: in.Quantity,
				Remaining: before,
			}
		}

		changed, err := s.repo.DecrementTickets(txCtx, in.EventID, in.Quantity)
		if err != nil {
			return err
		}
		if !changed {
			return &domain.InsufficientInventoryError{
				EventID:   in.EventID,
				Requested: in.Quantity,
				Remaining: before,
			}
		}

		remaining := before - in.Quantity
		payload, err := json.Marshal(purchaseAudit{Tickets: in.Quantity, Remaining: remaining})
		if err != nil {
			return fmt.Errorf("encode purchase audit: %w", err)
		}
		if err := s.repo.AppendAudit(txCtx, domain.AuditEntry{
			ActorID:   in.ActorID,
			Action:    domain.AuditActionPurchase,
			EventID:   in.EventID,
			Payload:   payload,
			SourceIP:  in.SourceIP,
			CreatedAt: s.clock.Now(),
		}); err != nil {
			return err
		}

		result = PurchaseResult{EventID: in.EventID, Remaining: remaining}
		return nil
	})

	s.observer.PurchaseOutcome(purchaseOutcome(err), in.Quantity)
	if err != nil {
		return PurchaseResult{}, err
	}
	return result, nil
}

type purchaseAudit struct {
	Tickets   int `json:"tickets"`
	Remaining int `json:"remaining"`
}

func purchaseOutcome(err error) string {
	if err == nil {
		return OutcomePurchased
	}
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return OutcomeNotFound
	case domain.KindInsufficientInventory:
		return OutcomeInsufficient
	case domain.KindInvalidPayload:
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

type nopObserver struct{}

func (nopObserver) CreateOutcome(string)        {}
func (nopObserver) PurchaseOutcome(string, int) {}

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/cimillas/ticket-booking/internal/clock"
	"github.com/cimillas/ticket-booking/internal/domain"
)

type EventRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindIdempotencyRecord(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	GetEvent(ctx context.Context, id int64) (domain.Event, error)
	FindEventByNameDate(ctx context.Context, name, date string) (*domain.Event, error)
	CreateEvent(ctx context.Context, event domain.Event) (int64, error)
	CreateIdempotencyRecord(ctx context.Context, rec domain.IdempotencyRecord) error
	AppendAudit(ctx context.Context, entry domain.AuditEntry) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
}

// CreateOutcomeObserver is notified of every create attempt's outcome.
type CreateOutcomeObserver interface {
	CreateOutcome(outcome string)
}

const (
	OutcomeCreated             = "created"
	OutcomeReplayed            = "replayed"
	OutcomeDuplicate           = "duplicate"
	OutcomeIdempotencyConflict = "idempotency_conflict"
	OutcomeInvalid             = "invalid"
	OutcomeError               = "error"
)

type AdminService struct {
	repo     EventRepository
	clock    clock.Clock
	observer CreateOutcomeObserver
}

type AdminServiceOption func(*AdminService)

// WithCreateObserver reports create outcomes, typically to metrics.
func WithCreateObserver(o CreateOutcomeObserver) AdminServiceOption {
	return func(s *AdminService) {
		if o != nil {
			s.observer = o
		}
	}
}

func NewAdminService(repo EventRepository, clk clock.Clock, opts ...AdminServiceOption) *AdminService {
	svc := &AdminService{
		repo:     repo,
		clock:    clk,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CreateEventInput struct {
	Name        string `validate:"min=3,max=120"`
	Date        string `validate:"required,datetime=2006-01-02"`
	Tickets     *int   `validate:"required,gte=0"`
	Location    string `validate:"max=160"`
	Description string `validate:"max=2000"`

	IdempotencyKey string `validate:"-"`
	ActorID        string `validate:"-"`
	SourceIP       string `validate:"-"`
}

type CreateEventResult struct {
	Event    domain.Event
	Replayed bool
}

// CreateEvent validates and persists a new event. A request carrying an
// idempotency key already bound to the same payload returns the original
// event instead of inserting again.
func (s *AdminService) CreateEvent(ctx context.Context, in CreateEventInput) (CreateEventResult, error) {
	if err := validateCreateEvent(in); err != nil {
		s.observer.CreateOutcome(OutcomeInvalid)
		return CreateEventResult{}, err
	}

	payload := newEventPayload(in)
	encoded, err := payload.encode()
	if err != nil {
		s.observer.CreateOutcome(OutcomeError)
		return CreateEventResult{}, fmt.Errorf("encode payload: %w", err)
	}
	hash := requestHash(encoded)

	var result CreateEventResult
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		replay, err := s.lookupReplay(txCtx, in.IdempotencyKey, hash)
		if err != nil {
			return err
		}
		if replay != nil {
			result = CreateEventResult{Event: *replay, Replayed: true}
			return nil
		}

		now := s.clock.Now()
		event := domain.Event{
			Name:        payload.Name,
			Date:        payload.Date,
			Tickets:     payload.Tickets,
			Location:    payload.Location,
			Description: payload.Description,
			CreatedBy:   in.ActorID,
			CreatedAt:   now,
		}
		id, err := s.repo.CreateEvent(txCtx, event)
		if err != nil {
			return err
		}
		event.ID = id

		if in.IdempotencyKey != "" {
			if err := s.repo.CreateIdempotencyRecord(txCtx, domain.IdempotencyRecord{
				Key:         in.IdempotencyKey,
				RequestHash: hash,
				EventID:     id,
			}); err != nil {
				return err
			}
		}

		if err := s.repo.AppendAudit(txCtx, domain.AuditEntry{
			ActorID:   in.ActorID,
			Action:    domain.AuditActionCreate,
			EventID:   id,
			Payload:   encoded,
			SourceIP:  in.SourceIP,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		result = CreateEventResult{Event: event}
		return nil
	})
	if err != nil {
		result, err = s.resolveFailedCreate(ctx, in, hash, err)
	}

	s.observer.CreateOutcome(createOutcome(result, err))
	return result, err
}

// ListEvents returns every event ordered by date, then id.
func (s *AdminService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx)
}

func (s *AdminService) lookupReplay(ctx context.Context, key, hash string) (*domain.Event, error) {
	if key == "" {
		return nil, nil
	}
	rec, err := s.repo.FindIdempotencyRecord(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if !rec.Matches(hash) {
		return nil, domain.ErrIdempotencyConflict
	}
	event, err := s.repo.GetEvent(ctx, rec.EventID)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// resolveFailedCreate runs after the create transaction rolled back. A
// concurrent request with the same key may have won the race, in which
// case this request is a replay of it.
func (s *AdminService) resolveFailedCreate(ctx context.Context, in CreateEventInput, hash string, cause error) (CreateEventResult, error) {
	kind := domain.KindOf(cause)
	if kind != domain.KindDuplicateEvent && kind != domain.KindIdempotencyConflict {
		return CreateEventResult{}, cause
	}

	if in.IdempotencyKey != "" {
		replay, err := s.lookupReplay(ctx, in.IdempotencyKey, hash)
		if err != nil {
			return CreateEventResult{}, err
		}
		if replay != nil {
			return CreateEventResult{Event: *replay, Replayed: true}, nil
		}
	}

	if kind == domain.KindIdempotencyConflict {
		return CreateEventResult{}, cause
	}

	var dup *domain.DuplicateEventError
	if errors.As(cause, &dup) && dup.Existing != nil {
		return CreateEventResult{}, dup
	}
	existing, err := s.repo.FindEventByNameDate(ctx, in.Name, in.Date)
	if err != nil {
		return CreateEventResult{}, err
	}
	return CreateEventResult{}, &domain.DuplicateEventError{Existing: existing}
}

func createOutcome(result CreateEventResult, err error) string {
	if err == nil {
		if result.Replayed {
			return OutcomeReplayed
		}
		return OutcomeCreated
	}
	switch domain.KindOf(err) {
	case domain.KindDuplicateEvent:
		return OutcomeDuplicate
	case domain.KindIdempotencyConflict:
		return OutcomeIdempotencyConflict
	case domain.KindInvalidPayload:
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

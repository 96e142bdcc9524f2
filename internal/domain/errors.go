package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPayload        = errors.New("invalid payload")
	ErrInvalidID             = errors.New("invalid event id")
	ErrInvalidQuantity       = errors.New("invalid ticket quantity")
	ErrEventNotFound         = errors.New("event not found")
	ErrDuplicateEvent        = errors.New("event already exists for that name and date")
	ErrIdempotencyConflict   = errors.New("idempotency key reused with a different payload")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrStoreUnavailable      = errors.New("store unavailable")
)

// Kind is the closed set of failure categories callers branch on.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidPayload
	KindNotFound
	KindDuplicateEvent
	KindIdempotencyConflict
	KindInsufficientInventory
	KindStoreUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidPayload:
		return "invalid_payload"
	case KindNotFound:
		return "not_found"
	case KindDuplicateEvent:
		return "duplicate_event"
	case KindIdempotencyConflict:
		return "idempotency_conflict"
	case KindInsufficientInventory:
		return "insufficient_inventory"
	case KindStoreUnavailable:
		return "store_unavailable"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Errors that carry no domain sentinel are
// KindUnknown and should be treated as server failures.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidPayload),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidQuantity):
		return KindInvalidPayload
	case errors.Is(err, ErrEventNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicateEvent):
		return KindDuplicateEvent
	case errors.Is(err, ErrIdempotencyConflict):
		return KindIdempotencyConflict
	case errors.Is(err, ErrInsufficientInventory):
		return KindInsufficientInventory
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	default:
		return KindUnknown
	}
}

// StoreFailure wraps a driver or I/O error so it classifies as
// KindStoreUnavailable while keeping the cause for logs.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field string
	Rule  string
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidPayload.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" ("+f.Rule+")")
	}
	return ErrInvalidPayload.Error() + ": " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidPayload }

// DuplicateEventError carries the event that already owns the
// (name, date) pair, when it could be read back.
type DuplicateEventError struct {
	Existing *Event
}

func (e *DuplicateEventError) Error() string { return ErrDuplicateEvent.Error() }

func (e *DuplicateEventError) Unwrap() error { return ErrDuplicateEvent }

// InsufficientInventoryError reports how many tickets were asked for and
// how many remained when the purchase was rejected.
type InsufficientInventoryError struct {
	EventID   int64
	Requested int
	Remaining int
}

func (e *InsufficientInventoryError) Error() string {
	if e.Remaining <= 0 {
		return "event is sold out"
	}
	return fmt.Sprintf("only %d tickets remaining, %d requested", e.Remaining, e.Requested)
}

func (e *InsufficientInventoryError) Unwrap() error { return ErrInsufficientInventory }

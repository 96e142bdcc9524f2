package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cimillas/ticket-booking/internal/app"
	"github.com/cimillas/ticket-booking/internal/domain"
)

const maxBodyBytes = 1 << 20

// EventCreator is the minimal interface needed to create events.
type EventCreator interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (app.CreateEventResult, error)
}

// EventLister is the minimal interface needed to list events.
type EventLister interface {
	ListEvents(ctx context.Context) ([]domain.Event, error)
}

// HandleCreateEvent returns an HTTP handler for admin event creation. An
// Idempotency-Key header makes retries of the same payload safe.
func HandleCreateEvent(svc EventCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createEventRequest
		if err := decodeStrict(http.MaxBytesReader(w, r.Body, maxBodyBytes), &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		tickets, err := req.tickets()
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		var actorID string
		if p, ok := principalFromRequest(r); ok {
			actorID = p.ID
		}

		result, err := svc.CreateEvent(r.Context(), app.CreateEventInput{
			Name:           req.Name,
			Date:           req.Date,
			Tickets:        tickets,
			Location:       req.Location,
			Description:    req.Description,
			IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
			ActorID:        actorID,
			SourceIP:       sourceIP(r),
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		msg := "Event created"
		if result.Replayed {
			msg = "Event created (replay)"
		}
		writeJSON(w, http.StatusCreated, createEventResponse{
			Message: msg,
			Event:   newEventResponse(result.Event),
		})
	}
}

// HandleListEvents returns every event ordered by date.
func HandleListEvents(svc EventLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := svc.ListEvents(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp := listEventsResponse{Events: make([]eventResponse, 0, len(events))}
		for _, event := range events {
			resp.Events = append(resp.Events, newEventResponse(event))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type createEventRequest struct {
	Name        string       `json:"name"`
	Date        string       `json:"date"`
	Tickets     *json.Number `json:"tickets"`
	Location    string       `json:"location,omitempty"`
	Description string       `json:"description,omitempty"`
}

// tickets accepts numbers and numeric strings; anything that is not a
// whole number fails validation on the tickets field.
func (r createEventRequest) tickets() (*int, error) {
	if r.Tickets == nil {
		return nil, nil
	}
	v, ok := parseCount(*r.Tickets)
	if !ok {
		return nil, &domain.ValidationError{Fields: []domain.FieldError{{Field: "tickets", Rule: "integer"}}}
	}
	return &v, nil
}

type eventResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Date        string    `json:"date"`
	Tickets     int       `json:"tickets"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Name:        e.Name,
		Date:        e.Date,
		Tickets:     e.Tickets,
		Location:    e.Location,
		Description: e.Description,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

type createEventResponse struct {
	Message string        `json:"message"`
	Event   eventResponse `json:"event"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

func sourceIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cimillas/ticket-booking/internal/domain"
)

const (
	codeNotFound              = "not_found"
	codeInvalidRequestBody    = "invalid_request_body"
	codeInvalidPayload        = "invalid_payload"
	codeInvalidID             = "invalid_id"
	codeInvalidQuantity       = "invalid_quantity"
	codeEventNotFound         = "event_not_found"
	codeDuplicateEvent        = "duplicate_event"
	codeIdempotencyConflict   = "idempotency_conflict"
	codeInsufficientInventory = "insufficient_inventory"
	codeUnauthorized          = "unauthorized"
	codeTokenExpired          = "token_expired"
	codeForbidden             = "forbidden"
	codeStoreUnavailable      = "store_unavailable"
	codeInternalError         = "internal_error"
)

type errorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code"`
	Details   []fieldDetail  `json:"details,omitempty"`
	Event     *eventResponse `json:"event,omitempty"`
	Remaining *int           `json:"remaining,omitempty"`
}

type fieldDetail struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps a service error to its response. Storage
// failures are logged with their cause and reported without it.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch domain.KindOf(err) {
	case domain.KindInvalidPayload:
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			resp := errorResponse{Error: "invalid payload", Code: codeInvalidPayload}
			for _, f := range verr.Fields {
				resp.Details = append(resp.Details, fieldDetail{Field: f.Field, Rule: f.Rule})
			}
			writeErrorResponse(w, http.StatusBadRequest, resp)
		case errors.Is(err, domain.ErrInvalidID):
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
		case errors.Is(err, domain.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, codeInvalidQuantity, domain.ErrInvalidQuantity.Error())
		default:
			writeError(w, http.StatusBadRequest, codeInvalidPayload, "invalid payload")
		}
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, codeEventNotFound, domain.ErrEventNotFound.Error())
	case domain.KindDuplicateEvent:
		resp := errorResponse{Error: domain.ErrDuplicateEvent.Error(), Code: codeDuplicateEvent}
		var dup *domain.DuplicateEventError
		if errors.As(err, &dup) && dup.Existing != nil {
			ev := newEventResponse(*dup.Existing)
			resp.Event = &ev
		}
		writeErrorResponse(w, http.StatusConflict, resp)
	case domain.KindIdempotencyConflict:
		writeError(w, http.StatusConflict, codeIdempotencyConflict, domain.ErrIdempotencyConflict.Error())
	case domain.KindInsufficientInventory:
		resp := errorResponse{Error: "event is sold out", Code: codeInsufficientInventory}
		var insufficient *domain.InsufficientInventoryError
		if errors.As(err, &insufficient) {
			remaining := max(insufficient.Remaining, 0)
			resp.Error = insufficient.Error()
			resp.Remaining = &remaining
		}
		writeErrorResponse(w, http.StatusConflict, resp)
	case domain.KindStoreUnavailable:
		loggerFromContext(r.Context()).Error("store failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeStoreUnavailable, "store unavailable")
	default:
		loggerFromContext(r.Context()).Error("unhandled service error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

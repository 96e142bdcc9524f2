package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/cimillas/ticket-booking/internal/app"
	"github.com/cimillas/ticket-booking/internal/domain"
)

// Purchaser is the minimal interface needed to buy tickets.
type Purchaser interface {
	Purchase(ctx context.Context, in app.PurchaseInput) (app.PurchaseResult, error)
}

// HandlePurchase returns an HTTP handler for POST /events/{id}/purchase.
// The body is optional; without one a single ticket is bought.
func HandlePurchase(svc Purchaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil || eventID <= 0 {
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
			return
		}

		quantity, ok := decodePurchaseQuantity(w, r)
		if !ok {
			return
		}

		var actorID string
		if p, ok := principalFromRequest(r); ok {
			actorID = p.ID
		}

		result, err := svc.Purchase(r.Context(), app.PurchaseInput{
			EventID:  eventID,
			Quantity: quantity,
			ActorID:  actorID,
			SourceIP: sourceIP(r),
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, purchaseResponse{
			Message:   "Purchase successful",
			EventID:   result.EventID,
			Remaining: result.Remaining,
		})
	}
}

type purchaseRequest struct {
	Tickets *json.Number `json:"tickets"`
}

type purchaseResponse struct {
	Message   string `json:"message"`
	EventID   int64  `json:"eventId"`
	Remaining int    `json:"remaining"`
}

func decodePurchaseQuantity(w http.ResponseWriter, r *http.Request) (int, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return 0, false
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return 1, true
	}

	var req purchaseRequest
	if err := decodeStrict(bytes.NewReader(body), &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return 0, false
	}
	if req.Tickets == nil {
		return 1, true
	}
	quantity, ok := parseCount(*req.Tickets)
	if !ok || quantity <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, domain.ErrInvalidQuantity.Error())
		return 0, false
	}
	return quantity, true
}

package app

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zeebo/blake3"

	"github.com/cimillas/ticket-booking/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// eventPayload is the normalized form of a create request. Its JSON
// encoding is what gets hashed for idempotency and stored in the audit log,
// so field order and omission rules must stay stable.
type eventPayload struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Tickets     int    `json:"tickets"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

func newEventPayload(in CreateEventInput) eventPayload {
	p := eventPayload{
		Name:        in.Name,
		Date:        in.Date,
		Location:    in.Location,
		Description: in.Description,
	}
	if in.Tickets != nil {
		p.Tickets = *in.Tickets
	}
	return p
}

func (p eventPayload) encode() ([]byte, error) {
	return json.Marshal(p)
}

func requestHash(encoded []byte) string {
	sum := blake3.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

func validateCreateEvent(in CreateEventInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &domain.ValidationError{}
	}
	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldError{
			Field: strings.ToLower(fe.Field()),
			Rule:  fe.Tag(),
		})
	}
	return &domain.ValidationError{Fields: fields}
}

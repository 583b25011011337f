package models

import (
	"time"

	id "covergate/pkg/domain"
	dErrors "covergate/pkg/domain-errors"
)

// Status tracks how far the sales team has taken a consultation request.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusCompleted Status = "completed"
)

// Statuses lists every consultation status.
var Statuses = []Status{StatusNew, StatusContacted, StatusCompleted}

// ParseStatus validates a status value at the trust boundary.
func ParseStatus(s string) (Status, error) {
	for _, known := range Statuses {
		if Status(s) == known {
			return known, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown consultation status %q", s)
}

// ConsultationRequest is a contact request left by a prospective customer.
// It arrives unauthenticated, so the customer fields are free text and the
// request carries no account reference.
type ConsultationRequest struct {
	ID            id.ConsultationID `json:"id"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	// ProductID is optional; the nil UUID means the customer asked about no
	// product in particular.
	ProductID id.ProductID `json:"product_id"`
	Note      string       `json:"note,omitempty"`
	Status    Status       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

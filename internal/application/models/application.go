package models

import (
	"time"

	id "covergate/pkg/domain"
	dErrors "covergate/pkg/domain-errors"
)

// Status is the admin-driven application status. Transitions are
// deliberately unconstrained: any value may follow any value, because the
// review workflow is a human conversation, not a state machine. The only
// rule the system enforces is equality-check-then-notify (ShouldNotify).
type Status string

const (
	StatusPending       Status = "pending"
	StatusNeedsMoreInfo Status = "needs_more_info"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
)

// Statuses lists every application status, in review order.
var Statuses = []Status{StatusPending, StatusNeedsMoreInfo, StatusApproved, StatusRejected}

// ParseStatus validates a status value at the trust boundary.
func ParseStatus(s string) (Status, error) {
	for _, known := range Statuses {
		if Status(s) == known {
			return known, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown application status %q", s)
}

// Label is the human-readable form used in notification messages.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending review"
	case StatusNeedsMoreInfo:
		return "Needs more information"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	default:
		return string(s)
	}
}

// ShouldNotify reports whether a status update warrants a notification.
// Repeated "set to same status" calls stay silent so admins can re-submit a
// decision without spamming the applicant.
func ShouldNotify(old, updated Status) bool {
	return old != updated
}

// Document is an uploaded file descriptor. Storage itself is external; the
// application only carries the name and retrieval URL.
type Document struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Application is a customer's submitted request to purchase an insurance
// product, pending admin decision.
type Application struct {
	ID          id.ApplicationID  `json:"id"`
	ApplicantID id.UserID         `json:"applicant_id"`
	ProductID   id.ProductID      `json:"product_id"`
	FormData    map[string]string `json:"form_data"`
	Documents   []Document        `json:"documents"`
	Status      Status            `json:"status"`
	// Hidden is the applicant's soft delete: hidden applications drop out
	// of the applicant's own listing but stay visible to admins.
	Hidden    bool      `json:"hidden"`
	AdminNote string    `json:"admin_note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	id "covergate/pkg/domain"
	dErrors "covergate/pkg/domain-errors"
)

// Status is the contract lifecycle status.
//
// Payment moves PendingPayment to Active; an approved cancellation moves
// Active to Cancelled. Expired is a declared terminal state with no producer
// in this service; reaching it requires an external time-based sweep.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusActive         Status = "active"
	StatusExpired        Status = "expired"
	StatusPaymentFailed  Status = "payment_failed"
	StatusCancelled      Status = "cancelled"
)

// Statuses lists every contract status.
var Statuses = []Status{StatusPendingPayment, StatusActive, StatusExpired, StatusPaymentFailed, StatusCancelled}

// ParseStatus validates a status value at the trust boundary. Only the
// admin override endpoint accepts raw statuses; the guarded transitions set
// them internally.
func ParseStatus(s string) (Status, error) {
	for _, known := range Statuses {
		if Status(s) == known {
			return known, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown contract status %q", s)
}

// DecisionStatus is the review status shared by cancellation requests and
// claims.
type DecisionStatus string

const (
	DecisionPending  DecisionStatus = "pending"
	DecisionApproved DecisionStatus = "approved"
	DecisionRejected DecisionStatus = "rejected"
)

// ParseDecisionStatus validates a review status value.
func ParseDecisionStatus(s string) (DecisionStatus, error) {
	switch DecisionStatus(s) {
	case DecisionPending, DecisionApproved, DecisionRejected:
		return DecisionStatus(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown review status %q", s)
	}
}

// Cancellation is the holder-initiated termination request. A contract has
// at most one; each new request overwrites the record. Terminal decisions
// clear Requested so a holder may re-request after a rejection.
type Cancellation struct {
	Requested     bool           `json:"requested"`
	Reason        string         `json:"reason"`
	RequestedAt   time.Time      `json:"requested_at"`
	Status        DecisionStatus `json:"status"`
	AdminResponse string         `json:"admin_response,omitempty"`
}

// Claim is one request to draw on the coverage. Claims are appended, never
// removed; the list order is the source of truth and each claim is
// addressable by its generated ID.
type Claim struct {
	ID            id.ClaimID     `json:"id"`
	RequestDate   time.Time      `json:"request_date"`
	Reason        string         `json:"reason"`
	Amount        int64          `json:"amount,omitempty"`
	Attachments   []string       `json:"attachments,omitempty"`
	Status        DecisionStatus `json:"status"`
	AdminResponse string         `json:"admin_response,omitempty"`
}

// PaymentDetails is an opaque record populated by whichever payment path
// fires: the manual confirmation, the gateway callback, or the status poll.
type PaymentDetails map[string]any

// Contract is the binding agreement minted from exactly one approved
// application.
type Contract struct {
	ID     id.ContractID `json:"id"`
	UserID id.UserID     `json:"user_id"`
	// ProductID is a non-owning reference; the premium is frozen onto the
	// contract at creation, so later catalog price changes do not touch it.
	ProductID id.ProductID `json:"product_id"`
	// ApplicationID is unique across contracts: at most one contract per
	// application.
	ApplicationID  id.ApplicationID `json:"application_id"`
	ContractNumber string           `json:"contract_number"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        time.Time        `json:"end_date"`
	Premium        int64            `json:"premium"`
	Status         Status           `json:"status"`
	PaymentDetails PaymentDetails   `json:"payment_details"`
	Cancellation   *Cancellation    `json:"cancellation,omitempty"`
	Claims         []Claim          `json:"claims"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NewContractNumber generates a collision-free contract number. The HD-
// prefix is kept from the legacy numbering so downstream systems keep
// recognizing the format.
func NewContractNumber() string {
	return "HD-" + uuid.NewString()
}

// ClaimByID finds a claim by its sub-identifier. Returns nil when absent.
func (c *Contract) ClaimByID(claimID id.ClaimID) *Claim {
	for i := range c.Claims {
		if c.Claims[i].ID == claimID {
			return &c.Claims[i]
		}
	}
	return nil
}

// HasPendingCancellation reports whether a cancellation request is awaiting
// review. The check is advisory under concurrency (see the service layer);
// it is not a storage-enforced invariant.
func (c *Contract) HasPendingCancellation() bool {
	return c.Cancellation != nil && c.Cancellation.Requested && c.Cancellation.Status == DecisionPending
}

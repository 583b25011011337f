// Package domain defines typed identifiers shared across the module. Each
// entity gets its own UUID-backed type so a contract ID can never be passed
// where an application ID is expected; the compiler enforces it.
package domain

import (
	"github.com/google/uuid"

	dErrors "covergate/pkg/domain-errors"
)

type (
	// UserID identifies an account. Identity itself is managed by an
	// external collaborator; we only carry its ID.
	UserID uuid.UUID
	// ProductID identifies an insurance product in the catalog.
	ProductID uuid.UUID
	// ApplicationID identifies a submitted insurance application.
	ApplicationID uuid.UUID
	// ContractID identifies a contract minted from an approved application.
	ContractID uuid.UUID
	// ClaimID identifies one claim sub-record within a contract.
	ClaimID uuid.UUID
	// NotificationID identifies a user notification.
	NotificationID uuid.UUID
	// ConsultationID identifies a consultation request left by a
	// prospective customer.
	ConsultationID uuid.UUID
)

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id ProductID) String() string      { return uuid.UUID(id).String() }
func (id ApplicationID) String() string  { return uuid.UUID(id).String() }
func (id ContractID) String() string     { return uuid.UUID(id).String() }
func (id ClaimID) String() string        { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id ConsultationID) String() string { return uuid.UUID(id).String() }

// The marshal and unmarshal methods delegate to uuid.UUID so the IDs render
// as canonical UUID strings in JSON and JSONB columns. Defined types do not
// inherit the underlying type's methods, so each type carries its own pair.

func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id ProductID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id ApplicationID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id ContractID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id ClaimID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id NotificationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ConsultationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ProductID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ApplicationID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ContractID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ClaimID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *NotificationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ConsultationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ProductID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ContractID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ClaimID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ConsultationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
// Rejecting at the trust boundary keeps garbage out of stores and logs.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	return UserID(u), err
}

func ParseProductID(s string) (ProductID, error) {
	u, err := parseUUID(s)
	return ProductID(u), err
}

func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s)
	return ApplicationID(u), err
}

func ParseContractID(s string) (ContractID, error) {
	u, err := parseUUID(s)
	return ContractID(u), err
}

func ParseClaimID(s string) (ClaimID, error) {
	u, err := parseUUID(s)
	return ClaimID(u), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s)
	return NotificationID(u), err
}

func ParseConsultationID(s string) (ConsultationID, error) {
	u, err := parseUUID(s)
	return ConsultationID(u), err
}

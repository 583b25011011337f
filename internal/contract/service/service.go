// Package service implements the Contract Lifecycle: minting from approved
// applications, payment confirmation, cancellation requests and reviews,
// claims, and the audited admin override.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appmodels "covergate/internal/application/models"
	"covergate/internal/audit"
	"covergate/internal/contract/models"
	"covergate/internal/platform/metrics"
	productmodels "covergate/internal/product/models"
	id "covergate/pkg/domain"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/platform/sentinel"
	"covergate/pkg/requestcontext"
)

// Store persists contracts.
type Store interface {
	// Create inserts a new contract. Returns sentinel.ErrConflict when a
	// contract already exists for the same application.
	Create(ctx context.Context, contract *models.Contract) error
	Save(ctx context.Context, contract *models.Contract) error
	FindByID(ctx context.Context, contractID id.ContractID) (*models.Contract, error)
	FindByApplication(ctx context.Context, applicationID id.ApplicationID) (*models.Contract, error)
	FindByNumber(ctx context.Context, contractNumber string) (*models.Contract, error)
	Delete(ctx context.Context, contractID id.ContractID) error
	// ListAll returns every contract, newest first.
	ListAll(ctx context.Context) ([]*models.Contract, error)
	// ListByUser returns the holder's contracts, newest first.
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Contract, error)
}

// Applications is the read boundary to the application lifecycle.
type Applications interface {
	Get(ctx context.Context, applicationID id.ApplicationID) (*appmodels.Application, error)
}

// ProductCatalog resolves products for premium freezing and notification
// text.
type ProductCatalog interface {
	FindByID(ctx context.Context, productID id.ProductID) (*productmodels.Product, error)
}

// Notifier is the fire-and-forget notification emitter.
type Notifier interface {
	Emit(ctx context.Context, userID id.UserID, message, link string)
}

// Service orchestrates the contract lifecycle.
type Service struct {
	contracts    Store
	applications Applications
	products     ProductCatalog
	notifier     Notifier
	auditor      audit.Publisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

func New(contracts Store, applications Applications, products ProductCatalog, notifier Notifier, auditor audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		contracts:    contracts,
		applications: applications,
		products:     products,
		notifier:     notifier,
		auditor:      auditor,
		metrics:      m,
		logger:       logger,
	}
}

// coverageTerm is the fixed contract duration.
const coverageTerm = 365 * 24 * time.Hour

// Create mints a contract from an approved application. Exactly one contract
// per application: a second attempt fails with a conflict regardless of the
// first contract's status. The premium is frozen from the current catalog
// price; the coverage window starts now and runs one year.
func (s *Service) Create(ctx context.Context, applicationID id.ApplicationID) (*models.Contract, error) {
	app, err := s.applications.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != appmodels.StatusApproved {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "application is %q, only approved applications can be converted", app.Status)
	}

	if _, err := s.contracts.FindByApplication(ctx, applicationID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "a contract already exists for this application")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing contracts")
	}

	product, err := s.products.FindByID(ctx, app.ProductID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up product")
	}

	now := requestcontext.Now(ctx)
	contract := &models.Contract{
		ID:             id.ContractID(uuid.New()),
		UserID:         app.ApplicantID,
		ProductID:      app.ProductID,
		ApplicationID:  applicationID,
		ContractNumber: models.NewContractNumber(),
		StartDate:      now,
		EndDate:        now.Add(coverageTerm),
		Premium:        product.Price,
		Status:         models.StatusPendingPayment,
		PaymentDetails: models.PaymentDetails{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.contracts.Create(ctx, contract); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a contract already exists for this application")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create contract")
	}

	if s.metrics != nil {
		s.metrics.ContractsCreated.Inc()
	}
	s.notifier.Emit(ctx, contract.UserID,
		fmt.Sprintf("Your contract %s for %q has been created. Please complete payment to activate your coverage.", contract.ContractNumber, product.Name),
		"/my-products")
	return contract, nil
}

// ConfirmPaymentManually marks the holder's pending contract active without
// going through the gateway. The premium recorded on the contract is taken
// as the paid amount.
func (s *Service) ConfirmPaymentManually(ctx context.Context, contractID id.ContractID, caller id.UserID) (*models.Contract, error) {
	contract, err := s.findContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.UserID != caller {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the contract holder may confirm payment")
	}
	if contract.Status != models.StatusPendingPayment {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "contract is %q, only pending-payment contracts can be paid", contract.Status)
	}

	now := requestcontext.Now(ctx)
	contract.Status = models.StatusActive
	contract.PaymentDetails = models.PaymentDetails{
		"method":  "manual",
		"paid_at": now,
		"amount":  contract.Premium,
	}
	contract.UpdatedAt = now
	if err := s.contracts.Save(ctx, contract); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save contract")
	}

	if s.metrics != nil {
		s.metrics.PaymentsConfirmed.WithLabelValues("manual").Inc()
	}
	s.notifier.Emit(ctx, contract.UserID,
		fmt.Sprintf("Payment received. Your contract %s is now active.", contract.ContractNumber),
		"/my-products")
	return contract, nil
}

// RequestCancellation records a holder's cancellation request on an active
// contract. A new request overwrites any previously decided one; a request
// still pending review blocks a second request.
func (s *Service) RequestCancellation(ctx context.Context, contractID id.ContractID, caller id.UserID, reason string) (*models.Contract, error) {
	contract, err := s.findContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.UserID != caller {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the contract holder may request cancellation")
	}
	if contract.Status != models.StatusActive {
		return nil, dErrors.New(dErrors.CodeInvalidState, "only active contracts can be cancelled")
	}
	if contract.HasPendingCancellation() {
		return nil, dErrors.New(dErrors.CodeConflict, "a cancellation request is already pending review")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "a cancellation reason is required")
	}

	now := requestcontext.Now(ctx)
	contract.Cancellation = &models.Cancellation{
		Requested:   true,
		Reason:      reason,
		RequestedAt: now,
		Status:      models.DecisionPending,
	}
	contract.UpdatedAt = now
	if err := s.contracts.Save(ctx, contract); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save contract")
	}
	return contract, nil
}

// ReviewCancellation applies an admin decision to an outstanding cancellation
// request. Approval terminates the contract; rejection returns it to active
// service. Either way the request flag is cleared so the holder may request
// again later.
func (s *Service) ReviewCancellation(ctx context.Context, contractID id.ContractID, decision models.DecisionStatus, adminResponse string) (*models.Contract, error) {
	if decision != models.DecisionApproved && decision != models.DecisionRejected {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "decision must be %q or %q", models.DecisionApproved, models.DecisionRejected)
	}

	contract, err := s.findContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Cancellation == nil || !contract.Cancellation.Requested {
		return nil, dErrors.New(dErrors.CodeNotFound, "no outstanding cancellation request")
	}

	now := requestcontext.Now(ctx)
	contract.Cancellation.Requested = false
	contract.Cancellation.Status = decision
	if adminResponse != "" {
		contract.Cancellation.AdminResponse = adminResponse
	}

	var message string
	if decision == models.DecisionApproved {
		contract.Status = models.StatusCancelled
		if adminResponse == "" {
			contract.Cancellation.AdminResponse = "Your cancellation request has been approved."
		}
		message = fmt.Sprintf("Your cancellation request for contract %s has been approved. The contract is now cancelled.", contract.ContractNumber)
	} else {
		if adminResponse == "" {
			contract.Cancellation.AdminResponse = "Your cancellation request has been rejected."
		}
		message = fmt.Sprintf("Your cancellation request for contract %s has been rejected. The contract remains active.", contract.ContractNumber)
	}

	contract.UpdatedAt = now
	if err := s.contracts.Save(ctx, contract); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save contract")
	}

	s.notifier.Emit(ctx, contract.UserID, message, "/my-products")
	return contract, nil
}

// SubmitClaim appends a claim to the holder's active contract. No
// notification fires on submission; the holder hears back on review.
func (s *Service) SubmitClaim(ctx context.Context, contractID id.ContractID, caller id.UserID, reason string, amount int64, attachments []string) (*models.Contract, error) {
	contract, err := s.findContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.UserID != caller {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the contract holder may submit a claim")
	}
	if contract.Status != models.StatusActive {
		return nil, dErrors.New(dErrors.CodeInvalidState, "claims can only be submitted on active contracts")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "a claim reason is required")
	}

	now := requestcontext.Now(ctx)
	contract.Claims = append(contract.Claims, models.Claim{
		ID:          id.ClaimID(uuid.New()),
		RequestDate: now,
		Reason:      reason,
		Amount:      amount,
		Attachments: attachments,
		Status:      models.DecisionPending,
	})
	contract.UpdatedAt = now
	if err := s.contracts.Save(ctx, contract); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save contract")
	}
	return contract, nil
}

// ReviewClaim applies an admin decision to one claim, addressed by its ID.
// Other claims on the contract are untouched. The notification quotes the
// claim's request date so the holder can tell which claim was decided.
func (s *Service) ReviewClaim(ctx context.Context, contractID id.ContractID, claimID id.ClaimID, decision models.DecisionStatus, adminResponse string) (*models.Contract, error) {
	if decision != models.DecisionApproved && decision != models.DecisionRejected {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "decision must be %q or %q", models.DecisionApproved, models.DecisionRejected)
	}

	contract, err := s.findContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	claim := contract.ClaimByID(claimID)
	if claim == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
	}

	claim.Status = decision
	claim.AdminResponse = adminResponse
	contract.UpdatedAt = requestcontext.Now(ctx)
	if err := s.contracts.Save(ctx, contract); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save contract")
	}

	s.notifier.Emit(ctx, contract.UserID,
		fmt.Sprintf("Your claim from %s on contract %s has been %s.", claim.RequestDate.Format("02/01/2006"), contract.ContractNumber, decision),
		"/my-products")
	return contract, nil
}

// OverrideFields names the contract fields an admin may overwrite directly.
// Nil pointers are left untouched.
type OverrideFields struct {
	Status         *models.Status
	Premium        *int64
	StartDate      *time.Time
	EndDate        *time.Time
	ContractNumber *string
}

// Override is the admin escape hatch: it applies the given fields verbatim,
// bypassing every lifecycle guard. Each use lands on the audit trail with the
// acting admin and the touched field names.
func (s *Service) Override(ctx context.Context, contractID id.ContractID, fields OverrideFields) (*models.Contract, error) {
	contract, err := s.findContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	var changed []string
	if fields.Status != nil {
		contract.Status = *fields.Status
		changed = append(changed, "status")
	}
	if fields.Premium != nil {
		contract.Premium = *fields.Premium
		changed = append(changed, "premium")
	}
	if fields.StartDate != nil {
		contract.StartDate = *fields.StartDate
		changed = append(changed, "start_date")
	}
	if fields.EndDate != nil {
		contract.EndDate = *fields.EndDate
		changed = append(changed, "end_date")
	}
	if fields.ContractNumber != nil {
		contract.ContractNumber = *fields.ContractNumber
		changed = append(changed, "contract_number")
	}
	if len(changed) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "no fields to override")
	}

	contract.UpdatedAt = requestcontext.Now(ctx)
	if err := s.contracts.Save(ctx, contract); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save contract")
	}

	s.auditor.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		ActorID:   requestcontext.UserID(ctx).String(),
		Action:    "contract.override",
		Entity:    "contract",
		EntityID:  contract.ID.String(),
		Fields:    changed,
	})
	return contract, nil
}

// Delete removes a contract permanently, regardless of its status.
func (s *Service) Delete(ctx context.Context, contractID id.ContractID) error {
	err := s.contracts.Delete(ctx, contractID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "contract not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete contract")
	}
	s.auditor.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		ActorID:   requestcontext.UserID(ctx).String(),
		Action:    "contract.delete",
		Entity:    "contract",
		EntityID:  contractID.String(),
	})
	return nil
}

// Get fetches one contract. Admin-only at the HTTP layer.
func (s *Service) Get(ctx context.Context, contractID id.ContractID) (*models.Contract, error) {
	return s.findContract(ctx, contractID)
}

// ListAll returns every contract, newest first.
func (s *Service) ListAll(ctx context.Context) ([]*models.Contract, error) {
	contracts, err := s.contracts.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list contracts")
	}
	return contracts, nil
}

// ListMine returns the caller's contracts, newest first.
func (s *Service) ListMine(ctx context.Context, userID id.UserID) ([]*models.Contract, error) {
	contracts, err := s.contracts.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list contracts")
	}
	return contracts, nil
}

// FindByNumber fetches a contract by its contract number. Used by the
// payment flow, where the gateway round-trips the number instead of the ID.
func (s *Service) FindByNumber(ctx context.Context, contractNumber string) (*models.Contract, error) {
	contract, err := s.contracts.FindByNumber(ctx, contractNumber)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "contract not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contract")
	}
	return contract, nil
}

// RecordGatewayTransaction persists the gateway's transaction reference on
// the contract before the outbound order call, so the reference survives
// even if the order creation then fails.
func (s *Service) RecordGatewayTransaction(ctx context.Context, contractNumber, transactionID string) error {
	contract, err := s.FindByNumber(ctx, contractNumber)
	if err != nil {
		return err
	}
	if contract.PaymentDetails == nil {
		contract.PaymentDetails = models.PaymentDetails{}
	}
	contract.PaymentDetails["zalopay_trans_id"] = transactionID
	contract.UpdatedAt = requestcontext.Now(ctx)
	if err := s.contracts.Save(ctx, contract); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save contract")
	}
	return nil
}

// GatewayTransactionID returns the stored gateway transaction reference.
func (s *Service) GatewayTransactionID(ctx context.Context, contractNumber string) (string, error) {
	contract, err := s.FindByNumber(ctx, contractNumber)
	if err != nil {
		return "", err
	}
	transID, _ := contract.PaymentDetails["zalopay_trans_id"].(string)
	if transID == "" {
		return "", dErrors.New(dErrors.CodeInvalidState, "no payment transaction on record for this contract")
	}
	return transID, nil
}

// ActivateByNumber marks a contract active on gateway confirmation. The
// gateway's word is final here: no status precondition is checked, so a
// replayed confirmation is a harmless overwrite.
func (s *Service) ActivateByNumber(ctx context.Context, contractNumber string, details models.PaymentDetails) error {
	contract, err := s.FindByNumber(ctx, contractNumber)
	if err != nil {
		return err
	}

	contract.Status = models.StatusActive
	if contract.PaymentDetails == nil {
		contract.PaymentDetails = models.PaymentDetails{}
	}
	for k, v := range details {
		contract.PaymentDetails[k] = v
	}
	contract.PaymentDetails["method"] = "zalopay"
	contract.UpdatedAt = requestcontext.Now(ctx)
	if err := s.contracts.Save(ctx, contract); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save contract")
	}

	if s.metrics != nil {
		s.metrics.PaymentsConfirmed.WithLabelValues("zalopay").Inc()
	}
	return nil
}

func (s *Service) findContract(ctx context.Context, contractID id.ContractID) (*models.Contract, error) {
	contract, err := s.contracts.FindByID(ctx, contractID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "contract not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contract")
	}
	return contract, nil
}

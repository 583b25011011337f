package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	appmodels "covergate/internal/application/models"
	applicationservice "covergate/internal/application/service"
	applicationstore "covergate/internal/application/store"
	"covergate/internal/audit"
	"covergate/internal/contract/models"
	contractstore "covergate/internal/contract/store"
	"covergate/internal/platform/logger"
	productmodels "covergate/internal/product/models"
	productstore "covergate/internal/product/store"
	id "covergate/pkg/domain"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

type recordedNotification struct {
	UserID  id.UserID
	Message string
	Link    string
}

type recordingNotifier struct {
	sent []recordedNotification
}

func (n *recordingNotifier) Emit(_ context.Context, userID id.UserID, message, link string) {
	n.sent = append(n.sent, recordedNotification{UserID: userID, Message: message, Link: link})
}

type recordingAuditor struct {
	events []audit.Event
}

func (a *recordingAuditor) Emit(_ context.Context, event audit.Event) {
	a.events = append(a.events, event)
}

type ContractServiceSuite struct {
	suite.Suite
	ctx          context.Context
	now          time.Time
	service      *Service
	applications *applicationservice.Service
	products     *productstore.InMemoryStore
	notifier     *recordingNotifier
	auditor      *recordingAuditor
	product      *productmodels.Product
	holder       id.UserID
}

func TestContractServiceSuite(t *testing.T) {
	suite.Run(t, new(ContractServiceSuite))
}

func (s *ContractServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.holder = id.UserID(uuid.New())

	s.products = productstore.NewInMemory()
	s.notifier = &recordingNotifier{}
	s.auditor = &recordingAuditor{}
	s.applications = applicationservice.New(applicationstore.NewInMemory(), s.products, s.notifier, nil)
	s.service = New(contractstore.NewInMemory(), s.applications, s.products, s.notifier, s.auditor, nil, logger.New())

	s.product = &productmodels.Product{
		ID:    id.ProductID(uuid.New()),
		Name:  "Family Health Shield",
		Price: 500000,
	}
	s.Require().NoError(s.products.Seed(s.ctx, s.product))
}

// approvedApplication submits an application and drives it to Approved.
func (s *ContractServiceSuite) approvedApplication() id.ApplicationID {
	app, err := s.applications.Submit(s.ctx, s.holder, s.product.ID, nil, nil)
	s.Require().NoError(err)
	_, err = s.applications.SetStatus(s.ctx, app.ID, appmodels.StatusApproved, "")
	s.Require().NoError(err)
	return app.ID
}

func (s *ContractServiceSuite) activeContract() *models.Contract {
	contract, err := s.service.Create(s.ctx, s.approvedApplication())
	s.Require().NoError(err)
	contract, err = s.service.ConfirmPaymentManually(s.ctx, contract.ID, s.holder)
	s.Require().NoError(err)
	return contract
}

func (s *ContractServiceSuite) TestCreate() {
	s.Run("mints a pending-payment contract from an approved application", func() {
		applicationID := s.approvedApplication()
		s.notifier.sent = nil

		contract, err := s.service.Create(s.ctx, applicationID)
		s.Require().NoError(err)

		s.Equal(models.StatusPendingPayment, contract.Status)
		s.Equal(s.holder, contract.UserID)
		s.Equal(int64(500000), contract.Premium)
		s.Equal(s.now, contract.StartDate)
		s.Equal(s.now.Add(365*24*time.Hour), contract.EndDate)
		s.Regexp(`^HD-[0-9a-f-]{36}$`, contract.ContractNumber)
		s.Require().Len(s.notifier.sent, 1)
		s.Equal(s.holder, s.notifier.sent[0].UserID)
	})

	s.Run("second contract for the same application conflicts", func() {
		applicationID := s.approvedApplication()
		_, err := s.service.Create(s.ctx, applicationID)
		s.Require().NoError(err)

		_, err = s.service.Create(s.ctx, applicationID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("non-approved application is rejected", func() {
		app, err := s.applications.Submit(s.ctx, s.holder, s.product.ID, nil, nil)
		s.Require().NoError(err)

		_, err = s.service.Create(s.ctx, app.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unknown application", func() {
		_, err := s.service.Create(s.ctx, id.ApplicationID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ContractServiceSuite) TestConfirmPaymentManually() {
	contract, err := s.service.Create(s.ctx, s.approvedApplication())
	s.Require().NoError(err)

	s.Run("forbidden for non-owners", func() {
		_, err := s.service.ConfirmPaymentManually(s.ctx, contract.ID, id.UserID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("activates and stamps payment details", func() {
		paid, err := s.service.ConfirmPaymentManually(s.ctx, contract.ID, s.holder)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, paid.Status)
		s.Equal("manual", paid.PaymentDetails["method"])
		s.Equal(int64(500000), paid.PaymentDetails["amount"])
	})

	s.Run("second confirmation is an invalid state", func() {
		_, err := s.service.ConfirmPaymentManually(s.ctx, contract.ID, s.holder)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ContractServiceSuite) TestCancellationFlow() {
	s.Run("requires an active contract", func() {
		contract, err := s.service.Create(s.ctx, s.approvedApplication())
		s.Require().NoError(err)
		_, err = s.service.RequestCancellation(s.ctx, contract.ID, s.holder, "changed my mind")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("pending request blocks a second request", func() {
		contract := s.activeContract()
		_, err := s.service.RequestCancellation(s.ctx, contract.ID, s.holder, "first")
		s.Require().NoError(err)
		_, err = s.service.RequestCancellation(s.ctx, contract.ID, s.holder, "second")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("approval cancels the contract", func() {
		contract := s.activeContract()
		_, err := s.service.RequestCancellation(s.ctx, contract.ID, s.holder, "moving abroad")
		s.Require().NoError(err)
		s.notifier.sent = nil

		decided, err := s.service.ReviewCancellation(s.ctx, contract.ID, models.DecisionApproved, "")
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, decided.Status)
		s.Equal(models.DecisionApproved, decided.Cancellation.Status)
		s.False(decided.Cancellation.Requested)
		s.NotEmpty(decided.Cancellation.AdminResponse)
		s.Require().Len(s.notifier.sent, 1)
		s.Contains(s.notifier.sent[0].Message, "approved")
	})

	s.Run("rejection keeps the contract active", func() {
		contract := s.activeContract()
		_, err := s.service.RequestCancellation(s.ctx, contract.ID, s.holder, "không còn nhu cầu")
		s.Require().NoError(err)

		decided, err := s.service.ReviewCancellation(s.ctx, contract.ID, models.DecisionRejected, "không hợp lệ")
		s.Require().NoError(err)
		s.Equal(models.StatusActive, decided.Status)
		s.Equal(models.DecisionRejected, decided.Cancellation.Status)
		s.Equal("không hợp lệ", decided.Cancellation.AdminResponse)
	})

	s.Run("re-request after rejection resets the sub-record", func() {
		contract := s.activeContract()
		_, err := s.service.RequestCancellation(s.ctx, contract.ID, s.holder, "first")
		s.Require().NoError(err)
		_, err = s.service.ReviewCancellation(s.ctx, contract.ID, models.DecisionRejected, "")
		s.Require().NoError(err)

		again, err := s.service.RequestCancellation(s.ctx, contract.ID, s.holder, "second attempt")
		s.Require().NoError(err)
		s.True(again.Cancellation.Requested)
		s.Equal(models.DecisionPending, again.Cancellation.Status)
		s.Equal("second attempt", again.Cancellation.Reason)
	})

	s.Run("review without a request is not found", func() {
		contract := s.activeContract()
		_, err := s.service.ReviewCancellation(s.ctx, contract.ID, models.DecisionApproved, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("review rejects a pending decision value", func() {
		contract := s.activeContract()
		_, err := s.service.RequestCancellation(s.ctx, contract.ID, s.holder, "why not")
		s.Require().NoError(err)
		_, err = s.service.ReviewCancellation(s.ctx, contract.ID, models.DecisionPending, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ContractServiceSuite) TestClaims() {
	s.Run("claims require an active contract", func() {
		contract, err := s.service.Create(s.ctx, s.approvedApplication())
		s.Require().NoError(err)
		_, err = s.service.SubmitClaim(s.ctx, contract.ID, s.holder, "water damage", 0, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("claims append in order with fresh ids", func() {
		contract := s.activeContract()
		s.notifier.sent = nil

		withOne, err := s.service.SubmitClaim(s.ctx, contract.ID, s.holder, "water damage", 2000000, []string{"/uploads/invoice.pdf"})
		s.Require().NoError(err)
		withTwo, err := s.service.SubmitClaim(s.ctx, contract.ID, s.holder, "hospital stay", 0, nil)
		s.Require().NoError(err)

		s.Require().Len(withTwo.Claims, 2)
		s.Equal("water damage", withTwo.Claims[0].Reason)
		s.Equal("hospital stay", withTwo.Claims[1].Reason)
		s.NotEqual(withOne.Claims[0].ID, withTwo.Claims[1].ID)
		s.Equal(models.DecisionPending, withTwo.Claims[0].Status)
		s.Empty(s.notifier.sent, "claim submission must not notify")
	})

	s.Run("review targets one claim and notifies with its request date", func() {
		contract := s.activeContract()
		updated, err := s.service.SubmitClaim(s.ctx, contract.ID, s.holder, "first claim", 0, nil)
		s.Require().NoError(err)
		updated, err = s.service.SubmitClaim(s.ctx, contract.ID, s.holder, "second claim", 0, nil)
		s.Require().NoError(err)
		s.notifier.sent = nil

		decided, err := s.service.ReviewClaim(s.ctx, contract.ID, updated.Claims[1].ID, models.DecisionApproved, "paid in full")
		s.Require().NoError(err)
		s.Equal(models.DecisionApproved, decided.Claims[1].Status)
		s.Equal("paid in full", decided.Claims[1].AdminResponse)
		s.Equal(models.DecisionPending, decided.Claims[0].Status, "sibling claim untouched")

		s.Require().Len(s.notifier.sent, 1)
		s.Contains(s.notifier.sent[0].Message, s.now.Format("02/01/2006"))
	})

	s.Run("unknown claim id", func() {
		contract := s.activeContract()
		_, err := s.service.ReviewClaim(s.ctx, contract.ID, id.ClaimID(uuid.New()), models.DecisionApproved, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ContractServiceSuite) TestOverride() {
	contract := s.activeContract()
	adminCtx := requestcontext.WithUserID(s.ctx, id.UserID(uuid.New()))

	s.Run("bypasses lifecycle guards and audits the change", func() {
		expired := models.StatusExpired
		premium := int64(123456)
		updated, err := s.service.Override(adminCtx, contract.ID, OverrideFields{
			Status:  &expired,
			Premium: &premium,
		})
		s.Require().NoError(err)
		s.Equal(models.StatusExpired, updated.Status)
		s.Equal(int64(123456), updated.Premium)

		s.Require().Len(s.auditor.events, 1)
		s.Equal("contract.override", s.auditor.events[0].Action)
		s.ElementsMatch([]string{"status", "premium"}, s.auditor.events[0].Fields)
	})

	s.Run("empty override is rejected", func() {
		_, err := s.service.Override(adminCtx, contract.ID, OverrideFields{})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ContractServiceSuite) TestDelete() {
	contract := s.activeContract()

	s.Require().NoError(s.service.Delete(s.ctx, contract.ID))
	_, err := s.service.Get(s.ctx, contract.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.service.Delete(s.ctx, contract.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// TestFullLifecycle walks the happy path end to end: submit, approve,
// convert, pay, request cancellation, reject it.
func (s *ContractServiceSuite) TestFullLifecycle() {
	app, err := s.applications.Submit(s.ctx, s.holder, s.product.ID, map[string]string{"full_name": "Nguyen Van A"}, nil)
	s.Require().NoError(err)

	_, err = s.applications.SetStatus(s.ctx, app.ID, appmodels.StatusApproved, "")
	s.Require().NoError(err)

	contract, err := s.service.Create(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(int64(500000), contract.Premium)
	s.Equal(models.StatusPendingPayment, contract.Status)
	s.Equal(contract.StartDate.Add(365*24*time.Hour), contract.EndDate)

	contract, err = s.service.ConfirmPaymentManually(s.ctx, contract.ID, s.holder)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, contract.Status)
	s.Equal(int64(500000), contract.PaymentDetails["amount"])

	contract, err = s.service.RequestCancellation(s.ctx, contract.ID, s.holder, "không còn nhu cầu")
	s.Require().NoError(err)
	s.True(contract.Cancellation.Requested)

	contract, err = s.service.ReviewCancellation(s.ctx, contract.ID, models.DecisionRejected, "không hợp lệ")
	s.Require().NoError(err)
	s.Equal(models.StatusActive, contract.Status)
	s.Equal(models.DecisionRejected, contract.Cancellation.Status)
}

func (s *ContractServiceSuite) TestGatewayHelpers() {
	contract, err := s.service.Create(s.ctx, s.approvedApplication())
	s.Require().NoError(err)

	s.Run("transaction id must be recorded before it can be read", func() {
		_, err := s.service.GatewayTransactionID(s.ctx, contract.ContractNumber)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("records and reads back the transaction id", func() {
		s.Require().NoError(s.service.RecordGatewayTransaction(s.ctx, contract.ContractNumber, "260301_000042"))
		transID, err := s.service.GatewayTransactionID(s.ctx, contract.ContractNumber)
		s.Require().NoError(err)
		s.Equal("260301_000042", transID)
	})

	s.Run("activation by number merges payment details", func() {
		err := s.service.ActivateByNumber(s.ctx, contract.ContractNumber, models.PaymentDetails{"amount": int64(500000)})
		s.Require().NoError(err)

		activated, err := s.service.FindByNumber(s.ctx, contract.ContractNumber)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, activated.Status)
		s.Equal("zalopay", activated.PaymentDetails["method"])
		s.Equal("260301_000042", activated.PaymentDetails["zalopay_trans_id"])
	})

	s.Run("unknown contract number", func() {
		_, err := s.service.FindByNumber(s.ctx, "HD-missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	appmodels "covergate/internal/application/models"
	applicationservice "covergate/internal/application/service"
	applicationstore "covergate/internal/application/store"
	"covergate/internal/audit"
	contractmodels "covergate/internal/contract/models"
	contractservice "covergate/internal/contract/service"
	contractstore "covergate/internal/contract/store"
	"covergate/internal/payment/zalopay"
	"covergate/internal/platform/config"
	"covergate/internal/platform/logger"
	productmodels "covergate/internal/product/models"
	productstore "covergate/internal/product/store"
	id "covergate/pkg/domain"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

const (
	testKey1 = "PcY4iZIKFCIdgZvA6ueMcMHHUbRLYjPL"
	testKey2 = "kLtgPl8HHhfvMuDHPwKfgfsY4Ydm9eIz"
)

// fakeGateway keeps the real signing logic and replaces the HTTP round
// trips with canned responses.
type fakeGateway struct {
	*zalopay.Client
	createResp map[string]any
	queryResp  map[string]any
	created    []*zalopay.Order
}

func (g *fakeGateway) CreateOrder(_ context.Context, order *zalopay.Order) (map[string]any, error) {
	g.created = append(g.created, order)
	return g.createResp, nil
}

func (g *fakeGateway) QueryOrder(_ context.Context, _ string) (map[string]any, error) {
	return g.queryResp, nil
}

type nullNotifier struct{}

func (nullNotifier) Emit(context.Context, id.UserID, string, string) {}

type PaymentServiceSuite struct {
	suite.Suite
	ctx          context.Context
	service      *Service
	contracts    *contractservice.Service
	applications *applicationservice.Service
	gateway      *fakeGateway
	holder       id.UserID
	product      *productmodels.Product
	contract     *contractmodels.Contract
}

func TestPaymentServiceSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	s.holder = id.UserID(uuid.New())
	log := logger.New()

	products := productstore.NewInMemory()
	s.product = &productmodels.Product{ID: id.ProductID(uuid.New()), Name: "Family Health Shield", Price: 500000}
	s.Require().NoError(products.Seed(s.ctx, s.product))

	s.applications = applicationservice.New(applicationstore.NewInMemory(), products, nullNotifier{}, nil)
	s.contracts = contractservice.New(contractstore.NewInMemory(), s.applications, products, nullNotifier{}, audit.NewLogPublisher(log), nil, log)
	s.contract = s.freshPendingContract()

	s.gateway = &fakeGateway{
		Client: zalopay.NewClient(config.ZaloPayConfig{
			AppID:       "2553",
			Key1:        testKey1,
			Key2:        testKey2,
			AppUser:     "test_demo",
			CallTimeout: time.Second,
		}),
		createResp: map[string]any{"return_code": float64(1), "order_url": "https://sb-openapi.zalopay.vn/pay/x"},
	}
	s.service = New(s.gateway, s.contracts, nil, log)
}

func signCallback(data string) string {
	mac := hmac.New(sha256.New, []byte(testKey2))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *PaymentServiceSuite) callbackData(contractNumber string) string {
	embed, err := json.Marshal(map[string]string{"contractNumber": contractNumber})
	s.Require().NoError(err)
	payload, err := json.Marshal(map[string]any{
		"app_trans_id": "260301_000042",
		"zp_trans_id":  120001,
		"amount":       500000,
		"embed_data":   string(embed),
	})
	s.Require().NoError(err)
	return string(payload)
}

func (s *PaymentServiceSuite) TestCreateOrder() {
	s.Run("persists the transaction id before the outbound call", func() {
		body, err := s.service.CreateOrder(s.ctx, s.contract.ContractNumber)
		s.Require().NoError(err)
		s.Equal(float64(1), body["return_code"])

		s.Require().Len(s.gateway.created, 1)
		transID, err := s.contracts.GatewayTransactionID(s.ctx, s.contract.ContractNumber)
		s.Require().NoError(err)
		s.Equal(s.gateway.created[0].AppTransID, transID)
		s.Equal(transID, body["app_trans_id"])
	})

	s.Run("orders carry the contract premium", func() {
		_, err := s.service.CreateOrder(s.ctx, s.contract.ContractNumber)
		s.Require().NoError(err)
		s.Equal(int64(500000), s.gateway.created[len(s.gateway.created)-1].Amount)
	})

	s.Run("unknown contract number", func() {
		_, err := s.service.CreateOrder(s.ctx, "HD-missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *PaymentServiceSuite) TestHandleCallback() {
	// Each subtest mints its own contract: SetupTest runs once per test
	// method, so subtests sharing the suite contract would see each other's
	// activations.
	s.Run("verified callback activates the contract", func() {
		fresh := s.freshPendingContract()
		data := s.callbackData(fresh.ContractNumber)
		result := s.service.HandleCallback(s.ctx, data, signCallback(data))

		s.Equal(1, result.ReturnCode)
		s.Equal("success", result.ReturnMessage)

		contract, err := s.contracts.FindByNumber(s.ctx, fresh.ContractNumber)
		s.Require().NoError(err)
		s.Equal(contractmodels.StatusActive, contract.Status)
		s.Equal("zalopay", contract.PaymentDetails["method"])
	})

	s.Run("tampered mac is rejected and the contract untouched", func() {
		fresh := s.freshPendingContract()
		data := s.callbackData(fresh.ContractNumber)
		result := s.service.HandleCallback(s.ctx, data, signCallback(data+"x"))

		s.Equal(-1, result.ReturnCode)
		s.Equal("mac not equal", result.ReturnMessage)

		contract, err := s.contracts.FindByNumber(s.ctx, fresh.ContractNumber)
		s.Require().NoError(err)
		s.Equal(contractmodels.StatusPendingPayment, contract.Status)
	})

	s.Run("unparseable data is a retryable failure", func() {
		data := "not-json"
		result := s.service.HandleCallback(s.ctx, data, signCallback(data))
		s.Equal(0, result.ReturnCode)
		s.NotEmpty(result.ReturnMessage)
	})

	s.Run("unknown contract number is a retryable failure", func() {
		data := s.callbackData("HD-missing")
		result := s.service.HandleCallback(s.ctx, data, signCallback(data))
		s.Equal(0, result.ReturnCode)
	})
}

func (s *PaymentServiceSuite) TestPollStatus() {
	s.Run("fails without a recorded transaction", func() {
		_, err := s.service.PollStatus(s.ctx, s.contract.ContractNumber)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("successful poll activates the contract", func() {
		_, err := s.service.CreateOrder(s.ctx, s.contract.ContractNumber)
		s.Require().NoError(err)

		s.gateway.queryResp = map[string]any{"return_code": float64(1), "amount": float64(500000)}
		body, err := s.service.PollStatus(s.ctx, s.contract.ContractNumber)
		s.Require().NoError(err)
		s.Equal(float64(1), body["return_code"])

		contract, err := s.contracts.FindByNumber(s.ctx, s.contract.ContractNumber)
		s.Require().NoError(err)
		s.Equal(contractmodels.StatusActive, contract.Status)
		s.Equal(int64(500000), contract.PaymentDetails["amount"])
	})

	s.Run("pending poll leaves the contract alone", func() {
		fresh := s.freshPendingContract()
		_, err := s.service.CreateOrder(s.ctx, fresh.ContractNumber)
		s.Require().NoError(err)

		s.gateway.queryResp = map[string]any{"return_code": float64(3), "return_message": "processing"}
		_, err = s.service.PollStatus(s.ctx, fresh.ContractNumber)
		s.Require().NoError(err)

		contract, err := s.contracts.FindByNumber(s.ctx, fresh.ContractNumber)
		s.Require().NoError(err)
		s.Equal(contractmodels.StatusPendingPayment, contract.Status)
	})
}

// freshPendingContract mints an independent pending-payment contract from a
// new approved application.
func (s *PaymentServiceSuite) freshPendingContract() *contractmodels.Contract {
	app, err := s.applications.Submit(s.ctx, s.holder, s.product.ID, nil, nil)
	s.Require().NoError(err)
	_, err = s.applications.SetStatus(s.ctx, app.ID, appmodels.StatusApproved, "")
	s.Require().NoError(err)
	contract, err := s.contracts.Create(s.ctx, app.ID)
	s.Require().NoError(err)
	return contract
}

// Package service orchestrates the gateway payment flow: order creation,
// the asynchronous confirmation callback, and the status poll fallback.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	contractmodels "covergate/internal/contract/models"
	"covergate/internal/payment/zalopay"
	"covergate/internal/platform/metrics"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

// Gateway is the wire-level gateway client.
type Gateway interface {
	BuildOrder(contractNumber string, amount int64, now time.Time) (*zalopay.Order, error)
	CreateOrder(ctx context.Context, order *zalopay.Order) (map[string]any, error)
	QueryOrder(ctx context.Context, appTransID string) (map[string]any, error)
	VerifyCallbackMAC(data, mac string) bool
}

// Contracts is the slice of the contract service the payment flow needs.
type Contracts interface {
	FindByNumber(ctx context.Context, contractNumber string) (*contractmodels.Contract, error)
	RecordGatewayTransaction(ctx context.Context, contractNumber, transactionID string) error
	GatewayTransactionID(ctx context.Context, contractNumber string) (string, error)
	ActivateByNumber(ctx context.Context, contractNumber string, details contractmodels.PaymentDetails) error
}

// Service drives the gateway payment flow.
type Service struct {
	gateway   Gateway
	contracts Contracts
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(gateway Gateway, contracts Contracts, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{gateway: gateway, contracts: contracts, metrics: m, logger: logger}
}

// CreateOrder builds and signs a gateway order for the contract's premium
// and posts it. The transaction ID is persisted on the contract before the
// outbound call, so the later status poll works even when the gateway's
// answer is lost. The gateway's response body is relayed untouched.
func (s *Service) CreateOrder(ctx context.Context, contractNumber string) (map[string]any, error) {
	contract, err := s.contracts.FindByNumber(ctx, contractNumber)
	if err != nil {
		return nil, err
	}

	order, err := s.gateway.BuildOrder(contract.ContractNumber, contract.Premium, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build payment order")
	}
	if err := s.contracts.RecordGatewayTransaction(ctx, contract.ContractNumber, order.AppTransID); err != nil {
		return nil, err
	}

	body, err := s.gateway.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	body["app_trans_id"] = order.AppTransID
	return body, nil
}

// CallbackResult is the acknowledgement shape the gateway expects:
// 1 success, 0 retryable failure, -1 authentication failure. The gateway
// retries on 0 and gives up on -1.
type CallbackResult struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
}

// callbackData is the signed payload inside a callback. Only the embedded
// data matters here; the rest of the gateway's fields are recorded verbatim.
type callbackData struct {
	AppTransID string `json:"app_trans_id"`
	ZpTransID  int64  `json:"zp_trans_id"`
	Amount     int64  `json:"amount"`
	EmbedData  string `json:"embed_data"`
}

// HandleCallback processes the gateway's server-to-server confirmation. It
// never returns an error: every outcome maps to an acknowledgement the
// gateway understands. A verified callback activates the contract
// unconditionally.
func (s *Service) HandleCallback(ctx context.Context, rawData, mac string) CallbackResult {
	if !s.gateway.VerifyCallbackMAC(rawData, mac) {
		s.countFailure("bad_mac")
		return CallbackResult{ReturnCode: -1, ReturnMessage: "mac not equal"}
	}

	var data callbackData
	if err := json.Unmarshal([]byte(rawData), &data); err != nil {
		s.countFailure("bad_payload")
		return CallbackResult{ReturnCode: 0, ReturnMessage: err.Error()}
	}
	var embed struct {
		ContractNumber string `json:"contractNumber"`
	}
	if err := json.Unmarshal([]byte(data.EmbedData), &embed); err != nil || embed.ContractNumber == "" {
		s.countFailure("bad_payload")
		return CallbackResult{ReturnCode: 0, ReturnMessage: "missing contract number in embed data"}
	}

	details := contractmodels.PaymentDetails{
		"paid_at": requestcontext.Now(ctx),
		"amount":  data.Amount,
	}
	if data.ZpTransID != 0 {
		details["zp_trans_id"] = data.ZpTransID
	}
	if err := s.contracts.ActivateByNumber(ctx, embed.ContractNumber, details); err != nil {
		s.countFailure("activation_failed")
		s.logger.ErrorContext(ctx, "payment callback activation failed",
			"error", err,
			"contract_number", embed.ContractNumber,
		)
		return CallbackResult{ReturnCode: 0, ReturnMessage: err.Error()}
	}

	s.logger.InfoContext(ctx, "payment confirmed via callback",
		"contract_number", embed.ContractNumber,
		"app_trans_id", data.AppTransID,
	)
	return CallbackResult{ReturnCode: 1, ReturnMessage: "success"}
}

// PollStatus queries the gateway for the contract's recorded transaction and
// activates the contract when the gateway reports the payment succeeded.
// This is the recovery path for lost callbacks.
func (s *Service) PollStatus(ctx context.Context, contractNumber string) (map[string]any, error) {
	transID, err := s.contracts.GatewayTransactionID(ctx, contractNumber)
	if err != nil {
		return nil, err
	}

	body, err := s.gateway.QueryOrder(ctx, transID)
	if err != nil {
		return nil, err
	}

	if code, ok := body["return_code"].(float64); ok && int(code) == 1 {
		details := contractmodels.PaymentDetails{"paid_at": requestcontext.Now(ctx)}
		if amount, ok := body["amount"].(float64); ok {
			details["amount"] = int64(amount)
		}
		if err := s.contracts.ActivateByNumber(ctx, contractNumber, details); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func (s *Service) countFailure(reason string) {
	if s.metrics != nil {
		s.metrics.CallbackFailures.WithLabelValues(reason).Inc()
	}
}

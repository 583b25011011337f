// Package zalopay implements the ZaloPay v2 gateway wire protocol: order
// creation, the HMAC signing recipes, and the status query.
package zalopay

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"covergate/internal/platform/config"
	dErrors "covergate/pkg/domain-errors"
)

const tracerName = "covergate/zalopay"

// Client talks to the ZaloPay gateway.
type Client struct {
	cfg    config.ZaloPayConfig
	http   *http.Client
	tracer trace.Tracer
}

func NewClient(cfg config.ZaloPayConfig) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.CallTimeout},
		tracer: otel.Tracer(tracerName),
	}
}

// Order is one payment order in the gateway's wire shape. The MAC is a
// HMAC-SHA256 over the pipe-joined fields, keyed with key1.
type Order struct {
	AppID       string `json:"app_id"`
	AppTransID  string `json:"app_trans_id"`
	AppUser     string `json:"app_user"`
	AppTime     int64  `json:"app_time"`
	Amount      int64  `json:"amount"`
	Item        string `json:"item"`
	Description string `json:"description"`
	EmbedData   string `json:"embed_data"`
	BankCode    string `json:"bank_code"`
	MAC         string `json:"mac"`
}

// embedData round-trips the contract number through the gateway; the
// callback hands it back so the service knows which contract was paid.
type embedData struct {
	ContractNumber string `json:"contractNumber"`
}

// BuildOrder assembles a signed order for the given contract. The
// transaction ID carries the gateway-mandated YYMMDD_ prefix in local time.
func (c *Client) BuildOrder(contractNumber string, amount int64, now time.Time) (*Order, error) {
	embed, err := json.Marshal(embedData{ContractNumber: contractNumber})
	if err != nil {
		return nil, fmt.Errorf("marshal embed data: %w", err)
	}

	order := &Order{
		AppID:       c.cfg.AppID,
		AppTransID:  newAppTransID(now),
		AppUser:     c.cfg.AppUser,
		AppTime:     now.UnixMilli(),
		Amount:      amount,
		Item:        "[]",
		Description: fmt.Sprintf("Payment for insurance contract %s", contractNumber),
		EmbedData:   string(embed),
		BankCode:    "",
	}
	order.MAC = c.signOrder(order)
	return order, nil
}

// signOrder computes the creation MAC: key1 over
// app_id|app_trans_id|app_user|amount|app_time|embed_data|item.
func (c *Client) signOrder(o *Order) string {
	payload := strings.Join([]string{
		o.AppID, o.AppTransID, o.AppUser,
		strconv.FormatInt(o.Amount, 10),
		strconv.FormatInt(o.AppTime, 10),
		o.EmbedData, o.Item,
	}, "|")
	return hmacHex(c.cfg.Key1, payload)
}

// VerifyCallbackMAC checks a callback's key2 MAC over the raw data string.
// Comparison is constant-time.
func (c *Client) VerifyCallbackMAC(data, mac string) bool {
	expected := hmacHex(c.cfg.Key2, data)
	return hmac.Equal([]byte(expected), []byte(mac))
}

// CreateOrder posts the order to the gateway and relays the decoded response
// body untouched.
func (c *Client) CreateOrder(ctx context.Context, order *Order) (map[string]any, error) {
	ctx, span := c.tracer.Start(ctx, "zalopay.create_order",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("zalopay.app_trans_id", order.AppTransID)),
	)
	defer span.End()

	params := url.Values{
		"app_id":       {order.AppID},
		"app_trans_id": {order.AppTransID},
		"app_user":     {order.AppUser},
		"app_time":     {strconv.FormatInt(order.AppTime, 10)},
		"amount":       {strconv.FormatInt(order.Amount, 10)},
		"item":         {order.Item},
		"description":  {order.Description},
		"embed_data":   {order.EmbedData},
		"bank_code":    {order.BankCode},
		"mac":          {order.MAC},
	}
	return c.post(ctx, c.cfg.CreateEndpoint, params)
}

// QueryOrder asks the gateway for the status of a previously created order.
// The query MAC is key1 over app_id|app_trans_id|key1.
func (c *Client) QueryOrder(ctx context.Context, appTransID string) (map[string]any, error) {
	ctx, span := c.tracer.Start(ctx, "zalopay.query_order",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("zalopay.app_trans_id", appTransID)),
	)
	defer span.End()

	payload := strings.Join([]string{c.cfg.AppID, appTransID, c.cfg.Key1}, "|")
	params := url.Values{
		"app_id":       {c.cfg.AppID},
		"app_trans_id": {appTransID},
		"mac":          {hmacHex(c.cfg.Key1, payload)},
	}
	return c.post(ctx, c.cfg.QueryEndpoint, params)
}

func (c *Client) post(ctx context.Context, endpoint string, params url.Values) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "payment gateway unreachable")
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "unreadable gateway response")
	}
	return body, nil
}

// newAppTransID builds a transaction ID in the gateway-required
// YYMMDD_<random> format.
func newAppTransID(now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		n = big.NewInt(now.UnixNano() % 1_000_000)
	}
	return fmt.Sprintf("%s_%06d", now.Format("060102"), n.Int64())
}

func hmacHex(key, payload string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

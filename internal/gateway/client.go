package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/config"
	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/model"

	"github.com/rs/zerolog"
)

// Client is a thin HTTP adapter to the payment provider. Requests use
// basic auth with the key pair and a bounded timeout; a timeout surfaces
// as a GatewayError like any other transport failure.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
	logger    zerolog.Logger
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg config.GatewayConfig, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: logger.With().Str("component", "payment-gateway").Logger(),
	}
}

// MinorUnits converts a major-unit amount to the gateway's minor-unit
// convention (e.g. rupees to paise), rounding half away from zero.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

type createIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createIntentResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateIntent creates a remote payment intent for the given amount.
func (c *Client) CreateIntent(ctx context.Context, amount float64, currency, receipt string) (*Intent, error) {
	req := createIntentRequest{
		Amount:   MinorUnits(amount),
		Currency: currency,
		Receipt:  receipt,
	}

	var resp createIntentResponse
	if err := c.post(ctx, "/v1/orders", req, &resp); err != nil {
		return nil, &model.GatewayError{Op: "create intent", Err: err}
	}

	if resp.ID == "" {
		return nil, &model.GatewayError{Op: "create intent", Err: fmt.Errorf("provider returned no order id")}
	}

	c.logger.Info().
		Str("gateway_order_id", resp.ID).
		Int64("amount", resp.Amount).
		Str("currency", resp.Currency).
		Msg("payment intent created")

	return &Intent{
		GatewayOrderID: resp.ID,
		Amount:         resp.Amount,
		Currency:       resp.Currency,
	}, nil
}

type refundRequest struct {
	Amount int64 `json:"amount"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}

// Refund requests a refund for a captured payment.
func (c *Client) Refund(ctx context.Context, gatewayPaymentID string, amount float64) (*Refund, error) {
	if gatewayPaymentID == "" {
		return nil, &model.GatewayError{Op: "refund", Err: fmt.Errorf("payment id is empty")}
	}

	req := refundRequest{Amount: MinorUnits(amount)}

	var resp refundResponse
	path := fmt.Sprintf("/v1/payments/%s/refund", gatewayPaymentID)
	if err := c.post(ctx, path, req, &resp); err != nil {
		return nil, &model.GatewayError{Op: "refund", Err: err}
	}

	if resp.ID == "" {
		return nil, &model.GatewayError{Op: "refund", Err: fmt.Errorf("provider returned no refund id")}
	}

	c.logger.Info().
		Str("gateway_payment_id", gatewayPaymentID).
		Str("refund_id", resp.ID).
		Msg("refund accepted")

	return &Refund{RefundID: resp.ID, Amount: resp.Amount}, nil
}

// post sends a JSON request to the provider and decodes the response.
// Non-2xx statuses are provider rejections.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("gateway request failed")
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("path", path).
			Str("body", string(detail)).
			Msg("gateway rejected request")
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

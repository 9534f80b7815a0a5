package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kiranlabs/storefront-backend/pkg/config"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
	"github.com/kiranlabs/storefront-backend/pkg/logger"
)

const defaultRazorpayBaseURL = "https://api.razorpay.com"

// razorpayGateway talks to the hosted checkout API with basic auth and
// verifies payment callbacks with an HMAC-SHA256 signature over
// "intentID|paymentID".
type razorpayGateway struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
	logg       *logger.Logger
}

// NewRazorpayGateway builds the hosted-checkout adapter.
func NewRazorpayGateway(cfg config.PaymentsConfig, logg *logger.Logger) (Gateway, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("razorpay key id and secret are required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultRazorpayBaseURL
	}
	return &razorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logg: logg,
	}, nil
}

func (g *razorpayGateway) Name() string {
	return GatewayRazorpay
}

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateIntent opens a gateway order. Amounts cross the wire in paise as
// the API requires; the rest of the system stays in whole rupees.
func (g *razorpayGateway) CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	currency := input.Currency
	if currency == "" {
		currency = "INR"
	}

	var resp razorpayOrderResponse
	err := g.post(ctx, "/v1/orders", razorpayOrderRequest{
		Amount:   input.Amount * 100,
		Currency: currency,
		Receipt:  input.Reference,
		Notes:    input.Notes,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &Intent{
		ID:       resp.ID,
		Amount:   resp.Amount / 100,
		Currency: resp.Currency,
		KeyID:    g.keyID,
	}, nil
}

// Verify checks the callback signature the client returns after paying.
func (g *razorpayGateway) Verify(ctx context.Context, input VerifyInput) error {
	if input.IntentID == "" || input.PaymentID == "" || input.Signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "intent id, payment id, and signature are required")
	}
	expected := SignPayload(g.keySecret, input.IntentID+"|"+input.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(input.Signature)) {
		return pkgerrors.New(pkgerrors.CodePaymentFailed, "payment signature verification failed")
	}
	return nil
}

type razorpayRefundRequest struct {
	Amount int64             `json:"amount"`
	Notes  map[string]string `json:"notes,omitempty"`
}

type razorpayRefundResponse struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}

func (g *razorpayGateway) Refund(ctx context.Context, input RefundInput) (*Refund, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	var resp razorpayRefundResponse
	body := razorpayRefundRequest{Amount: input.Amount * 100}
	if input.Reason != "" {
		body.Notes = map[string]string{"reason": input.Reason}
	}
	path := fmt.Sprintf("/v1/payments/%s/refund", input.PaymentID)
	if err := g.post(ctx, path, body, &resp); err != nil {
		return nil, err
	}
	return &Refund{ID: resp.ID, Amount: resp.Amount / 100}, nil
}

func (g *razorpayGateway) post(ctx context.Context, path string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call payment gateway")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("payment gateway returned %d: %s", resp.StatusCode, string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}
	return nil
}

// SignPayload computes the hex HMAC-SHA256 the gateway uses for callback
// and webhook signatures.
func SignPayload(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

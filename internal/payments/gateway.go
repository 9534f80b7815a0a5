package payments

import (
	"context"
	"fmt"

	"github.com/kiranlabs/storefront-backend/pkg/config"
	"github.com/kiranlabs/storefront-backend/pkg/logger"
)

const (
	// GatewayCOD collects payment on delivery; intents auto-succeed.
	GatewayCOD = "cod"
	// GatewayRazorpay is the hosted-checkout HMAC gateway.
	GatewayRazorpay = "razorpay"
)

// CreateIntentInput asks the gateway to open a payment for an amount.
type CreateIntentInput struct {
	Amount    int64
	Currency  string
	Reference string
	Notes     map[string]string
}

// Intent is the gateway-side handle the client completes payment against.
type Intent struct {
	ID       string
	Amount   int64
	Currency string
	// KeyID is exposed to the frontend SDK for hosted checkouts.
	KeyID string
}

// VerifyInput carries the fields the client returns after paying.
type VerifyInput struct {
	IntentID  string
	PaymentID string
	Signature string
}

// RefundInput asks the gateway to return money for a captured payment.
type RefundInput struct {
	PaymentID string
	Amount    int64
	Reason    string
}

// Refund reports the gateway-side refund handle.
type Refund struct {
	ID     string
	Amount int64
}

// Gateway is the single payment abstraction used by checkout. Adapters are
// selected by configuration, never by parallel code paths.
type Gateway interface {
	Name() string
	CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error)
	Verify(ctx context.Context, input VerifyInput) error
	Refund(ctx context.Context, input RefundInput) (*Refund, error)
}

// NewGateway builds the configured gateway adapter.
func NewGateway(cfg config.PaymentsConfig, logg *logger.Logger) (Gateway, error) {
	switch cfg.GatewayName() {
	case GatewayCOD:
		return NewCODGateway(), nil
	case GatewayRazorpay:
		return NewRazorpayGateway(cfg, logg)
	default:
		return nil, fmt.Errorf("unknown payment gateway %q", cfg.Gateway)
	}
}

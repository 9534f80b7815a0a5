package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranlabs/storefront-backend/pkg/config"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
)

func razorpayConfig(baseURL string) config.PaymentsConfig {
	return config.PaymentsConfig{
		Gateway:        GatewayRazorpay,
		KeyID:          "rzp_test_key",
		KeySecret:      "super-secret",
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
	}
}

func TestNewGateway_SelectsByConfig(t *testing.T) {
	cod, err := NewGateway(config.PaymentsConfig{Gateway: "cod"}, nil)
	if err != nil {
		t.Fatalf("cod gateway failed: %v", err)
	}
	if cod.Name() != GatewayCOD {
		t.Fatalf("expected cod, got %s", cod.Name())
	}

	rzp, err := NewGateway(razorpayConfig(""), nil)
	if err != nil {
		t.Fatalf("razorpay gateway failed: %v", err)
	}
	if rzp.Name() != GatewayRazorpay {
		t.Fatalf("expected razorpay, got %s", rzp.Name())
	}

	if _, err := NewGateway(config.PaymentsConfig{Gateway: "paypal"}, nil); err == nil {
		t.Fatal("expected error for unknown gateway")
	}

	// Defaulting: empty selector means cod.
	fallback, err := NewGateway(config.PaymentsConfig{}, nil)
	if err != nil {
		t.Fatalf("default gateway failed: %v", err)
	}
	if fallback.Name() != GatewayCOD {
		t.Fatalf("expected cod default, got %s", fallback.Name())
	}
}

func TestRazorpayVerify_Signature(t *testing.T) {
	gw, err := NewRazorpayGateway(razorpayConfig(""), nil)
	if err != nil {
		t.Fatalf("build gateway: %v", err)
	}

	good := SignPayload("super-secret", "order_123|pay_456")
	if err := gw.Verify(context.Background(), VerifyInput{
		IntentID:  "order_123",
		PaymentID: "pay_456",
		Signature: good,
	}); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	err = gw.Verify(context.Background(), VerifyInput{
		IntentID:  "order_123",
		PaymentID: "pay_456",
		Signature: SignPayload("wrong-secret", "order_123|pay_456"),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodePaymentFailed {
		t.Fatalf("expected payment failed, got %v", err)
	}

	err = gw.Verify(context.Background(), VerifyInput{IntentID: "order_123"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing fields, got %v", err)
	}
}

func TestRazorpayCreateIntent_ConvertsToPaise(t *testing.T) {
	var captured razorpayOrderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "rzp_test_key" || pass != "super-secret" {
			t.Fatal("missing or wrong basic auth")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(razorpayOrderResponse{
			ID:       "order_abc",
			Amount:   captured.Amount,
			Currency: captured.Currency,
		})
	}))
	defer server.Close()

	gw, err := NewRazorpayGateway(razorpayConfig(server.URL), nil)
	if err != nil {
		t.Fatalf("build gateway: %v", err)
	}

	intent, err := gw.CreateIntent(context.Background(), CreateIntentInput{
		Amount:    1210,
		Reference: "ORD-20260829-XYZ",
	})
	if err != nil {
		t.Fatalf("create intent failed: %v", err)
	}
	if captured.Amount != 121000 {
		t.Fatalf("expected 121000 paise on the wire, got %d", captured.Amount)
	}
	if captured.Currency != "INR" {
		t.Fatalf("expected INR default, got %s", captured.Currency)
	}
	if intent.ID != "order_abc" || intent.Amount != 1210 {
		t.Fatalf("unexpected intent %+v", intent)
	}
	if intent.KeyID != "rzp_test_key" {
		t.Fatalf("intent must expose the key id, got %q", intent.KeyID)
	}
}

func TestRazorpayCreateIntent_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"BAD_REQUEST_ERROR"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	gw, err := NewRazorpayGateway(razorpayConfig(server.URL), nil)
	if err != nil {
		t.Fatalf("build gateway: %v", err)
	}

	_, err = gw.CreateIntent(context.Background(), CreateIntentInput{Amount: 100})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCODGateway_IntentAndRefund(t *testing.T) {
	gw := NewCODGateway()

	intent, err := gw.CreateIntent(context.Background(), CreateIntentInput{Amount: 500})
	if err != nil {
		t.Fatalf("create intent failed: %v", err)
	}
	if intent.Amount != 500 || intent.ID == "" {
		t.Fatalf("unexpected intent %+v", intent)
	}

	if err := gw.Verify(context.Background(), VerifyInput{}); err != nil {
		t.Fatalf("cod verify must always pass: %v", err)
	}

	refund, err := gw.Refund(context.Background(), RefundInput{PaymentID: intent.ID, Amount: 500})
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if refund.Amount != 500 {
		t.Fatalf("unexpected refund %+v", refund)
	}
}

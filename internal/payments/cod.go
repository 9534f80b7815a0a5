package payments

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
)

// codGateway settles at the doorstep; intents succeed immediately and
// refunds are recorded without an external call.
type codGateway struct{}

// NewCODGateway builds the cash-on-delivery adapter.
func NewCODGateway() Gateway {
	return codGateway{}
}

func (codGateway) Name() string {
	return GatewayCOD
}

func (codGateway) CreateIntent(ctx context.Context, input CreateIntentInput) (*Intent, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	return &Intent{
		ID:       "cod_" + uuid.NewString(),
		Amount:   input.Amount,
		Currency: input.Currency,
	}, nil
}

// Verify always succeeds: there is nothing to verify before delivery.
func (codGateway) Verify(ctx context.Context, input VerifyInput) error {
	return nil
}

func (codGateway) Refund(ctx context.Context, input RefundInput) (*Refund, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	return &Refund{
		ID:     "cod_rfnd_" + uuid.NewString(),
		Amount: input.Amount,
	}, nil
}

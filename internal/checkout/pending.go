package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
)

// pendingStore is the keyed TTL store bridging intent creation and payment
// confirmation. Backed by redis so pending checkouts survive process
// restarts and expire on their own.
type pendingStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	PendingOrderKey(intentID string) string
}

// pendingOrder is the payload stashed between CreatePaymentIntent and
// ConfirmPayment. The order itself is not persisted until the gateway
// signature verifies.
type pendingOrder struct {
	UserID     uuid.UUID `json:"user_id"`
	AddressID  uuid.UUID `json:"address_id"`
	CouponCode string    `json:"coupon_code,omitempty"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *service) stashPending(ctx context.Context, intentID string, pending pendingOrder) error {
	raw, err := json.Marshal(pending)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode pending order")
	}
	key := s.pending.PendingOrderKey(intentID)
	if err := s.pending.Set(ctx, key, string(raw), s.pendingTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stash pending order")
	}
	return nil
}

func (s *service) loadPending(ctx context.Context, intentID string) (*pendingOrder, error) {
	key := s.pending.PendingOrderKey(intentID)
	raw, err := s.pending.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no pending order for this payment")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending order")
	}
	var pending pendingOrder
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode pending order")
	}
	return &pending, nil
}

func (s *service) dropPending(ctx context.Context, intentID string) {
	// Best effort. An orphaned entry expires with its TTL.
	_ = s.pending.Del(ctx, s.pending.PendingOrderKey(intentID))
}

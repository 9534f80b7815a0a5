package coupons

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kiranlabs/storefront-backend/pkg/db/models"
	"github.com/kiranlabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
)

// Discount is the outcome of applying a coupon code to a subtotal.
type Discount struct {
	Code     string           `json:"code"`
	Type     enums.CouponType `json:"type"`
	Amount   int64            `json:"amount"`
	Subtotal int64            `json:"subtotal"`
}

// Service computes coupon discounts and records coupon consumption.
type Service interface {
	// ComputeDiscount validates the coupon against the subtotal and returns
	// the discount amount in whole rupees. It does not consume the coupon.
	ComputeDiscount(ctx context.Context, code string, subtotal int64, userID string) (*Discount, error)
	// Consume bumps the coupon's usage counter inside the caller's
	// transaction. Called once per placed order that applied a discount.
	Consume(ctx context.Context, tx *gorm.DB, code string) error
}

type service struct {
	repo *Repository
	now  func() time.Time
}

// NewService builds the coupon service.
func NewService(repo *Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) ComputeDiscount(ctx context.Context, code string, subtotal int64, userID string) (*Discount, error) {
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if subtotal < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal cannot be negative")
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, couponInvalid("unknown coupon code")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load coupon")
	}

	if err := s.checkEligibility(coupon, subtotal); err != nil {
		return nil, err
	}

	amount := discountAmount(coupon, subtotal)
	return &Discount{
		Code:     coupon.Code,
		Type:     coupon.Type,
		Amount:   amount,
		Subtotal: subtotal,
	}, nil
}

func (s *service) Consume(ctx context.Context, tx *gorm.DB, code string) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "coupon consumption requires a transaction")
	}
	if err := s.repo.WithTx(tx).IncrementUsage(ctx, code); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return couponInvalid("coupon usage limit reached")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume coupon")
	}
	return nil
}

func (s *service) checkEligibility(coupon *models.Coupon, subtotal int64) error {
	if !coupon.IsActive {
		return couponInvalid("coupon is no longer active")
	}
	if coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(s.now()) {
		return couponInvalid("coupon has expired")
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return couponInvalid("coupon usage limit reached")
	}
	if subtotal < coupon.MinSubtotal {
		return pkgerrors.New(pkgerrors.CodeCouponInvalid, "subtotal below coupon minimum").
			WithDetails(map[string]int64{
				"min_subtotal": coupon.MinSubtotal,
				"subtotal":     subtotal,
			})
	}
	return nil
}

// discountAmount applies the coupon value to the subtotal. Percentage
// discounts round half-up on the rupee; the result never exceeds the
// subtotal or the coupon's max_discount cap.
func discountAmount(coupon *models.Coupon, subtotal int64) int64 {
	var amount int64
	switch coupon.Type {
	case enums.CouponTypePercentage:
		amount = decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt(coupon.Value)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	case enums.CouponTypeFixed:
		amount = coupon.Value
	}
	if coupon.MaxDiscount != nil && amount > *coupon.MaxDiscount {
		amount = *coupon.MaxDiscount
	}
	if amount > subtotal {
		amount = subtotal
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

func couponInvalid(message string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeCouponInvalid, message)
}

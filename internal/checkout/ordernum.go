package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/kiranlabs/storefront-backend/pkg/errors"
)

type numberChecker interface {
	NumberExists(ctx context.Context, orderNumber string) (bool, error)
}

// newOrderNumber builds a candidate order number: SF-YYYYMMDD-XXXXXXXX
// with a random hex suffix. Uniqueness is enforced by the database;
// callers retry on collision.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("SF-%s-%s", now.UTC().Format("20060102"), suffix)
}

// allocateOrderNumber generates candidates until one is free, bounded by
// the configured attempt count.
func allocateOrderNumber(ctx context.Context, repo numberChecker, now time.Time, attempts int) (string, error) {
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		candidate := newOrderNumber(now)
		exists, err := repo.NumberExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique order number")
}

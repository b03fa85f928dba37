package stripewebhook

import (
	"context"
	"time"

	"github.com/bookingtms/bookingtms-backend/pkg/redis"
)

const (
	idempotencyScope = "stripe-webhook"
	idempotencyTTL   = 24 * time.Hour
)

// IdempotencyGuard deduplicates webhook deliveries by Stripe event id.
// Stripe retries deliveries, so the same event can arrive more than once.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewIdempotencyGuard builds a guard over the shared redis store.
func NewIdempotencyGuard(store redis.IdempotencyStore) *IdempotencyGuard {
	return &IdempotencyGuard{store: store, ttl: idempotencyTTL}
}

// Begin claims the event id. It reports false when another delivery of the
// same event already claimed it. The returned release func drops the claim so
// a failed handler can be retried by Stripe.
func (g *IdempotencyGuard) Begin(ctx context.Context, eventID string) (func(), bool, error) {
	if g == nil || g.store == nil || eventID == "" {
		return func() {}, true, nil
	}

	key := g.store.IdempotencyKey(idempotencyScope, eventID)
	claimed, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return nil, false, err
	}
	if !claimed {
		return func() {}, false, nil
	}

	release := func() {
		_ = g.store.Del(context.WithoutCancel(ctx), key)
	}
	return release, true, nil
}

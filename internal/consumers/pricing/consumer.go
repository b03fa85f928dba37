package pricing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookingtms/bookingtms-backend/pkg/enums"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
	"github.com/bookingtms/bookingtms-backend/pkg/outbox"
	"github.com/bookingtms/bookingtms-backend/pkg/outbox/payloads"
	"github.com/bookingtms/bookingtms-backend/pkg/outbox/registry"
)

type cacheInvalidator interface {
	InvalidateActivityPricing(ctx context.Context, activityID uuid.UUID)
}

// Consumer drops stale widget pricing caches when pricing events land.
type Consumer struct {
	invalidator cacheInvalidator
	decoders    *registry.DecoderRegistry
	logg        *logger.Logger
}

// NewConsumer builds the pricing-events consumer.
func NewConsumer(invalidator cacheInvalidator, logg *logger.Logger) (*Consumer, error) {
	if invalidator == nil {
		return nil, fmt.Errorf("cache invalidator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventPricingUpdated, 1, func(payload json.RawMessage) (interface{}, error) {
		var evt payloads.PricingUpdatedEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return &evt, nil
	})
	decoders.Register(enums.EventPromoUpdated, 1, func(payload json.RawMessage) (interface{}, error) {
		var evt payloads.PromoUpdatedEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return &evt, nil
	})

	return &Consumer{
		invalidator: invalidator,
		decoders:    decoders,
		logg:        logg,
	}, nil
}

// Process applies one pricing event. Promo changes are acknowledged but leave
// the cache alone: promo rules are evaluated against the database on every
// quote, only tier pricing is cached.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	version := envelope.Version
	if version == 0 {
		version = 1
	}

	switch eventType {
	case enums.EventPricingUpdated:
		decoded, err := c.decoders.Decode(eventType, version, envelope.Data)
		if err != nil {
			return fmt.Errorf("decode pricing.updated: %w", err)
		}
		evt := decoded.(*payloads.PricingUpdatedEvent)
		if evt.ActivityID == uuid.Nil {
			return fmt.Errorf("pricing.updated missing activity id")
		}
		c.invalidator.InvalidateActivityPricing(ctx, evt.ActivityID)
		c.logg.Info(c.logg.WithActivityID(logCtx, evt.ActivityID.String()), "pricing cache invalidated")
		return nil
	case enums.EventPromoUpdated:
		if _, err := c.decoders.Decode(eventType, version, envelope.Data); err != nil {
			return fmt.Errorf("decode promo.updated: %w", err)
		}
		c.logg.Info(logCtx, "promo code updated")
		return nil
	default:
		c.logg.Info(logCtx, "event not handled by pricing consumer")
		return nil
	}
}

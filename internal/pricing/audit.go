package pricing

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/sewcraft/machines-backend/internal/catalog"
	kafkax "github.com/sewcraft/machines-backend/internal/kafka"
	"github.com/sewcraft/machines-backend/internal/redisx"
)

// Auditor consumes the price topic and records each transition for
// operators. Deduped by event id so consumer-group rebalances never double
// an audit row.
type Auditor struct {
	Events *catalog.PriceEventRepo
	Redis  *redis.Client
}

// HandlePriceEvent is wired as the kafka consumer handler.
func (a *Auditor) HandlePriceEvent(ctx context.Context, m kafkago.Message) error {
	var env catalog.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "price-audit", env.EventID)
	if claimed, err := redisx.Claim(ctx, a.Redis, dkey, redisx.TTLDedup); err == nil && !claimed {
		return nil
	}

	msg, err := kafkax.UnwrapPayload[catalog.PriceUpdateMessage](env.Payload)
	if err != nil {
		return err
	}

	productID := msg.ProductID
	if productID == 0 {
		productID, _ = strconv.ParseInt(env.CorrelationID, 10, 64)
	}
	return a.Events.Insert(ctx, &catalog.PriceEvent{
		EventID:       env.EventID,
		ProductID:     productID,
		Type:          env.EventType,
		NewPrice:      msg.NewPrice,
		OriginalPrice: msg.OriginalPrice,
		Message:       msg.Message,
		Producer:      env.Producer,
		OccurredAt:    env.OccurredAt,
	})
}

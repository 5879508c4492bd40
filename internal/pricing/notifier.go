package pricing

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/sewcraft/machines-backend/internal/catalog"
	kafkax "github.com/sewcraft/machines-backend/internal/kafka"
	"github.com/sewcraft/machines-backend/internal/redisx"
)

// PubSubNotifier fans price events out on two transports: the kafka topic
// (durable, feeds the audit consumer and any other service) and redis
// pub/sub channels (feeds the live push streams). Both are best-effort;
// transport failures are logged and swallowed.
type PubSubNotifier struct {
	Producer *kafkax.Producer
	Redis    *redis.Client
	Service  string
}

func (n *PubSubNotifier) Broadcast(ctx context.Context, msg catalog.PriceUpdateMessage) {
	b := n.envelope(msg)
	if n.Producer != nil {
		n.Producer.Publish(catalog.PartitionKey(msg.ProductID), b,
			kafkago.Header{Key: "x-event-type", Value: []byte(msg.Type)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}
	n.publishRedis(ctx, redisx.ChannelPriceBroadcast, b)
}

func (n *PubSubNotifier) SendToUser(ctx context.Context, userID int64, msg catalog.PriceUpdateMessage) {
	n.publishRedis(ctx, fmt.Sprintf(redisx.ChannelPriceUser, userID), n.envelope(msg))
}

func (n *PubSubNotifier) envelope(msg catalog.PriceUpdateMessage) []byte {
	ev := catalog.Envelope{
		EventID:       uuid.NewString(),
		EventType:     msg.Type,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      n.Service,
		CorrelationID: strconv.FormatInt(msg.ProductID, 10),
		Payload:       kafkax.MustMarshal(msg),
	}
	return kafkax.MustMarshal(ev)
}

func (n *PubSubNotifier) publishRedis(ctx context.Context, channel string, b []byte) {
	if n.Redis == nil {
		return
	}
	if err := n.Redis.Publish(ctx, channel, b).Err(); err != nil {
		log.Printf("notify: publish %s: %v", channel, err)
	}
}

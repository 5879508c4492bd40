package catalog

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventPriceChanged    = "PRICE_CHANGED"
	EventPriceReverted   = "PRICE_REVERTED"
	EventScheduleStarted = "SCHEDULE_STARTED"
	EventScheduleEnded   = "SCHEDULE_ENDED"
)

type Envelope struct {
	EventID       string          `json:"event_id"` // uuid
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "machines-sweeper"
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// PriceUpdateMessage is the wire event pushed to clients when a schedule
// boundary fires. Fire-and-forget: a lost message is corrected by the next
// lazy evaluation or sweep tick.
type PriceUpdateMessage struct {
	ProductID     int64           `json:"product_id"`
	NewPrice      decimal.Decimal `json:"new_price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Message       string          `json:"message"`
	Type          string          `json:"type"` // one of the Event* consts
}

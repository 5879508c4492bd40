package redisx

import "time"

const (
	// Cache of the public product response: product:{product_id} -> JSON
	KeyProduct = "product:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Broadcast channel every connected client listens on.
	ChannelPriceBroadcast = "price.updates"

	// Per-user channel for targeted cart updates: price.updates.user:{user_id}
	ChannelPriceUser = "price.updates.user:%d"
)

var (
	TTLProductCache = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
)

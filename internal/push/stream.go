// Package push bridges the redis price channels to connected clients as
// server-sent events. One subscription per connection; a dropped client
// just closes its request context.
package push

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

type Stream struct {
	Redis *redis.Client
	// Heartbeat keeps proxies from reaping idle streams. Zero means 25s.
	Heartbeat time.Duration
}

// Serve streams every message published on the given channels until the
// client disconnects. Delivery is fire-and-forget: clients that miss an
// event recover on their next poll or page load.
func (s *Stream) Serve(w http.ResponseWriter, r *http.Request, channels ...string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := s.Redis.Subscribe(r.Context(), channels...)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	hb := s.Heartbeat
	if hb <= 0 {
		hb = 25 * time.Second
	}
	ticker := time.NewTicker(hb)
	defer ticker.Stop()

	msgs := sub.Channel()
	for {
		select {
		case <-r.Context().Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", m.Payload)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

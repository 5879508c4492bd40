package httpx

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sewcraft/machines-backend/internal/push"
	"github.com/sewcraft/machines-backend/internal/redisx"
)

// PushHandler exposes the live price channels: one broadcast stream every
// client may follow, and a per-user stream that also carries targeted cart
// updates. Channel names are deployment detail, not contract.
type PushHandler struct {
	Stream *push.Stream
}

func (h *PushHandler) Register(r chi.Router) {
	r.Get("/price-updates/stream", h.broadcast)
	r.Get("/users/{userID}/price-updates/stream", h.user)
}

func (h *PushHandler) broadcast(w http.ResponseWriter, r *http.Request) {
	h.Stream.Serve(w, r, redisx.ChannelPriceBroadcast)
}

func (h *PushHandler) user(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID == 0 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	h.Stream.Serve(w, r,
		redisx.ChannelPriceBroadcast,
		fmt.Sprintf(redisx.ChannelPriceUser, userID),
	)
}

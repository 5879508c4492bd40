package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/sewcraft/machines-backend/internal/catalog"
	"github.com/sewcraft/machines-backend/internal/pricing"
	"github.com/sewcraft/machines-backend/internal/redisx"
)

type ProductResponse struct {
	ID             int64            `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description,omitempty"`
	BrandName      string           `json:"brand_name,omitempty"`
	BrandSlug      string           `json:"brand_slug,omitempty"`
	Price          decimal.Decimal  `json:"price"`
	OriginalPrice  *decimal.Decimal `json:"original_price,omitempty"`
	ImageURL       string           `json:"image_url,omitempty"`
	InStock        bool             `json:"in_stock"`
	StockQuantity  int              `json:"stock_quantity"`
	IsOnSale       bool             `json:"is_on_sale"`
	IsNew          bool             `json:"is_new"`
	ScheduledPrice *decimal.Decimal `json:"scheduled_price,omitempty"`
	PriceStartDate *time.Time       `json:"price_start_date,omitempty"`
	PriceEndDate   *time.Time       `json:"price_end_date,omitempty"`
}

func toProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		Title:          p.Title,
		Description:    p.Description,
		BrandName:      p.BrandName,
		BrandSlug:      p.BrandSlug,
		Price:          p.Price,
		OriginalPrice:  p.OriginalPrice,
		ImageURL:       p.ImageURL,
		InStock:        p.InStock,
		StockQuantity:  p.StockQuantity,
		IsOnSale:       p.IsOnSale,
		IsNew:          p.IsNew,
		ScheduledPrice: p.ScheduledPrice,
		PriceStartDate: p.PriceStartDate,
		PriceEndDate:   p.PriceEndDate,
	}
}

type ScheduleRequest struct {
	ScheduledPrice string `json:"scheduled_price"`
	PriceStartDate string `json:"price_start_date"`
	PriceEndDate   string `json:"price_end_date"`
}

type ProductsHandler struct {
	Repo   *catalog.ProductRepo
	Events *catalog.PriceEventRepo
	Engine *pricing.Engine
	Redis  *redis.Client
	Loc    *time.Location
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/products/{id}/price-events", h.listPriceEvents)
	r.Put("/admin/products/{id}/schedule", h.attachSchedule)
	r.Delete("/admin/products/{id}/schedule", h.clearSchedule)
}

func productID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *ProductsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	products, err := h.Repo.ListActive(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Lazy evaluation: the listed price is authoritative even between
	// sweep ticks.
	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		p := &products[i]
		if err := h.Engine.EvaluateAndApply(ctx, p); err != nil {
			log.Printf("http: evaluate product %d: %v", p.ID, err)
		}
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// Cache fast path. The engine deletes this key whenever a schedule
	// boundary moves the price, so a hit is never staler than one write.
	key := fmt.Sprintf(redisx.KeyProduct, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	p, err := h.Repo.FindByID(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.Engine.EvaluateAndApply(ctx, p); err != nil {
		log.Printf("http: evaluate product %d: %v", id, err)
	}

	body, _ := json.Marshal(toProductResponse(p))
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLProductCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *ProductsHandler) listPriceEvents(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	events, err := h.Events.ListForProduct(ctx, id, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// parseScheduleTime accepts a zone-less timestamp interpreted in the
// catalog timezone, or RFC3339.
func (h *ProductsHandler) parseScheduleTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, h.Loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(h.Loc), nil
}

func (h *ProductsHandler) attachSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ScheduledPrice == "" || req.PriceStartDate == "" || req.PriceEndDate == "" {
		writeError(w, http.StatusBadRequest, "scheduled_price, price_start_date and price_end_date are all required")
		return
	}

	price, err := decimal.NewFromString(req.ScheduledPrice)
	if err != nil || price.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "invalid scheduled_price")
		return
	}
	start, err := h.parseScheduleTime(req.PriceStartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price_start_date")
		return
	}
	end, err := h.parseScheduleTime(req.PriceEndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price_end_date")
		return
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "price_end_date must be after price_start_date")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.AttachSchedule(ctx, id, price, start, end)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Evaluate immediately so a window already in progress takes effect
	// now instead of on the next sweep tick.
	if err := h.Engine.EvaluateAndApply(ctx, p); err != nil {
		log.Printf("http: evaluate product %d after schedule attach: %v", id, err)
	}
	h.dropCache(ctx, id)
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *ProductsHandler) clearSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.ClearSchedule(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.dropCache(ctx, id)
	// Carts holding the promotional price snap back to the restored one.
	if n, err := h.Engine.SyncCartPricesForProduct(ctx, id); err != nil {
		log.Printf("http: cart sync after schedule clear (product %d): %v", id, err)
	} else if n > 0 {
		log.Printf("http: synced %d cart line(s) after schedule clear (product %d)", n, id)
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *ProductsHandler) dropCache(ctx context.Context, id int64) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyProduct, id)).Err()
}

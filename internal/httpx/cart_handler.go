package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sewcraft/machines-backend/internal/catalog"
	"github.com/sewcraft/machines-backend/internal/pricing"
)

type CartItemResponse struct {
	ID            int64            `json:"id"`
	ProductID     int64            `json:"product_id"`
	Quantity      int              `json:"quantity"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	ProductName   string           `json:"product_name,omitempty"`
	ProductImage  string           `json:"product_image,omitempty"`
	BrandName     string           `json:"brand_name,omitempty"`
}

func toCartItemResponse(it *catalog.CartItem) CartItemResponse {
	return CartItemResponse{
		ID:            it.ID,
		ProductID:     it.ProductID,
		Quantity:      it.Quantity,
		Price:         it.Price,
		OriginalPrice: it.OriginalPrice,
		ProductName:   it.ProductName,
		ProductImage:  it.ProductImage,
		BrandName:     it.BrandName,
	}
}

type AddCartItemReq struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type FavoriteReq struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
}

type CartHandler struct {
	Carts     *catalog.CartRepo
	Products  *catalog.ProductRepo
	Favorites *catalog.FavoriteRepo
	Engine    *pricing.Engine
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addItem)
	r.Delete("/cart/items/{id}", h.removeItem)
	r.Get("/favorites", h.listFavorites)
	r.Post("/favorites", h.addFavorite)
	r.Delete("/favorites/{productID}", h.removeFavorite)
}

func queryUserID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
}

// loadEvaluated fetches a product and runs the lazy evaluation path so the
// caller never sees a price that drifted from its schedule.
func (h *CartHandler) loadEvaluated(ctx context.Context, productID int64) (*catalog.Product, error) {
	p, err := h.Products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := h.Engine.EvaluateAndApply(ctx, p); err != nil {
		log.Printf("http: evaluate product %d: %v", productID, err)
	}
	return p, nil
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID == 0 || req.ProductID == 0 || req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "user_id, product_id and a positive quantity are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.loadEvaluated(ctx, req.ProductID)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !p.InStock {
		writeError(w, http.StatusConflict, "product out of stock")
		return
	}

	it, err := h.Carts.AddItem(ctx, req.UserID, p, req.Quantity)
	if errors.Is(err, catalog.ErrQuantityLimit) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toCartItemResponse(it))
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil || userID == 0 {
		writeError(w, http.StatusBadRequest, "missing user_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.Carts.ItemsForUser(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Cart open is a sync point: re-evaluate each referenced product and
	// fold the authoritative price back into stale snapshots.
	seen := map[int64]bool{}
	for i := range items {
		pid := items[i].ProductID
		if seen[pid] {
			continue
		}
		seen[pid] = true
		if _, err := h.Engine.SyncCartPricesForProduct(ctx, pid); err != nil {
			log.Printf("http: cart open sync product %d: %v", pid, err)
		}
	}
	if len(seen) > 0 {
		if items, err = h.Carts.ItemsForUser(ctx, userID); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	out := make([]CartItemResponse, 0, len(items))
	for i := range items {
		out = append(out, toCartItemResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil || userID == 0 {
		writeError(w, http.StatusBadRequest, "missing user_id")
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Carts.RemoveItem(ctx, userID, itemID); errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "cart item not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) addFavorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.UserID == 0 || req.ProductID == 0 {
		writeError(w, http.StatusBadRequest, "user_id and product_id are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// Favoriting reads the price too, so it goes through lazy evaluation.
	if _, err := h.loadEvaluated(ctx, req.ProductID); errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.Favorites.Add(ctx, req.UserID, req.ProductID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *CartHandler) removeFavorite(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil || userID == 0 {
		writeError(w, http.StatusBadRequest, "missing user_id")
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Favorites.Remove(ctx, userID, productID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) listFavorites(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil || userID == 0 {
		writeError(w, http.StatusBadRequest, "missing user_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	favs, err := h.Favorites.ListForUser(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, favs)
}

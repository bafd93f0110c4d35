package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/variation"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// VariationHandler keeps one resolver per open product detail view.
type VariationHandler struct {
	lookup  variation.Lookup
	cart    CartStore
	timeout time.Duration
	log     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*variation.Resolver
}

func NewVariationHandler(lookup variation.Lookup, cart CartStore, timeout time.Duration, log *zap.Logger) *VariationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &VariationHandler{
		lookup:   lookup,
		cart:     cart,
		timeout:  timeout,
		log:      log,
		sessions: make(map[string]*variation.Resolver),
	}
}

// OpenVariationsRequestDTO carries the listed product values the UI already
// has. The body is optional.
type OpenVariationsRequestDTO struct {
	Name                string          `json:"name" validate:"max=300"`
	Price               decimal.Decimal `json:"price"`
	Stock               int             `json:"stock" validate:"gte=0"`
	SKU                 string          `json:"sku" validate:"max=100"`
	ImageURL            string          `json:"image_url" validate:"omitempty,url"`
	MaxPurchaseQuantity int             `json:"max_purchase_quantity" validate:"gte=0"`
	HasVariations       bool            `json:"has_variations"`
}

type SelectOptionRequestDTO struct {
	OptionID string `json:"option_id" validate:"required"`
}

type AddToCartResponse struct {
	Item domain.CartLineItem `json:"item"`
	View variation.View      `json:"view"`
	Cart domain.CartSummary  `json:"cart"`
}

func (h *VariationHandler) Open(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	var req OpenVariationsRequestDTO
	if !decodeBody(w, r, &req, true) {
		return
	}
	if req.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "validation_failed", "price must not be negative")
		return
	}

	resolver := variation.New(domain.Product{
		ID:                  productID,
		Name:                req.Name,
		Price:               req.Price,
		Stock:               req.Stock,
		SKU:                 req.SKU,
		ImageURL:            req.ImageURL,
		MaxPurchaseQuantity: req.MaxPurchaseQuantity,
		HasVariations:       req.HasVariations,
	}, h.lookup, variation.WithLogger(h.log))

	h.mu.Lock()
	if prev, ok := h.sessions[productID]; ok {
		prev.Close()
	}
	h.sessions[productID] = resolver
	h.mu.Unlock()

	view, err := resolver.Initialize(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	h.log.Debug("variation session opened",
		zap.String("product_id", productID),
		zap.String("request_id", getRequestID(r.Context())),
		zap.Stringer("state", view.State))
	respondJSON(w, http.StatusCreated, view)
}

func (h *VariationHandler) Get(w http.ResponseWriter, r *http.Request) {
	resolver, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, resolver.View())
}

func (h *VariationHandler) Close(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	h.mu.Lock()
	resolver, ok := h.sessions[productID]
	delete(h.sessions, productID)
	h.mu.Unlock()

	if !ok {
		respondError(w, http.StatusNotFound, "session_not_found", "no open variation session for this product")
		return
	}
	resolver.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (h *VariationHandler) SelectOption(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resolver, ok := h.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		respondError(w, http.StatusBadRequest, "invalid_index", "index must be a non-negative integer")
		return
	}
	var req SelectOptionRequestDTO
	if !decodeBody(w, r, &req, false) {
		return
	}

	view, err := resolver.SelectOption(ctx, index, req.OptionID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *VariationHandler) IncrementQuantity(w http.ResponseWriter, r *http.Request) {
	resolver, ok := h.session(w, r)
	if !ok {
		return
	}
	resolver.IncrementQuantity()
	respondJSON(w, http.StatusOK, resolver.View())
}

func (h *VariationHandler) DecrementQuantity(w http.ResponseWriter, r *http.Request) {
	resolver, ok := h.session(w, r)
	if !ok {
		return
	}
	resolver.DecrementQuantity()
	respondJSON(w, http.StatusOK, resolver.View())
}

func (h *VariationHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	resolver, ok := h.session(w, r)
	if !ok {
		return
	}
	line, err := resolver.AddToCart(h.cart)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, AddToCartResponse{
		Item: line,
		View: resolver.View(),
		Cart: h.cart.Summary(),
	})
}

// CloseAll tears down every open session.
func (h *VariationHandler) CloseAll() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*variation.Resolver)
	h.mu.Unlock()

	for _, resolver := range sessions {
		resolver.Close()
	}
}

func (h *VariationHandler) session(w http.ResponseWriter, r *http.Request) (*variation.Resolver, bool) {
	productID := chi.URLParam(r, "product_id")
	h.mu.Lock()
	resolver, ok := h.sessions[productID]
	h.mu.Unlock()
	if !ok {
		respondError(w, http.StatusNotFound, "session_not_found", "no open variation session for this product")
	}
	return resolver, ok
}

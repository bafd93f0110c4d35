package http

import (
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CartStore is the cart as the HTTP layer uses it.
type CartStore interface {
	AddItem(c domain.Candidate, quantity int) domain.CartLineItem
	RemoveItem(id string)
	UpdateQuantity(id string, quantity int)
	ClearCart()
	GetItemByID(id string) (domain.CartLineItem, bool)
	Summary() domain.CartSummary
}

type CartHandler struct {
	cart CartStore
}

func NewCartHandler(cart CartStore) *CartHandler {
	return &CartHandler{cart: cart}
}

type UpdateQuantityRequestDTO struct {
	// 0 removes the line
	Quantity int `json:"quantity" validate:"gte=0,lte=999"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cart.Summary())
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "item_id")
	if _, ok := h.cart.GetItemByID(itemID); !ok {
		respondError(w, http.StatusNotFound, "item_not_found", "no cart line with this id")
		return
	}

	var req UpdateQuantityRequestDTO
	if !decodeBody(w, r, &req, false) {
		return
	}

	h.cart.UpdateQuantity(itemID, req.Quantity)
	respondJSON(w, http.StatusOK, h.cart.Summary())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "item_id")
	if _, ok := h.cart.GetItemByID(itemID); !ok {
		respondError(w, http.StatusNotFound, "item_not_found", "no cart line with this id")
		return
	}

	h.cart.RemoveItem(itemID)
	respondJSON(w, http.StatusOK, h.cart.Summary())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.ClearCart()
	respondJSON(w, http.StatusOK, h.cart.Summary())
}

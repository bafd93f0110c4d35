package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/notice"
	"github.com/go-chi/chi/v5"
)

type WishlistToggler interface {
	Toggle(ctx context.Context, productID string) (bool, error)
}

type WishlistHandler struct {
	wishlist WishlistToggler
	timeout  time.Duration
}

func NewWishlistHandler(wishlist WishlistToggler, timeout time.Duration) *WishlistHandler {
	return &WishlistHandler{wishlist: wishlist, timeout: timeout}
}

type WishlistToggleResponse struct {
	ProductID  string `json:"product_id"`
	Wishlisted bool   `json:"wishlisted"`
}

func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	on, err := h.wishlist.Toggle(ctx, productID)
	if err != nil {
		// the toggle has been reverted locally; the body still reports the state
		respondJSON(w, http.StatusBadGateway, struct {
			ErrorResponse
			WishlistToggleResponse
		}{
			ErrorResponse:          ErrorResponse{Error: err.Error(), Code: "wishlist_update_failed"},
			WishlistToggleResponse: WishlistToggleResponse{ProductID: productID, Wishlisted: on},
		})
		return
	}
	respondJSON(w, http.StatusOK, WishlistToggleResponse{ProductID: productID, Wishlisted: on})
}

type NoticeDrainer interface {
	Drain() []notice.Notice
}

type NoticeHandler struct {
	notices NoticeDrainer
}

func NewNoticeHandler(notices NoticeDrainer) *NoticeHandler {
	return &NoticeHandler{notices: notices}
}

// List returns the notices raised since the previous call.
func (h *NoticeHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.notices.Drain())
}

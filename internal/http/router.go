package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Cart       *CartHandler
	Variations *VariationHandler
	Wishlist   *WishlistHandler
	Notices    *NoticeHandler
}

func NewRouter(h Handlers, requestTimeout time.Duration, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(log))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Put("/items/{item_id}", h.Cart.UpdateQuantity)
			r.Delete("/items/{item_id}", h.Cart.RemoveItem)
		})
		r.Route("/products/{product_id}/variations", func(r chi.Router) {
			r.Post("/", h.Variations.Open)
			r.Get("/", h.Variations.Get)
			r.Delete("/", h.Variations.Close)
			r.Post("/levels/{index}", h.Variations.SelectOption)
			r.Post("/quantity/increment", h.Variations.IncrementQuantity)
			r.Post("/quantity/decrement", h.Variations.DecrementQuantity)
			r.Post("/cart", h.Variations.AddToCart)
		})
		r.Post("/wishlist/{product_id}/toggle", h.Wishlist.Toggle)
		r.Get("/notices", h.Notices.List)
	})

	return otelhttp.NewHandler(r, "storefront")
}

package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter assembles the storefront's HTTP surface.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(WithSession)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", handler.GetCart)
		r.Delete("/", handler.ClearCart)
		r.Post("/items", handler.AddItem)
		r.Delete("/items/{productID}/{size}", handler.RemoveItem)
	})

	r.Post("/checkout", handler.Checkout)
	r.Get("/checkout/success", handler.PaymentSuccess)
	r.Get("/checkout/cancel", handler.PaymentCancel)

	// The processor never uses the session cookie it gets issued here.
	r.Post("/webhooks/payment", handler.PaymentWebhook)

	return otelhttp.NewHandler(r, "storefront")
}

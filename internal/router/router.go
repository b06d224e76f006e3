package router

import (
	"net/http"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/handler"
	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
// Storefront routes identify the customer via the X-Customer-ID header;
// back-office routes under /api/admin/ require the admin API key.
func New(
	productHandler *handler.ProductHandler,
	cartHandler *handler.CartHandler,
	orderHandler *handler.OrderHandler,
	adminAPIKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Catalogue
	mux.HandleFunc("GET /api/products", productHandler.List)
	mux.HandleFunc("GET /api/products/{id}", productHandler.GetByID)

	// Cart
	mux.HandleFunc("GET /api/cart", cartHandler.Get)
	mux.HandleFunc("DELETE /api/cart", cartHandler.Clear)
	mux.HandleFunc("POST /api/cart/items", cartHandler.AddItem)
	mux.HandleFunc("PUT /api/cart/items/{productId}", cartHandler.UpdateItem)
	mux.HandleFunc("DELETE /api/cart/items/{productId}", cartHandler.RemoveItem)

	// Orders
	mux.HandleFunc("POST /api/orders", orderHandler.Place)
	mux.HandleFunc("GET /api/orders", orderHandler.ListMine)
	mux.HandleFunc("GET /api/orders/{id}", orderHandler.GetByID)
	mux.HandleFunc("POST /api/orders/{id}/verify-payment", orderHandler.VerifyPayment)
	mux.HandleFunc("PUT /api/orders/{id}/cancel", orderHandler.Cancel)

	// Back office
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET /api/admin/orders", orderHandler.ListAll)
	adminMux.HandleFunc("GET /api/admin/orders/{id}", orderHandler.GetAny)
	adminMux.HandleFunc("PUT /api/admin/orders/{id}/status", orderHandler.UpdateStatus)
	adminMux.HandleFunc("DELETE /api/admin/orders/{id}", orderHandler.Delete)
	mux.Handle("/api/admin/", middleware.AdminAuth(adminAPIKey, logger)(adminMux))

	// Apply middleware in order: Recovery -> Logging -> CORS
	var h http.Handler = mux
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}

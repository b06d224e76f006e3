package handler

import (
	"net/http"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/model"
	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/service"

	"github.com/rs/zerolog"
)

// CartHandler handles cart HTTP requests.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Get handles GET /api/cart requests.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	custID, err := customerID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	cart, err := h.service.Get(r.Context(), custID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// AddItem handles POST /api/cart/items requests.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	custID, err := customerID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var req model.AddCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.service.AddItem(r.Context(), custID, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	cart, err := h.service.Get(r.Context(), custID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, cart)
}

// UpdateItem handles PUT /api/cart/items/{productId} requests.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	custID, err := customerID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var req model.UpdateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.service.UpdateItem(r.Context(), custID, r.PathValue("productId"), req.Quantity); err != nil {
		writeError(w, err, h.logger)
		return
	}

	cart, err := h.service.Get(r.Context(), custID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/cart/items/{productId} requests.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	custID, err := customerID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.service.RemoveItem(r.Context(), custID, r.PathValue("productId")); err != nil {
		writeError(w, err, h.logger)
		return
	}

	cart, err := h.service.Get(r.Context(), custID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// Clear handles DELETE /api/cart requests.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	custID, err := customerID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.service.Clear(r.Context(), custID); err != nil {
		writeError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

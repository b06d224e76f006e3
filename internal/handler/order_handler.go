package handler

import (
	"net/http"
	"strconv"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/model"
	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles storefront and back-office order HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Place handles POST /api/orders requests.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	custID, err := customerID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var req model.PlaceOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	resp, err := h.service.PlaceOrder(r.Context(), custID, &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// VerifyPayment handles POST /api/orders/{id}/verify-payment requests.
// A rejected signature is a 400 with the recorded outcome, not a server
// error, so the client can retry the checkout flow.
func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	custID, err := customerID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var req model.VerifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	result, err := h.service.VerifyPayment(r.Context(), custID, orderID, &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if !result.Verified {
		writeJSON(w, http.StatusBadRequest, result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Cancel handles PUT /api/orders/{id}/cancel requests.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	custID, err := customerID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var req model.CancelOrderRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err, h.logger)
			return
		}
	}

	order, err := h.service.CancelOrder(r.Context(), custID, orderID, req.Reason)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	custID, err := customerID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	order, err := h.service.GetByID(r.Context(), custID, orderID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// ListMine handles GET /api/orders requests.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	custID, err := customerID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	orders, err := h.service.ListByCustomer(r.Context(), custID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	writeJSON(w, http.StatusOK, orders)
}

// ListAll handles GET /api/admin/orders requests.
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := h.service.ListAll(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetAny handles GET /api/admin/orders/{id} requests.
func (h *OrderHandler) GetAny(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	order, err := h.service.GetAnyByID(r.Context(), orderID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PUT /api/admin/orders/{id}/status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var req model.UpdateOrderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), orderID, &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Delete handles DELETE /api/admin/orders/{id} requests.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), orderID); err != nil {
		writeError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, model.NewValidationError("invalid order ID format")
	}
	return orderID, nil
}

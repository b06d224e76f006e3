package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/abhishekmaurya3976-blip/gold-sub000/internal/model"

	"github.com/rs/zerolog"
)

// customerIDHeader identifies the customer on storefront routes. Session
// mechanics live at the edge; by the time a request reaches this service
// the header is trusted.
const customerIDHeader = "X-Customer-ID"

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure cannot be reported to
	// the client anymore.
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps a service error onto an HTTP status and a structured
// error body. Unexpected errors are suppressed to a generic message.
func writeError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	status, body := errorResponse(err)

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("handler error")
	} else {
		logger.Warn().Err(err).Int("status", status).Msg("request rejected")
	}

	writeJSON(w, status, body)
}

func errorResponse(err error) (int, model.ErrorResponse) {
	var invErr *model.InventoryError
	if errors.As(err, &invErr) {
		return http.StatusBadRequest, model.ErrorResponse{
			Error:   model.ErrCodeInventory,
			Message: "Some items in your cart are unavailable",
			Items:   invErr.Violations,
		}
	}

	var gwErr *model.GatewayError
	if errors.As(err, &gwErr) {
		return http.StatusBadGateway, model.ErrorResponse{
			Error:   model.ErrCodeGateway,
			Message: "Payment provider is unavailable, please try again",
		}
	}

	var domErr *model.DomainError
	if errors.As(err, &domErr) {
		status := http.StatusBadRequest
		switch domErr.Code {
		case model.ErrCodeOrderNotFound, model.ErrCodeProductNotFound, model.ErrCodeCartItemNotFound:
			status = http.StatusNotFound
		case model.ErrCodeUnauthorised:
			status = http.StatusUnauthorized
		}
		return status, model.ErrorResponse{Error: domErr.Code, Message: domErr.Message}
	}

	return http.StatusInternalServerError, model.ErrorResponse{
		Error:   model.ErrCodeInternalError,
		Message: "Something went wrong",
	}
}

// customerID extracts the customer identity from the request headers.
func customerID(r *http.Request) (string, error) {
	id := r.Header.Get(customerIDHeader)
	if id == "" {
		return "", model.NewDomainError(model.ErrCodeUnauthorised, "customer identity is required")
	}
	return id, nil
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.NewDomainError(model.ErrCodeInvalidJSON, "invalid request body")
	}
	return nil
}

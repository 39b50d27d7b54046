package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/minutmaidman/shopcore/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidID           = "invalid_id"
	codeInvalidQuantity     = "invalid_quantity"
	codeInvalidStatus       = "invalid_status"
	codeProductNotFound     = "product_not_found"
	codeOrderNotFound       = "order_not_found"
	codeInsufficientStock   = "insufficient_stock"
	codeEmptyCart           = "empty_cart"
	codeCartUnavailable     = "cart_unavailable"
	codeInvalidTransition   = "invalid_transition"
	codeIdempotencyConflict = "idempotency_conflict"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	OrderID string `json:"order_id,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the shared error taxonomy onto HTTP statuses.
// orderID, when set, points the caller at the order the failure was recorded
// on.
func writeDomainError(w http.ResponseWriter, err error, orderID string) {
	status, code := http.StatusInternalServerError, codeInternalError
	msg := "internal error"

	// Reservation failures can arrive wrapped with call-site context, so
	// matching goes through errors.Is.
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		status, code, msg = http.StatusNotFound, codeProductNotFound, domain.ErrProductNotFound.Error()
	case errors.Is(err, domain.ErrOrderNotFound):
		status, code, msg = http.StatusNotFound, codeOrderNotFound, domain.ErrOrderNotFound.Error()
	case errors.Is(err, domain.ErrInsufficientStock):
		status, code, msg = http.StatusBadRequest, codeInsufficientStock, domain.ErrInsufficientStock.Error()
	case errors.Is(err, domain.ErrEmptyCart):
		status, code, msg = http.StatusBadRequest, codeEmptyCart, domain.ErrEmptyCart.Error()
	case errors.Is(err, domain.ErrCartUnavailable):
		status, code, msg = http.StatusBadGateway, codeCartUnavailable, domain.ErrCartUnavailable.Error()
	case errors.Is(err, domain.ErrInvalidQuantity):
		status, code, msg = http.StatusBadRequest, codeInvalidQuantity, domain.ErrInvalidQuantity.Error()
	case errors.Is(err, domain.ErrInvalidID):
		status, code, msg = http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		status, code, msg = http.StatusConflict, codeInvalidTransition, domain.ErrInvalidTransition.Error()
	case errors.Is(err, domain.ErrIdempotencyConflict):
		status, code, msg = http.StatusConflict, codeIdempotencyConflict, domain.ErrIdempotencyConflict.Error()
	case errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, domain.ErrUpstreamUnavailable):
		status, code, msg = http.StatusBadGateway, codeUpstreamUnavailable, domain.ErrUpstreamUnavailable.Error()
	}

	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code, OrderID: orderID})
}

// NotFoundHandler returns a JSON 404 response for unknown routes.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
}

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minutmaidman/shopcore/internal/app"
	"github.com/minutmaidman/shopcore/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// OrderOrchestrator is the minimal interface the order handlers need.
type OrderOrchestrator interface {
	CreateOrder(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, in app.UpdateStatusInput) (domain.Order, error)
}

// HandleCreateOrder returns the handler for POST /orders.
func HandleCreateOrder(svc OrderOrchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createOrderRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.CustomerID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "customer_id is required")
			return
		}

		token := req.IdempotencyToken
		if token == "" {
			token = r.Header.Get(idempotencyHeader)
		}

		order, err := svc.CreateOrder(r.Context(), app.CreateOrderInput{
			CustomerID:     req.CustomerID,
			IdempotencyKey: token,
		})
		if err != nil {
			// A reservation failure leaves a failed order behind; point the
			// caller at it.
			writeDomainError(w, err, order.ID)
			return
		}

		writeJSON(w, http.StatusCreated, toOrderResponse(order))
	}
}

// HandleOrderByID returns the handler for GET /orders/{orderId} and
// PUT /orders/{orderId}/status.
func HandleOrderByID(svc OrderOrchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, action, ok := parseOrderPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			order, err := svc.GetOrder(r.Context(), orderID)
			if err != nil {
				writeDomainError(w, err, "")
				return
			}
			writeJSON(w, http.StatusOK, toOrderResponse(order))
		case action == "status" && r.Method == http.MethodPut:
			handleUpdateStatus(w, r, svc, orderID)
		case action == "":
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func handleUpdateStatus(w http.ResponseWriter, r *http.Request, svc OrderOrchestrator, orderID string) {
	var req struct {
		Status string `json:"status"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, codeInvalidStatus, "status is required")
		return
	}

	order, err := svc.UpdateStatus(r.Context(), app.UpdateStatusInput{
		OrderID: orderID,
		Status:  domain.OrderStatus(req.Status),
	})
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type createOrderRequest struct {
	CustomerID       string `json:"customer_id"`
	IdempotencyToken string `json:"idempotency_token,omitempty"`
}

type orderItemResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  uint            `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type orderResponse struct {
	ID         string              `json:"id"`
	CustomerID string              `json:"customer_id"`
	Items      []orderItemResponse `json:"items"`
	Status     string              `json:"status"`
	Total      decimal.Decimal     `json:"total"`
	StatusNote string              `json:"status_note,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func toOrderResponse(order domain.Order) orderResponse {
	items := make([]orderItemResponse, len(order.Items))
	for i, it := range order.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}
	return orderResponse{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Items:      items,
		Status:     string(order.Status),
		Total:      order.Total,
		StatusNote: order.StatusNote,
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt,
	}
}

func parseOrderPath(path string) (orderID, action string, ok bool) {
	rest, found := strings.CutPrefix(path, "/orders/")
	if !found || rest == "" {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
		return parts[0], "", parts[0] != ""
	case 2:
		return parts[0], parts[1], parts[0] != ""
	}
	return "", "", false
}

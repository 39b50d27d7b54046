package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/minutmaidman/shopcore/internal/domain"
)

// StockLedger is the subset of ledger operations the handlers need.
type StockLedger interface {
	GetAvailability(ctx context.Context, productID string) (domain.StockRecord, error)
	Reserve(ctx context.Context, productID string, quantity uint) (uint, error)
	Release(ctx context.Context, productID string, quantity uint) (uint, error)
	SetStock(ctx context.Context, productID string, quantity uint) (domain.StockRecord, error)
}

// HandleStock routes /stock/{productId} plus its reserve and release
// actions.
func HandleStock(svc StockLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, action, ok := parseStockPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			handleGetStock(w, r, svc, productID)
		case action == "" && r.Method == http.MethodPut:
			handleSetStock(w, r, svc, productID)
		case action == "reserve" && r.Method == http.MethodPost:
			handleReserve(w, r, svc, productID)
		case action == "release" && r.Method == http.MethodPost:
			handleRelease(w, r, svc, productID)
		case action == "":
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

type stockResponse struct {
	ProductID string `json:"product_id"`
	Quantity  uint   `json:"quantity"`
	Reserved  uint   `json:"reserved"`
}

type quantityRequest struct {
	Quantity uint `json:"quantity"`
}

func handleGetStock(w http.ResponseWriter, r *http.Request, svc StockLedger, productID string) {
	rec, err := svc.GetAvailability(r.Context(), productID)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{
		ProductID: rec.ProductID,
		Quantity:  rec.Quantity,
		Reserved:  rec.Reserved,
	})
}

func handleSetStock(w http.ResponseWriter, r *http.Request, svc StockLedger, productID string) {
	req, ok := decodeQuantity(w, r)
	if !ok {
		return
	}
	rec, err := svc.SetStock(r.Context(), productID, req.Quantity)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{
		ProductID: rec.ProductID,
		Quantity:  rec.Quantity,
		Reserved:  rec.Reserved,
	})
}

func handleReserve(w http.ResponseWriter, r *http.Request, svc StockLedger, productID string) {
	req, ok := decodeQuantity(w, r)
	if !ok {
		return
	}
	reserved, err := svc.Reserve(r.Context(), productID, req.Quantity)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success  bool `json:"success"`
		Reserved uint `json:"reserved"`
	}{Success: true, Reserved: reserved})
}

func handleRelease(w http.ResponseWriter, r *http.Request, svc StockLedger, productID string) {
	req, ok := decodeQuantity(w, r)
	if !ok {
		return
	}
	released, err := svc.Release(r.Context(), productID, req.Quantity)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success  bool `json:"success"`
		Released uint `json:"released"`
	}{Success: true, Released: released})
}

func decodeQuantity(w http.ResponseWriter, r *http.Request) (quantityRequest, bool) {
	var req quantityRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return quantityRequest{}, false
	}
	return req, true
}

func parseStockPath(path string) (productID, action string, ok bool) {
	rest, found := strings.CutPrefix(path, "/stock/")
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

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

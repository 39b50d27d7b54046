package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/minutmaidman/shopcore/internal/domain"
)

type stubLedger struct {
	rec        domain.StockRecord
	err        error
	gotProduct string
	gotQty     uint
}

func (s *stubLedger) GetAvailability(_ context.Context, productID string) (domain.StockRecord, error) {
	s.gotProduct = productID
	return s.rec, s.err
}

func (s *stubLedger) Reserve(_ context.Context, productID string, quantity uint) (uint, error) {
	s.gotProduct, s.gotQty = productID, quantity
	if s.err != nil {
		return 0, s.err
	}
	return quantity, nil
}

func (s *stubLedger) Release(_ context.Context, productID string, quantity uint) (uint, error) {
	s.gotProduct, s.gotQty = productID, quantity
	if s.err != nil {
		return 0, s.err
	}
	return quantity, nil
}

func (s *stubLedger) SetStock(_ context.Context, productID string, quantity uint) (domain.StockRecord, error) {
	s.gotProduct, s.gotQty = productID, quantity
	if s.err != nil {
		return domain.StockRecord{}, s.err
	}
	return domain.StockRecord{ProductID: productID, Quantity: quantity, Reserved: s.rec.Reserved}, nil
}

func TestHandleStockGet(t *testing.T) {
	ledger := &stubLedger{rec: domain.StockRecord{ProductID: "1", Quantity: 50, Reserved: 5}}
	handler := HandleStock(ledger)

	req := httptest.NewRequest(http.MethodGet, "/stock/1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp stockResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ProductID != "1" || resp.Quantity != 50 || resp.Reserved != 5 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandleStockErrors(t *testing.T) {
	cases := []struct {
		name       string
		method     string
		path       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown product",
			method:     http.MethodGet,
			path:       "/stock/99",
			err:        domain.ErrProductNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "product_not_found",
		},
		{
			name:       "insufficient stock on reserve",
			method:     http.MethodPost,
			path:       "/stock/1/reserve",
			body:       `{"quantity": 100}`,
			err:        domain.ErrInsufficientStock,
			wantStatus: http.StatusBadRequest,
			wantCode:   "insufficient_stock",
		},
		{
			name:       "zero quantity",
			method:     http.MethodPost,
			path:       "/stock/1/reserve",
			body:       `{"quantity": 0}`,
			err:        domain.ErrInvalidQuantity,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_quantity",
		},
		{
			name:       "malformed body",
			method:     http.MethodPost,
			path:       "/stock/1/reserve",
			body:       `{"quantity": "ten"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request_body",
		},
		{
			name:       "unknown field rejected",
			method:     http.MethodPost,
			path:       "/stock/1/release",
			body:       `{"quantity": 1, "extra": true}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request_body",
		},
		{
			name:       "unknown action",
			method:     http.MethodPost,
			path:       "/stock/1/destroy",
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "bare stock path",
			method:     http.MethodGet,
			path:       "/stock/",
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "delete not allowed",
			method:     http.MethodDelete,
			path:       "/stock/1",
			wantStatus: http.StatusMethodNotAllowed,
			wantCode:   "method_not_allowed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := HandleStock(&stubLedger{err: tc.err})

			var body *strings.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			} else {
				body = strings.NewReader("{}")
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Code != tc.wantCode {
				t.Fatalf("expected code %q, got %q", tc.wantCode, resp.Code)
			}
		})
	}
}

func TestHandleStockReserve(t *testing.T) {
	ledger := &stubLedger{}
	handler := HandleStock(ledger)

	req := httptest.NewRequest(http.MethodPost, "/stock/1/reserve", strings.NewReader(`{"quantity": 3}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ledger.gotProduct != "1" || ledger.gotQty != 3 {
		t.Fatalf("unexpected call: product=%q qty=%d", ledger.gotProduct, ledger.gotQty)
	}
	var resp struct {
		Success  bool `json:"success"`
		Reserved uint `json:"reserved"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Reserved != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandleStockRelease(t *testing.T) {
	ledger := &stubLedger{}
	handler := HandleStock(ledger)

	req := httptest.NewRequest(http.MethodPost, "/stock/1/release", strings.NewReader(`{"quantity": 2}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success  bool `json:"success"`
		Released uint `json:"released"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Released != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandleStockSet(t *testing.T) {
	ledger := &stubLedger{}
	handler := HandleStock(ledger)

	req := httptest.NewRequest(http.MethodPut, "/stock/7", strings.NewReader(`{"quantity": 25}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ledger.gotProduct != "7" || ledger.gotQty != 25 {
		t.Fatalf("unexpected call: product=%q qty=%d", ledger.gotProduct, ledger.gotQty)
	}
}

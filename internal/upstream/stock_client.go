package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/minutmaidman/shopcore/internal/domain"
)

// StockClient talks to the reservation ledger service.
type StockClient struct {
	client
}

func NewStockClient(baseURL string, timeout time.Duration, retries uint, logger *zap.Logger) *StockClient {
	return &StockClient{client: newClient(baseURL, timeout, retries, logger)}
}

type quantityPayload struct {
	Quantity uint `json:"quantity"`
}

func (c *StockClient) GetStock(ctx context.Context, productID string) (domain.StockRecord, error) {
	var payload struct {
		ProductID string `json:"product_id"`
		Quantity  uint   `json:"quantity"`
		Reserved  uint   `json:"reserved"`
	}
	path := "/stock/" + url.PathEscape(productID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return domain.StockRecord{}, mapStockError(err)
	}
	return domain.StockRecord{
		ProductID: payload.ProductID,
		Quantity:  payload.Quantity,
		Reserved:  payload.Reserved,
	}, nil
}

func (c *StockClient) Reserve(ctx context.Context, productID string, quantity uint) error {
	var out struct {
		Success  bool `json:"success"`
		Reserved uint `json:"reserved"`
	}
	path := "/stock/" + url.PathEscape(productID) + "/reserve"
	if err := c.doJSON(ctx, http.MethodPost, path, quantityPayload{Quantity: quantity}, &out); err != nil {
		return mapStockError(err)
	}
	return nil
}

func (c *StockClient) Release(ctx context.Context, productID string, quantity uint) (uint, error) {
	var out struct {
		Success  bool `json:"success"`
		Released uint `json:"released"`
	}
	path := "/stock/" + url.PathEscape(productID) + "/release"
	if err := c.doJSON(ctx, http.MethodPost, path, quantityPayload{Quantity: quantity}, &out); err != nil {
		return 0, mapStockError(err)
	}
	return out.Released, nil
}

// mapStockError converts ledger error bodies into the shared taxonomy.
func mapStockError(err error) error {
	var se *StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code {
	case "product_not_found":
		return domain.ErrProductNotFound
	case "insufficient_stock":
		return domain.ErrInsufficientStock
	case "invalid_quantity":
		return domain.ErrInvalidQuantity
	}
	if se.Status == http.StatusNotFound {
		return domain.ErrProductNotFound
	}
	return err
}

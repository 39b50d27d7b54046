package upstream

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/minutmaidman/shopcore/internal/domain"
)

// CartClient talks to the cart service.
type CartClient struct {
	client
}

func NewCartClient(baseURL string, timeout time.Duration, retries uint, logger *zap.Logger) *CartClient {
	return &CartClient{client: newClient(baseURL, timeout, retries, logger)}
}

type cartItemPayload struct {
	ProductID string          `json:"product_id"`
	Quantity  uint            `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type cartPayload struct {
	Items []cartItemPayload `json:"items"`
	Total decimal.Decimal   `json:"total"`
}

func (c *CartClient) GetCart(ctx context.Context, customerID string) (domain.CartSnapshot, error) {
	var payload cartPayload
	path := "/cart/" + url.PathEscape(customerID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return domain.CartSnapshot{}, err
	}

	snapshot := domain.CartSnapshot{
		CustomerID: customerID,
		Items:      make([]domain.CartItem, len(payload.Items)),
	}
	for i, it := range payload.Items {
		snapshot.Items[i] = domain.CartItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}
	return snapshot, nil
}

func (c *CartClient) ClearCart(ctx context.Context, customerID string) error {
	var out struct {
		Success bool `json:"success"`
	}
	path := "/cart/" + url.PathEscape(customerID) + "/clear"
	return c.doJSON(ctx, http.MethodDelete, path, nil, &out)
}

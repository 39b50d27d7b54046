package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/minutmaidman/shopcore/internal/domain"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Put(ctx context.Context, order domain.Order) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		const stmt = `
INSERT INTO orders (id, customer_id, status, total, status_note, idempotency_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

		_, err := db(txCtx, r.pool).Exec(txCtx, stmt,
			order.ID,
			order.CustomerID,
			string(order.Status),
			order.Total,
			order.StatusNote,
			order.IdempotencyKey,
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrIdempotencyConflict
			}
			return fmt.Errorf("insert order: %w", err)
		}

		const itemStmt = `
INSERT INTO order_items (order_id, position, product_id, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5)`

		for i, item := range order.Items {
			_, err := db(txCtx, r.pool).Exec(txCtx, itemStmt,
				order.ID, i, item.ProductID, int64(item.Quantity), item.UnitPrice,
			)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
}

func (r *OrderRepository) Get(ctx context.Context, orderID string) (domain.Order, error) {
	const query = `
SELECT id, customer_id, status, total, status_note, idempotency_key, created_at, updated_at
FROM orders
WHERE id = $1`

	var o domain.Order
	var status string
	var total decimal.Decimal
	err := db(ctx, r.pool).QueryRow(ctx, query, orderID).
		Scan(&o.ID, &o.CustomerID, &status, &total, &o.StatusNote, &o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	o.Status = domain.OrderStatus(status)
	o.Total = total

	items, err := r.listItems(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items
	return o, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, note string) error {
	const stmt = `UPDATE orders SET status = $2, status_note = $3, updated_at = NOW() WHERE id = $1`

	tag, err := db(ctx, r.pool).Exec(ctx, stmt, orderID, string(status), note)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	const query = `SELECT id FROM orders WHERE idempotency_key = $1`

	var id string
	err := db(ctx, r.pool).QueryRow(ctx, query, key).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find order by idempotency key: %w", err)
	}

	order, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) listItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	const query = `
SELECT product_id, quantity, unit_price
FROM order_items
WHERE order_id = $1
ORDER BY position`

	rows, err := db(ctx, r.pool).Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		var quantity int64
		if err := rows.Scan(&item.ProductID, &quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.Quantity = uint(quantity)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

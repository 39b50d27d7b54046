package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minutmaidman/shopcore/internal/domain"
)

type StockRepository struct {
	pool *pgxpool.Pool
}

func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

func (r *StockRepository) Get(ctx context.Context, productID string) (domain.StockRecord, error) {
	const query = `SELECT product_id, quantity, reserved FROM stock WHERE product_id = $1`
	return scanStock(db(ctx, r.pool).QueryRow(ctx, query, productID))
}

// Update locks the product's row for the duration of fn, so concurrent
// reservations for the same product serialize their read-modify-write.
func (r *StockRepository) Update(ctx context.Context, productID string, fn func(*domain.StockRecord) error) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		const query = `SELECT product_id, quantity, reserved FROM stock WHERE product_id = $1 FOR UPDATE`
		rec, err := scanStock(db(txCtx, r.pool).QueryRow(txCtx, query, productID))
		if err != nil {
			return err
		}

		if err := fn(&rec); err != nil {
			return err
		}

		const stmt = `UPDATE stock SET quantity = $2, reserved = $3 WHERE product_id = $1`
		if _, err := db(txCtx, r.pool).Exec(txCtx, stmt, rec.ProductID, int64(rec.Quantity), int64(rec.Reserved)); err != nil {
			return fmt.Errorf("update stock: %w", err)
		}
		return nil
	})
}

func (r *StockRepository) Put(ctx context.Context, rec domain.StockRecord) error {
	const stmt = `
INSERT INTO stock (product_id, quantity, reserved)
VALUES ($1, $2, $3)
ON CONFLICT (product_id) DO UPDATE SET quantity = EXCLUDED.quantity, reserved = EXCLUDED.reserved`

	if _, err := db(ctx, r.pool).Exec(ctx, stmt, rec.ProductID, int64(rec.Quantity), int64(rec.Reserved)); err != nil {
		return fmt.Errorf("put stock: %w", err)
	}
	return nil
}

// Seed inserts records only for products that do not exist yet, keeping
// counters across restarts.
func (r *StockRepository) Seed(ctx context.Context, quantities map[string]uint) error {
	const stmt = `
INSERT INTO stock (product_id, quantity, reserved)
VALUES ($1, $2, 0)
ON CONFLICT (product_id) DO NOTHING`

	for id, qty := range quantities {
		if _, err := db(ctx, r.pool).Exec(ctx, stmt, id, int64(qty)); err != nil {
			return fmt.Errorf("seed stock %s: %w", id, err)
		}
	}
	return nil
}

func scanStock(row pgx.Row) (domain.StockRecord, error) {
	var rec domain.StockRecord
	var quantity, reserved int64
	if err := row.Scan(&rec.ProductID, &quantity, &reserved); err != nil {
		if err == pgx.ErrNoRows {
			return domain.StockRecord{}, domain.ErrProductNotFound
		}
		return domain.StockRecord{}, fmt.Errorf("scan stock: %w", err)
	}
	rec.Quantity = uint(quantity)
	rec.Reserved = uint(reserved)
	return rec, nil
}

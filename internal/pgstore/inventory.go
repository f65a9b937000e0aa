// Package pgstore implements the storage contracts on Postgres.
package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kevin11236029/order-3/internal/orders"
)

type Inventory struct{ DB *pgxpool.Pool }

func (s *Inventory) Get(ctx context.Context, id string) (orders.Product, error) {
	var p orders.Product
	err := s.DB.QueryRow(ctx,
		`SELECT id, name, price, stock, COALESCE(image,''), COALESCE(tags,'{}') FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Image, &p.Tags)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, orders.ErrProductNotFound
	}
	if err != nil {
		return orders.Product{}, err
	}
	return p, nil
}

func (s *Inventory) List(ctx context.Context) ([]orders.Product, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT id, name, price, stock, COALESCE(image,''), COALESCE(tags,'{}') FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Product
	for rows.Next() {
		var p orders.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Image, &p.Tags); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DecrementAll locks each product row (FOR UPDATE), checks stock and
// decrements. Any shortfall rolls the whole transaction back, so
// concurrent orders racing for the last unit cannot both commit.
func (s *Inventory) DecrementAll(ctx context.Context, lines []orders.OrderLine) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var short []orders.ShortStock
	for _, l := range lines {
		var stock int
		err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, l.ProductID).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			short = append(short, orders.ShortStock{ProductID: l.ProductID, Required: l.Quantity})
			continue
		}
		if err != nil {
			return err
		}
		if stock < l.Quantity {
			short = append(short, orders.ShortStock{ProductID: l.ProductID, Required: l.Quantity, Available: stock})
			continue
		}
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2 WHERE id=$1`, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	if len(short) > 0 {
		return &orders.InsufficientStockError{Details: short} // rollback via defer
	}
	return tx.Commit(ctx)
}

func (s *Inventory) IncrementAll(ctx context.Context, lines []orders.OrderLine) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, l := range lines {
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id=$1`, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Restock increments stock and writes the log row in one transaction.
func (s *Inventory) Restock(ctx context.Context, id string, qty int) (orders.Product, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return orders.Product{}, err
	}
	defer tx.Rollback(ctx)

	var p orders.Product
	err = tx.QueryRow(ctx, `
		UPDATE products SET stock = stock + $2 WHERE id=$1
		RETURNING id, name, price, stock, COALESCE(image,''), COALESCE(tags,'{}')`, id, qty).
		Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Image, &p.Tags)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, orders.ErrProductNotFound
	}
	if err != nil {
		return orders.Product{}, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO restock_logs(product_name, quantity) VALUES ($1,$2)`, p.Name, qty); err != nil {
		return orders.Product{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return orders.Product{}, err
	}
	return p, nil
}

func (s *Inventory) Restocks(ctx context.Context) ([]orders.RestockEntry, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT logged_at, product_name, quantity FROM restock_logs ORDER BY logged_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.RestockEntry
	for rows.Next() {
		var e orders.RestockEntry
		if err := rows.Scan(&e.Time, &e.ProductName, &e.Quantity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

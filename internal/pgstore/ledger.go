package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kevin11236029/order-3/internal/orders"
)

type Ledger struct{ DB *pgxpool.Pool }

const orderColumns = `id, order_date, order_number, customer_name, phone, address,
	pickup_date, note, items, total, completed, created_at`

func scanOrder(row pgx.Row) (orders.Order, error) {
	var o orders.Order
	var items []byte
	err := row.Scan(&o.ID, &o.OrderDate, &o.OrderNumber, &o.Customer.Name, &o.Customer.Phone,
		&o.Customer.Address, &o.Customer.PickupDate, &o.Customer.Note, &items,
		&o.Total, &o.Completed, &o.CreatedAt)
	if err != nil {
		return orders.Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return orders.Order{}, fmt.Errorf("decode order items: %w", err)
	}
	return o, nil
}

func (s *Ledger) Append(ctx context.Context, o *orders.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO orders(id, order_date, order_number, customer_name, phone, address,
		                   pickup_date, note, items, total, completed, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		o.ID, o.OrderDate, o.OrderNumber, o.Customer.Name, o.Customer.Phone, o.Customer.Address,
		o.Customer.PickupDate, o.Customer.Note, items, o.Total, o.Completed, o.CreatedAt)
	return err
}

func (s *Ledger) Get(ctx context.Context, id string) (orders.Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, err
}

func (s *Ledger) Find(ctx context.Context, f orders.OrderFilter) ([]orders.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders`
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Name != "" {
		add("customer_name=$%d", f.Name)
	}
	if f.Phone != "" {
		add("phone=$%d", f.Phone)
	}
	if f.FromDate != "" {
		add("order_date>=$%d", f.FromDate)
	}
	if f.ToDate != "" {
		add("order_date<=$%d", f.ToDate)
	}
	for i, w := range where {
		if i == 0 {
			q += " WHERE " + w
		} else {
			q += " AND " + w
		}
	}
	if f.Newest {
		q += " ORDER BY created_at DESC"
	} else {
		q += " ORDER BY created_at"
	}

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Ledger) SetCompleted(ctx context.Context, id string) (orders.Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `
		UPDATE orders SET completed=true WHERE id=$1
		RETURNING `+orderColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, err
}

package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service is the order placement engine. It orchestrates cart validation,
// atomic stock decrement, sequence assignment and the ledger append, then
// hands the enriched order to the broadcaster.
//
// Validation and decrement run against the InventoryStore contract, so a
// conflict (another order taking the stock between the validating read and
// the decrement) is possible; it is retried once before giving up.
type Service struct {
	Inventory InventoryStore
	Ledger    OrderLedger
	Counter   SequenceCounter
	Hub       Broadcaster
	Now       func() time.Time // nil means time.Now
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// PlaceOrder validates the cart against current inventory, decrements stock
// for every line atomically, assigns the next per-day order number, appends
// the order and broadcasts the enriched projection.
//
// A *ValidationError return means nothing was mutated. Any other error is an
// infrastructure fault; stock changes have been compensated.
func (s *Service) PlaceOrder(ctx context.Context, customer CustomerInfo, cart []OrderLine) (*PlacedOrder, error) {
	if len(cart) == 0 {
		return nil, &ValidationError{Problems: []string{msgEmptyCart}}
	}

	var total int
	for attempt := 0; ; attempt++ {
		t, verr, err := s.validate(ctx, cart)
		if err != nil {
			return nil, err
		}
		if verr != nil {
			return nil, verr
		}
		total = t

		err = s.Inventory.DecrementAll(ctx, cart)
		if err == nil {
			break
		}
		var short *InsufficientStockError
		if !errors.As(err, &short) {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		// lost a race after validation passed; re-validate once so the
		// caller sees the remaining quantities, then give up
		if attempt > 0 {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
	}

	date, seq, err := s.Counter.Next(ctx)
	if err != nil {
		s.compensate(ctx, cart)
		return nil, fmt.Errorf("next order number: %w", err)
	}

	o := Order{
		ID:          uuid.NewString(),
		OrderDate:   date,
		OrderNumber: seq,
		Customer:    customer,
		Items:       cart,
		Total:       total,
		Completed:   false,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.Ledger.Append(ctx, &o); err != nil {
		s.compensate(ctx, cart)
		return nil, fmt.Errorf("append order: %w", err)
	}

	ev := s.Enrich(ctx, o)
	if s.Hub != nil {
		s.Hub.Broadcast("order", ev)
	}

	return &PlacedOrder{
		OrderID:     o.ID,
		OrderDate:   date,
		OrderNumber: seq,
		Total:       total,
		Message:     successMessage(total),
		Event:       ev,
	}, nil
}

// validate resolves every line and accumulates a problem message per bad
// line instead of short-circuiting. It returns the cart total computed from
// the prices observed here.
func (s *Service) validate(ctx context.Context, cart []OrderLine) (total int, verr *ValidationError, err error) {
	var problems []string
	for _, line := range cart {
		p, err := s.Inventory.Get(ctx, line.ProductID)
		if errors.Is(err, ErrProductNotFound) {
			problems = append(problems, fmt.Sprintf(fmtNotFound, line.ProductID))
			continue
		}
		if err != nil {
			return 0, nil, fmt.Errorf("get product %s: %w", line.ProductID, err)
		}
		if line.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf(fmtBadQuantity, p.Name))
			continue
		}
		if p.Stock == 0 {
			problems = append(problems, fmt.Sprintf(fmtSoldOut, p.Name))
			continue
		}
		if p.Stock < line.Quantity {
			problems = append(problems, fmt.Sprintf(fmtShortStock, p.Name, p.Stock))
			continue
		}
		total += p.Price * line.Quantity
	}
	if len(problems) > 0 {
		return 0, &ValidationError{Problems: problems}, nil
	}
	return total, nil, nil
}

// compensate re-increments stock after a fault between decrement and append
// so a failed placement never leaves units reserved.
func (s *Service) compensate(ctx context.Context, cart []OrderLine) {
	_ = s.Inventory.IncrementAll(ctx, cart)
}

// Enrich joins the order's lines with each product's current name, price and
// image. Products edited since the order was placed show their current data;
// lines whose product no longer exists keep only id and quantity.
func (s *Service) Enrich(ctx context.Context, o Order) OrderEvent {
	items := make([]EventItem, 0, len(o.Items))
	for _, line := range o.Items {
		it := EventItem{ProductID: line.ProductID, Quantity: line.Quantity}
		if p, err := s.Inventory.Get(ctx, line.ProductID); err == nil {
			it.Name = p.Name
			it.Price = p.Price
			it.Image = p.Image
		}
		items = append(items, it)
	}
	return OrderEvent{
		OrderID:     o.ID,
		OrderDate:   o.OrderDate,
		OrderNumber: o.OrderNumber,
		Customer:    o.Customer,
		Items:       items,
		Total:       o.Total,
		Completed:   o.Completed,
		CreatedAt:   o.CreatedAt,
	}
}

// CompleteOrder flips the completed flag and broadcasts the updated order
// through the same path as creation.
func (s *Service) CompleteOrder(ctx context.Context, orderID string) (OrderEvent, error) {
	o, err := s.Ledger.SetCompleted(ctx, orderID)
	if err != nil {
		return OrderEvent{}, err
	}
	ev := s.Enrich(ctx, o)
	if s.Hub != nil {
		s.Hub.Broadcast("order", ev)
	}
	return ev, nil
}

// Orders lists ledger entries matching the filter.
func (s *Service) Orders(ctx context.Context, f OrderFilter) ([]Order, error) {
	return s.Ledger.Find(ctx, f)
}

// EnrichedOrders lists matching orders with line items joined against
// current product data.
func (s *Service) EnrichedOrders(ctx context.Context, f OrderFilter) ([]OrderEvent, error) {
	os, err := s.Ledger.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]OrderEvent, 0, len(os))
	for _, o := range os {
		out = append(out, s.Enrich(ctx, o))
	}
	return out, nil
}

// Restock increments a product's stock and appends a restock log entry.
func (s *Service) Restock(ctx context.Context, productID string, qty int) (Product, string, error) {
	if qty <= 0 {
		return Product{}, "", &ValidationError{Problems: []string{fmt.Sprintf(fmtBadQuantity, productID)}}
	}
	p, err := s.Inventory.Restock(ctx, productID, qty)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return Product{}, "", &ValidationError{Problems: []string{fmt.Sprintf(fmtNotFound, productID)}}
		}
		return Product{}, "", err
	}
	return p, fmt.Sprintf(fmtRestocked, p.Name, p.Stock), nil
}

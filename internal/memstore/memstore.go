// Package memstore implements the inventory, ledger and counter contracts
// in process memory. It backs the service when no Postgres DSN is
// configured and every test that exercises placement concurrency.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kevin11236029/order-3/internal/orders"
)

// Inventory is a mutex-guarded product map. DecrementAll takes the write
// lock for the whole cart, which makes the check-and-decrement atomic
// across concurrent placements.
type Inventory struct {
	mu       sync.RWMutex
	products map[string]orders.Product
	restocks []orders.RestockEntry
	now      func() time.Time
}

func NewInventory() *Inventory {
	return &Inventory{products: make(map[string]orders.Product), now: time.Now}
}

// Put inserts or replaces a product record. Used by seeding and admin flows.
func (s *Inventory) Put(p orders.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *Inventory) Get(ctx context.Context, id string) (orders.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrProductNotFound
	}
	return p, nil
}

func (s *Inventory) List(ctx context.Context) ([]orders.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orders.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Inventory) DecrementAll(ctx context.Context, lines []orders.OrderLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var short []orders.ShortStock
	for _, l := range lines {
		p, ok := s.products[l.ProductID]
		if !ok {
			short = append(short, orders.ShortStock{ProductID: l.ProductID, Required: l.Quantity})
			continue
		}
		if p.Stock < l.Quantity {
			short = append(short, orders.ShortStock{ProductID: l.ProductID, Required: l.Quantity, Available: p.Stock})
		}
	}
	if len(short) > 0 {
		return &orders.InsufficientStockError{Details: short}
	}
	for _, l := range lines {
		p := s.products[l.ProductID]
		p.Stock -= l.Quantity
		s.products[l.ProductID] = p
	}
	return nil
}

func (s *Inventory) IncrementAll(ctx context.Context, lines []orders.OrderLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lines {
		if p, ok := s.products[l.ProductID]; ok {
			p.Stock += l.Quantity
			s.products[l.ProductID] = p
		}
	}
	return nil
}

func (s *Inventory) Restock(ctx context.Context, id string, qty int) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrProductNotFound
	}
	p.Stock += qty
	s.products[id] = p
	s.restocks = append(s.restocks, orders.RestockEntry{
		Time:        s.now().UTC(),
		ProductName: p.Name,
		Quantity:    qty,
	})
	return p, nil
}

func (s *Inventory) Restocks(ctx context.Context) ([]orders.RestockEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orders.RestockEntry, len(s.restocks))
	copy(out, s.restocks)
	return out, nil
}

// Ledger is an append-only in-memory order record.
type Ledger struct {
	mu     sync.RWMutex
	orders []orders.Order
	byID   map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{byID: make(map[string]int)}
}

func (s *Ledger) Append(ctx context.Context, o *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[o.ID] = len(s.orders)
	s.orders = append(s.orders, *o)
	return nil
}

func (s *Ledger) Get(ctx context.Context, id string) (orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return s.orders[i], nil
}

func (s *Ledger) Find(ctx context.Context, f orders.OrderFilter) ([]orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []orders.Order
	for _, o := range s.orders {
		if f.Name != "" && o.Customer.Name != f.Name {
			continue
		}
		if f.Phone != "" && o.Customer.Phone != f.Phone {
			continue
		}
		if f.FromDate != "" && o.OrderDate < f.FromDate {
			continue
		}
		if f.ToDate != "" && o.OrderDate > f.ToDate {
			continue
		}
		out = append(out, o)
	}
	if f.Newest {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out, nil
}

func (s *Ledger) SetCompleted(ctx context.Context, id string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	s.orders[i].Completed = true
	return s.orders[i], nil
}

// Counter issues per-day order numbers from a single guarded record.
type Counter struct {
	mu   sync.Mutex
	date string
	seq  int
	Nowf func() time.Time // nil means time.Now
}

func NewCounter() *Counter { return &Counter{} }

func (c *Counter) Next(ctx context.Context) (string, int, error) {
	now := time.Now
	if c.Nowf != nil {
		now = c.Nowf
	}
	today := now().Format("2006-01-02")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.date != today {
		c.date = today
		c.seq = 0
	}
	c.seq++
	return c.date, c.seq, nil
}

package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
)

// ShortStock describes one line a decrement could not satisfy.
type ShortStock struct {
	ProductID string
	Required  int
	Available int
}

// InsufficientStockError is returned by DecrementAll when one or more lines
// cannot be satisfied. No stock has been changed in that case.
type InsufficientStockError struct {
	Details []ShortStock
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, fmt.Sprintf("%s: need %d, have %d", d.ProductID, d.Required, d.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// InventoryStore holds product records. DecrementAll must apply every line or
// none, atomically with respect to concurrent callers: two orders racing for
// the last unit of a product must not both succeed.
type InventoryStore interface {
	Get(ctx context.Context, id string) (Product, error)
	List(ctx context.Context) ([]Product, error)
	DecrementAll(ctx context.Context, lines []OrderLine) error
	// IncrementAll puts stock back; used to compensate a failed placement.
	IncrementAll(ctx context.Context, lines []OrderLine) error
	// Restock increments stock and appends a RestockEntry.
	Restock(ctx context.Context, id string, qty int) (Product, error)
	Restocks(ctx context.Context) ([]RestockEntry, error)
}

// OrderFilter narrows Find. Zero values mean "no constraint".
type OrderFilter struct {
	Name     string // exact customer name
	Phone    string
	FromDate string // inclusive, YYYY-MM-DD on OrderDate
	ToDate   string // inclusive
	Newest   bool   // sort by creation time descending
}

// OrderLedger is the durable order record: append-only except for the
// completed flag.
type OrderLedger interface {
	Append(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (Order, error)
	Find(ctx context.Context, f OrderFilter) ([]Order, error)
	SetCompleted(ctx context.Context, id string) (Order, error)
}

// SequenceCounter issues per-day gapless order numbers. Next is linearizable:
// concurrent callers never see the same (date, seq) pair, and the first call
// of a new calendar day restarts at 1.
type SequenceCounter interface {
	Next(ctx context.Context) (date string, seq int, err error)
}

// Broadcaster receives enriched order events for fan-out to admin viewers.
type Broadcaster interface {
	Broadcast(name string, payload any)
}

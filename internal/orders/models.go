package orders

import "time"

type Product struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Price int      `json:"price"`
	Stock int      `json:"stock"`
	Image string   `json:"image,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// OrderLine is one cart entry. Immutable once the order is created.
type OrderLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CustomerInfo struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	PickupDate string `json:"pickupDate"`
	Note       string `json:"note"`
}

type Order struct {
	ID          string       `json:"id"`
	OrderDate   string       `json:"orderDate"` // YYYY-MM-DD the number was issued under
	OrderNumber int          `json:"orderNumber"`
	Customer    CustomerInfo `json:"customer"`
	Items       []OrderLine  `json:"items"`
	Total       int          `json:"total"` // fixed at placement, never recomputed
	Completed   bool         `json:"completed"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type RestockEntry struct {
	Time        time.Time `json:"time"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
}

// EventItem is an order line joined with the product's current display data.
// The join happens at read/broadcast time so later product edits show up in
// notifications about older orders.
type EventItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name"`
	Price     int    `json:"price"`
	Image     string `json:"image,omitempty"`
}

// OrderEvent is the enriched projection handed to the notification hub.
type OrderEvent struct {
	OrderID     string       `json:"orderId"`
	OrderDate   string       `json:"orderDate"`
	OrderNumber int          `json:"orderNumber"`
	Customer    CustomerInfo `json:"customer"`
	Items       []EventItem  `json:"items"`
	Total       int          `json:"total"`
	Completed   bool         `json:"completed"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// PlacedOrder is the synchronous result returned to the submitting client.
type PlacedOrder struct {
	OrderID     string     `json:"orderId"`
	OrderDate   string     `json:"orderDate"`
	OrderNumber int        `json:"orderNumber"`
	Total       int        `json:"total"`
	Message     string     `json:"message"`
	Event       OrderEvent `json:"-"`
}

package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kevin11236029/order-3/internal/events"
	"github.com/kevin11236029/order-3/internal/hub"
	"github.com/kevin11236029/order-3/internal/orders"
)

type Handler struct {
	Service  *orders.Service
	Hub      *hub.Hub
	Sessions SessionStore
	Password string

	// Kafka producers, nil when no brokers are configured.
	CreatedEvents   *events.Producer
	CompletedEvents *events.Producer
}

type PlaceOrderReq struct {
	Customer orders.CustomerInfo `json:"customer"`
	Items    []orders.OrderLine  `json:"items"`
}

type StatusResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type PlaceOrderResp struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	OrderID     string `json:"orderId,omitempty"`
	OrderDate   string `json:"orderDate,omitempty"`
	OrderNumber int    `json:"orderNumber,omitempty"`
	Total       int    `json:"total,omitempty"`
}

func (h *Handler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Post("/orders", h.placeOrder)
	r.Post("/admin/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAdmin)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/query", h.queryOrders)
		r.Get("/orders/stream", h.streamOrders)
		r.Post("/orders/{id}/complete", h.completeOrder)
		r.Post("/restock", h.restock)
		r.Get("/restocks", h.listRestocks)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResp{Message: "請求格式錯誤"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	res, err := h.Service.PlaceOrder(ctx, req.Customer, req.Items)
	if err != nil {
		var verr *orders.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, StatusResp{Message: verr.Error()})
			return
		}
		log.Printf("place order: %v", err)
		writeJSON(w, http.StatusInternalServerError, StatusResp{Message: orders.MsgSystemBusy})
		return
	}

	h.CreatedEvents.PublishOrder(events.EventOrderCreated, res.OrderID, res.Event)

	writeJSON(w, http.StatusCreated, PlaceOrderResp{
		Success:     true,
		Message:     res.Message,
		OrderID:     res.OrderID,
		OrderDate:   res.OrderDate,
		OrderNumber: res.OrderNumber,
		Total:       res.Total,
	})
}

func (h *Handler) completeOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, StatusResp{Message: "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	ev, err := h.Service.CompleteOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, StatusResp{Message: "找不到訂單"})
			return
		}
		log.Printf("complete order %s: %v", orderID, err)
		writeJSON(w, http.StatusInternalServerError, StatusResp{Message: orders.MsgSystemBusy})
		return
	}

	h.CompletedEvents.PublishOrder(events.EventOrderCompleted, ev.OrderID, ev)

	writeJSON(w, http.StatusOK, StatusResp{Success: true, Message: "✅ 訂單已完成"})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	h.findOrders(w, r, orders.OrderFilter{})
}

func (h *Handler) queryOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.findOrders(w, r, orders.OrderFilter{
		Name:     q.Get("name"),
		Phone:    q.Get("phone"),
		FromDate: q.Get("from"),
		ToDate:   q.Get("to"),
		Newest:   q.Get("sort") == "newest",
	})
}

func (h *Handler) findOrders(w http.ResponseWriter, r *http.Request, f orders.OrderFilter) {
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	if r.URL.Query().Get("detail") == "1" {
		out, err := h.Service.EnrichedOrders(ctx, f)
		if err != nil {
			log.Printf("list orders: %v", err)
			writeJSON(w, http.StatusInternalServerError, StatusResp{Message: orders.MsgSystemBusy})
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	out, err := h.Service.Orders(ctx, f)
	if err != nil {
		log.Printf("list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, StatusResp{Message: orders.MsgSystemBusy})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type RestockReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) restock(w http.ResponseWriter, r *http.Request) {
	var req RestockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResp{Message: "請求格式錯誤"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	_, msg, err := h.Service.Restock(ctx, req.ProductID, req.Quantity)
	if err != nil {
		var verr *orders.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, StatusResp{Message: verr.Error()})
			return
		}
		log.Printf("restock %s: %v", req.ProductID, err)
		writeJSON(w, http.StatusInternalServerError, StatusResp{Message: orders.MsgSystemBusy})
		return
	}
	writeJSON(w, http.StatusOK, StatusResp{Success: true, Message: msg})
}

func (h *Handler) listRestocks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	out, err := h.Service.Inventory.Restocks(ctx)
	if err != nil {
		log.Printf("list restocks: %v", err)
		writeJSON(w, http.StatusInternalServerError, StatusResp{Message: orders.MsgSystemBusy})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), reqTimeout)
	defer cancel()

	ps, err := h.Service.Inventory.List(ctx)
	if err != nil {
		log.Printf("list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, StatusResp{Message: orders.MsgSystemBusy})
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

package httpx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin11236029/order-3/internal/hub"
	"github.com/kevin11236029/order-3/internal/memstore"
	"github.com/kevin11236029/order-3/internal/orders"
)

const testToken = "secret-token"

type stubSessions struct{ tokens map[string]bool }

func (s *stubSessions) Create(ctx context.Context) (string, error) {
	s.tokens["issued-token"] = true
	return "issued-token", nil
}

func (s *stubSessions) Valid(ctx context.Context, token string) bool { return s.tokens[token] }

func newTestServer(t *testing.T) (*httptest.Server, *memstore.Inventory, *hub.Hub) {
	t.Helper()
	inv := memstore.NewInventory()
	b := hub.New()
	svc := &orders.Service{
		Inventory: inv,
		Ledger:    memstore.NewLedger(),
		Counter:   memstore.NewCounter(),
		Hub:       b,
	}
	h := &Handler{
		Service:  svc,
		Hub:      b,
		Sessions: &stubSessions{tokens: map[string]bool{testToken: true}},
		Password: "pw123",
	}
	r := NewRouter()
	h.Register(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, inv, b
}

func postJSON(t *testing.T, url string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestPlaceOrderEndpoint(t *testing.T) {
	ts, inv, _ := newTestServer(t)
	inv.Put(orders.Product{ID: "A", Name: "蛋黃酥", Price: 50, Stock: 3})

	resp, body := postJSON(t, ts.URL+"/orders", PlaceOrderReq{
		Customer: orders.CustomerInfo{Name: "王小明", Phone: "0912345678"},
		Items:    []orders.OrderLine{{ProductID: "A", Quantity: 2}},
	}, "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var got PlaceOrderResp
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Success)
	assert.Equal(t, "✅ 訂單完成，總金額：100 元", got.Message)
	assert.Equal(t, 1, got.OrderNumber)
	assert.Equal(t, 100, got.Total)
}

func TestPlaceOrderEndpointValidationFailure(t *testing.T) {
	ts, inv, _ := newTestServer(t)
	inv.Put(orders.Product{ID: "A", Name: "蛋黃酥", Price: 50, Stock: 3})

	resp, body := postJSON(t, ts.URL+"/orders", PlaceOrderReq{
		Customer: orders.CustomerInfo{Name: "王小明"},
		Items:    []orders.OrderLine{{ProductID: "A", Quantity: 5}},
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var got StatusResp
	require.NoError(t, json.Unmarshal(body, &got))
	assert.False(t, got.Success)
	assert.Equal(t, "蛋黃酥 庫存不足（剩 3 件）", got.Message)

	p, _ := inv.Get(context.Background(), "A")
	assert.Equal(t, 3, p.Stock)
}

func TestPlaceOrderEndpointBadJSON(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/orders", "application/json", strings.NewReader(`{"items": [{"quantity": 1.5}]`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminGate(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/orders")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = postJSON(t, ts.URL+"/admin/login", LoginReq{Password: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := postJSON(t, ts.URL+"/admin/login", LoginReq{Password: "pw123"}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var login LoginResp
	require.NoError(t, json.Unmarshal(body, &login))
	require.True(t, login.Success)
	require.NotEmpty(t, login.Token)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/orders", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCompleteOrderEndpoint(t *testing.T) {
	ts, inv, _ := newTestServer(t)
	inv.Put(orders.Product{ID: "A", Name: "蛋黃酥", Price: 50, Stock: 3})

	_, body := postJSON(t, ts.URL+"/orders", PlaceOrderReq{
		Customer: orders.CustomerInfo{Name: "王小明"},
		Items:    []orders.OrderLine{{ProductID: "A", Quantity: 1}},
	}, "")
	var placed PlaceOrderResp
	require.NoError(t, json.Unmarshal(body, &placed))

	resp, _ := postJSON(t, ts.URL+"/orders/"+placed.OrderID+"/complete", struct{}{}, testToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, ts.URL+"/orders/missing/complete", struct{}{}, testToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRestockEndpoint(t *testing.T) {
	ts, inv, _ := newTestServer(t)
	inv.Put(orders.Product{ID: "A", Name: "蛋黃酥", Price: 50, Stock: 1})

	resp, body := postJSON(t, ts.URL+"/restock", RestockReq{ProductID: "A", Quantity: 4}, testToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got StatusResp
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Success)
	assert.Contains(t, got.Message, "蛋黃酥")

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/restocks", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	logResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer logResp.Body.Close()
	var logs []orders.RestockEntry
	require.NoError(t, json.NewDecoder(logResp.Body).Decode(&logs))
	require.Len(t, logs, 1)
	assert.Equal(t, 4, logs[0].Quantity)
}

// readFrame consumes one SSE frame and returns its event name and data line.
func readFrame(t *testing.T, r *bufio.Reader) (event, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
}

func TestOrderStream(t *testing.T) {
	ts, inv, b := newTestServer(t)
	inv.Put(orders.Product{ID: "A", Name: "蛋黃酥", Price: 50, Stock: 3})

	resp, err := http.Get(ts.URL + "/orders/stream?token=" + testToken)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	event, _ := readFrame(t, reader)
	assert.Equal(t, "connected", event)

	_, _ = postJSON(t, ts.URL+"/orders", PlaceOrderReq{
		Customer: orders.CustomerInfo{Name: "王小明"},
		Items:    []orders.OrderLine{{ProductID: "A", Quantity: 2}},
	}, "")

	event, data := readFrame(t, reader)
	assert.Equal(t, "order", event)
	var ev orders.OrderEvent
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, 1, ev.OrderNumber)
	assert.Equal(t, 100, ev.Total)
	assert.Equal(t, "蛋黃酥", ev.Items[0].Name)
	assert.False(t, ev.Completed)

	resp.Body.Close()
	assert.Eventually(t, func() bool { return b.Count() == 0 },
		2*time.Second, 10*time.Millisecond, "stream close must unsubscribe")
}

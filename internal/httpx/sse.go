package httpx

import (
	"fmt"
	"net/http"
	"time"
)

// keepaliveEvery spaces the no-op comment frames that keep intermediaries
// from dropping an idle subscription.
const keepaliveEvery = 25 * time.Second

// streamOrders is the admin dashboard subscription: a "connected" frame on
// attach, then one named "order" frame per placed or completed order, with
// keepalive comments in between. The subscription ends when the client
// goes away.
func (h *Handler) streamOrders(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(sub)

	ticker := time.NewTicker(keepaliveEvery)
	defer ticker.Stop()

	for {
		select {
		case m, ok := <-sub.C:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", m.Event, m.Data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

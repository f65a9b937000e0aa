package hub

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeSendsConnectedAck(t *testing.T) {
	h := New()
	s := h.Subscribe()
	defer h.Unsubscribe(s)

	m := <-s.C
	assert.Equal(t, "connected", m.Event)
	assert.JSONEq(t, `{"ok":true}`, string(m.Data))
}

func TestBroadcastFanOut(t *testing.T) {
	h := New()

	const n = 5
	subs := make([]*Subscriber, n)
	for i := range subs {
		subs[i] = h.Subscribe()
		<-subs[i].C // drain ack
	}

	gone := h.Subscribe()
	<-gone.C
	h.Unsubscribe(gone)

	h.Broadcast("order", map[string]any{"orderNumber": 7})

	for _, s := range subs {
		m := <-s.C
		assert.Equal(t, "order", m.Event)
		var got map[string]any
		require.NoError(t, json.Unmarshal(m.Data, &got))
		assert.EqualValues(t, 7, got["orderNumber"])
		select {
		case extra := <-s.C:
			t.Fatalf("unexpected second delivery: %+v", extra)
		default:
		}
	}

	// the unsubscribed channel was closed and saw nothing
	_, ok := <-gone.C
	assert.False(t, ok)
	assert.Equal(t, n, h.Count())
}

func TestUnsubscribeIdempotent(t *testing.T) {
	h := New()
	s := h.Subscribe()
	h.Unsubscribe(s)
	h.Unsubscribe(s)
	assert.Equal(t, 0, h.Count())
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	h := New()

	slow := h.Subscribe() // never read past the ack
	<-slow.C
	fast := h.Subscribe()
	<-fast.C

	// overflow the slow subscriber's buffer while fast keeps reading
	for i := 0; i < subscriberBuffer+1; i++ {
		h.Broadcast("order", i)
		m := <-fast.C
		assert.Equal(t, "order", m.Event)
	}

	// slow got dropped from the registry once its buffer filled
	assert.Equal(t, 1, h.Count())
}

func TestConcurrentSubscribeBroadcastUnsubscribe(t *testing.T) {
	h := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := h.Subscribe()
			<-s.C
			h.Unsubscribe(s)
		}()
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.Broadcast("order", i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, h.Count())
}

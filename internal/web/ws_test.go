package web

import (
	"testing"
	"time"
)

// register adds a client with no connection and no writer, so its queue
// only fills.
func register(h *Hub) *client {
	cl := &client{send: make(chan []byte, sendQueue)}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	return cl
}

func TestBroadcastDoesNotWaitForStalledClient(t *testing.T) {
	h := NewHub(nil)
	stalled := register(h)

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendQueue+1; i++ {
			h.Broadcast([]byte("update"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a client that never reads")
	}

	if n := h.Len(); n != 0 {
		t.Errorf("clients: got %d, want stalled client dropped", n)
	}
	queued := 0
	for range stalled.send {
		queued++
	}
	if queued != sendQueue {
		t.Errorf("queued: got %d, want %d", queued, sendQueue)
	}
}

func TestBroadcastKeepsClientsWithRoom(t *testing.T) {
	h := NewHub(nil)
	slow := register(h)
	fast := register(h)

	for i := 0; i < sendQueue; i++ {
		h.Broadcast([]byte{byte(i)})
		<-fast.send
	}
	if n := h.Len(); n != 2 {
		t.Fatalf("clients: got %d, want 2", n)
	}

	h.Broadcast([]byte("one too many"))
	h.mu.Lock()
	_, slowKept := h.clients[slow]
	_, fastKept := h.clients[fast]
	h.mu.Unlock()
	if slowKept || !fastKept {
		t.Errorf("kept slow=%v fast=%v, want only the fast client", slowKept, fastKept)
	}
}

func TestHubRemoveIsIdempotent(t *testing.T) {
	h := NewHub(nil)
	cl := register(h)

	h.remove(cl)
	h.remove(cl)
	h.Close()

	if _, ok := <-cl.send; ok {
		t.Error("expected send queue closed")
	}
}

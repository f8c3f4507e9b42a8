package ws

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nocmx/vigia/pkg/models"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func newTestClient(subject string) *Client {
	// nil conn: hub tests never touch the wire.
	return newClient(nil, subject, testLogger())
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("dash-1")

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}

	// Send channel must be closed so the write pump exits.
	if _, ok := <-client.send; ok {
		t.Error("client.send channel is not closed")
	}
}

func TestUnregisterNotRegistered(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("dash-1")

	hub.Unregister(client)

	// Channel must stay open for a client the hub never owned.
	select {
	case _, ok := <-client.send:
		if !ok {
			t.Error("channel closed for unregistered client")
		}
	default:
	}
}

func TestUnregisterTwice(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("dash-1")

	hub.Register(client)
	hub.Unregister(client)
	hub.Unregister(client) // must not panic on the closed channel

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(testLogger())

	clients := []*Client{newTestClient("a"), newTestClient("b"), newTestClient("c")}
	for _, c := range clients {
		hub.Register(c)
	}

	msg := Message{
		Type:      MessageRefreshCompleted,
		Timestamp: time.Now(),
		Data: RefreshCompletedData{
			Source:  models.SourceLive,
			Sites:   12,
			Devices: 84,
		},
	}
	if delivered := hub.Broadcast(msg); delivered != len(clients) {
		t.Errorf("Broadcast delivered to %d clients, want %d", delivered, len(clients))
	}

	for i, c := range clients {
		select {
		case received := <-c.send:
			if received.Type != MessageRefreshCompleted {
				t.Errorf("client %d received Type = %v, want %v", i, received.Type, MessageRefreshCompleted)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("client %d did not receive message", i)
		}
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("slow")
	hub.Register(client)

	for i := 0; i < cap(client.send); i++ {
		client.send <- Message{Type: MessageAlertsGenerated}
	}

	if delivered := hub.Broadcast(Message{Type: MessageRefreshFailed}); delivered != 0 {
		t.Errorf("Broadcast delivered to %d clients, want 0", delivered)
	}

	if len(client.send) != cap(client.send) {
		t.Errorf("buffer length = %d, want %d (message should have been dropped)",
			len(client.send), cap(client.send))
	}
	received := <-client.send
	if received.Type == MessageRefreshFailed {
		t.Error("dropped message was unexpectedly received")
	}
}

func TestConcurrentRegisterUnregisterBroadcast(t *testing.T) {
	hub := NewHub(testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			client := newTestClient(string(rune('a' + id%26)))
			hub.Register(client)
			go func() {
				for range client.send {
				}
			}()
			time.Sleep(10 * time.Millisecond)
			hub.Unregister(client)
		}(i)
	}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast(Message{Type: MessageRefreshCompleted, Timestamp: time.Now()})
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after all unregistered, want 0", hub.ClientCount())
	}
}

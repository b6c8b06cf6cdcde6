package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   nil,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 1)
	c3 := mockClient(hub, 2)

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	if got := hub.ClientCount(); got != 3 {
		t.Fatalf("expected 3 clients, got %d", got)
	}
	if got := hub.UserClientCount(1); got != 2 {
		t.Fatalf("expected 2 clients for user 1, got %d", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c2)

	if got := hub.UserClientCount(1); got != 0 {
		t.Fatalf("expected 0 clients for user 1, got %d", got)
	}
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestSendToUser(t *testing.T) {
	hub := NewHub(slog.Default())

	alice1 := mockClient(hub, 1)
	alice2 := mockClient(hub, 1)
	bob := mockClient(hub, 2)
	hub.Register(alice1)
	hub.Register(alice2)
	hub.Register(bob)

	n := hub.SendToUser(1, NewReminder("Task Deadline: Pay rent", "due in 30 minutes"))
	if n != 2 {
		t.Fatalf("accepted = %d, want 2", n)
	}

	for _, c := range []*Client{alice1, alice2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "reminder" || got.Title != "Task Deadline: Pay rent" {
				t.Errorf("message = %+v", got)
			}
		default:
			t.Fatal("expected queued message")
		}
	}

	select {
	case <-bob.send:
		t.Error("bob should not receive alice's reminder")
	default:
	}
}

func TestSendToUserWithoutClients(t *testing.T) {
	hub := NewHub(slog.Default())
	if n := hub.SendToUser(99, NewMessage("task", "created", "t1")); n != 0 {
		t.Errorf("accepted = %d, want 0", n)
	}
}

func TestSendToUserFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.SendToUser(1, NewMessage("test", "fill", "x"))
	}

	// This should drop the message, not panic or block
	if n := hub.SendToUser(1, NewMessage("test", "dropped", "y")); n != 0 {
		t.Errorf("accepted = %d, want 0 with a full buffer", n)
	}
	if len(c.send) != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, len(c.send))
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("event", "updated", "e5")
	if msg.Type != "event_updated" {
		t.Errorf("expected type event_updated, got %s", msg.Type)
	}
	if msg.Entity != "event" || msg.Action != "updated" || msg.ID != "e5" {
		t.Errorf("message = %+v", msg)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			c := mockClient(hub, uid)
			hub.Register(c)
			hub.SendToUser(uid, NewMessage("test", "concurrent", ""))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(int64(i % 3))
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

package services_test

import (
	"testing"

	"paeshift-backend/internal/services"
)

func drain(c *services.RoomClient) [][]byte {
	var frames [][]byte
	for {
		select {
		case frame := <-c.Outbound():
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

func TestRoomHub_BroadcastIncludesSender(t *testing.T) {
	hub := services.NewRoomHub()
	a := services.NewRoomClient("user-a", "ada")
	b := services.NewRoomClient("user-b", "bola")
	room := services.ChatRoom("job-1")

	hub.Join(room, a)
	hub.Join(room, b)

	if err := hub.Broadcast(room, map[string]string{"hello": "world"}); err != nil {
		t.Fatalf("Broadcast returned error: %v", err)
	}

	for _, c := range []*services.RoomClient{a, b} {
		if got := drain(c); len(got) != 1 {
			t.Errorf("client %s got %d frames, want 1", c.UserID, len(got))
		}
	}
}

func TestRoomHub_LeaveStopsDelivery(t *testing.T) {
	hub := services.NewRoomHub()
	a := services.NewRoomClient("user-a", "ada")
	b := services.NewRoomClient("user-b", "bola")
	room := services.ChatRoom("job-1")

	hub.Join(room, a)
	hub.Join(room, b)
	hub.Leave(room, a)

	if err := hub.Broadcast(room, map[string]string{"hello": "world"}); err != nil {
		t.Fatalf("Broadcast returned error: %v", err)
	}

	if got := drain(a); len(got) != 0 {
		t.Errorf("departed client got %d frames, want 0", len(got))
	}
	if got := drain(b); len(got) != 1 {
		t.Errorf("remaining client got %d frames, want 1", len(got))
	}
}

func TestRoomHub_RoomsAreIsolated(t *testing.T) {
	hub := services.NewRoomHub()
	a := services.NewRoomClient("user-a", "ada")
	b := services.NewRoomClient("user-b", "bola")

	hub.Join(services.ChatRoom("job-1"), a)
	hub.Join(services.ChatRoom("job-2"), b)

	if err := hub.Broadcast(services.ChatRoom("job-1"), "ping"); err != nil {
		t.Fatalf("Broadcast returned error: %v", err)
	}

	if got := drain(b); len(got) != 0 {
		t.Errorf("client in another room got %d frames, want 0", len(got))
	}
}

func TestRoomHub_IsMember(t *testing.T) {
	hub := services.NewRoomHub()
	a := services.NewRoomClient("user-a", "ada")
	room := services.LocationRoom("job-1")

	if hub.IsMember(room, "user-a") {
		t.Error("IsMember should be false before join")
	}
	hub.Join(room, a)
	if !hub.IsMember(room, "user-a") {
		t.Error("IsMember should be true after join")
	}
	hub.Leave(room, a)
	if hub.IsMember(room, "user-a") {
		t.Error("IsMember should be false after leave")
	}
}

func TestRoomClient_SlowClientMissesFrames(t *testing.T) {
	hub := services.NewRoomHub()
	slow := services.NewRoomClient("user-a", "ada")
	room := services.ChatRoom("job-1")
	hub.Join(room, slow)

	// Fill the buffer; further frames are dropped, never blocking.
	for i := 0; i < 64; i++ {
		if err := hub.Broadcast(room, i); err != nil {
			t.Fatalf("Broadcast returned error: %v", err)
		}
	}

	if got := drain(slow); len(got) >= 64 {
		t.Errorf("slow client got %d frames, expected drops", len(got))
	}
}

func TestRoomClient_SendAfterClose(t *testing.T) {
	c := services.NewRoomClient("user-a", "ada")
	c.Close()
	c.Close() // idempotent

	if c.TrySend([]byte("x")) {
		t.Error("TrySend should report false on a closed client")
	}
	if err := c.Send("x"); err == nil {
		t.Error("Send should fail on a closed client")
	}
}

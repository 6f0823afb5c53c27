package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"paeshift-backend/internal/config"
	"paeshift-backend/internal/models"
	"paeshift-backend/internal/services"
)

type fakeChatStore struct {
	mu       sync.Mutex
	messages []*models.ChatMessage
}

func (f *fakeChatStore) Create(_ context.Context, msg *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeChatStore) ListByJob(_ context.Context, jobID string, limit, offset int) ([]*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ChatMessage
	for _, m := range f.messages {
		if m.JobID == jobID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeChatStore) ListRecentByJob(ctx context.Context, jobID string, limit, offset int) ([]*models.ChatMessage, error) {
	return f.ListByJob(ctx, jobID, limit, offset)
}

func (f *fakeChatStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type fakeAcceptanceStore struct {
	// accepted maps "jobID/userID" to acceptance
	accepted map[string]bool
}

func (f *fakeAcceptanceStore) HasAccepted(_ context.Context, jobID, userID string) (bool, error) {
	return f.accepted[jobID+"/"+userID], nil
}

func (f *fakeAcceptanceStore) GetAcceptedForJob(_ context.Context, jobID string) (*models.Application, error) {
	for key, ok := range f.accepted {
		if ok && len(key) > len(jobID) && key[:len(jobID)] == jobID {
			return &models.Application{JobID: jobID, ApplicantID: key[len(jobID)+1:], Accepted: true}, nil
		}
	}
	return nil, fmt.Errorf("no accepted application")
}

type fakeUserStore struct {
	users map[string]*models.User
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	return user, nil
}

type fakePusher struct {
	mu     sync.Mutex
	pushed []string
}

func (f *fakePusher) PushChatMessage(deviceToken, sender, preview string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, deviceToken)
}

func testJob() *models.Job {
	return &models.Job{ID: "job-1", OwnerID: "owner", Status: models.JobStatusAssigned}
}

func TestChatService_MessagePersistedOnceAndBroadcastToAll(t *testing.T) {
	hub := services.NewRoomHub()
	store := &fakeChatStore{}
	svc := services.NewChatService(hub, store, &fakeAcceptanceStore{}, &fakeUserStore{}, nil, config.ChatAccessOpen)

	sender := services.NewRoomClient("user-a", "ada")
	other := services.NewRoomClient("user-b", "bola")
	room := services.ChatRoom("job-1")
	hub.Join(room, sender)
	hub.Join(room, other)

	raw := []byte(`{"message":"on my way"}`)
	if err := svc.HandleInbound(context.Background(), testJob(), sender, raw); err != nil {
		t.Fatalf("HandleInbound returned error: %v", err)
	}

	if store.count() != 1 {
		t.Errorf("persisted %d messages, want 1", store.count())
	}

	for _, c := range []*services.RoomClient{sender, other} {
		frames := drain(c)
		if len(frames) != 1 {
			t.Fatalf("client %s got %d frames, want 1", c.UserID, len(frames))
		}
		var event services.ChatEvent
		if err := json.Unmarshal(frames[0], &event); err != nil {
			t.Fatalf("failed to decode frame: %v", err)
		}
		if event.Message != "on my way" || event.Username != "ada" {
			t.Errorf("got event %+v, want message from ada", event)
		}
	}
}

func TestChatService_SilentDrop(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty message", `{"message":""}`},
		{"missing message", `{}`},
		{"malformed json", `{"message":`},
		{"wrong type", `{"message":42}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			hub := services.NewRoomHub()
			store := &fakeChatStore{}
			svc := services.NewChatService(hub, store, &fakeAcceptanceStore{}, &fakeUserStore{}, nil, config.ChatAccessOpen)

			sender := services.NewRoomClient("user-a", "ada")
			hub.Join(services.ChatRoom("job-1"), sender)

			if err := svc.HandleInbound(context.Background(), testJob(), sender, []byte(c.raw)); err != nil {
				t.Fatalf("HandleInbound returned error: %v", err)
			}
			if store.count() != 0 {
				t.Errorf("persisted %d messages, want 0", store.count())
			}
			if frames := drain(sender); len(frames) != 0 {
				t.Errorf("sender got %d frames, want 0", len(frames))
			}
		})
	}
}

func TestChatService_UnauthenticatedSenderDropped(t *testing.T) {
	hub := services.NewRoomHub()
	store := &fakeChatStore{}
	svc := services.NewChatService(hub, store, &fakeAcceptanceStore{}, &fakeUserStore{}, nil, config.ChatAccessOpen)

	anon := services.NewRoomClient("", "")
	hub.Join(services.ChatRoom("job-1"), anon)

	if err := svc.HandleInbound(context.Background(), testJob(), anon, []byte(`{"message":"hi"}`)); err != nil {
		t.Fatalf("HandleInbound returned error: %v", err)
	}
	if store.count() != 0 {
		t.Errorf("persisted %d messages, want 0", store.count())
	}
}

func TestChatService_CanJoinPolicies(t *testing.T) {
	apps := &fakeAcceptanceStore{accepted: map[string]bool{"job-1/worker": true}}
	job := testJob()

	cases := []struct {
		name   string
		access string
		userID string
		want   bool
	}{
		{"open admits stranger", config.ChatAccessOpen, "stranger", true},
		{"open admits owner", config.ChatAccessOpen, "owner", true},
		{"accepted admits owner", config.ChatAccessAccepted, "owner", true},
		{"accepted admits worker", config.ChatAccessAccepted, "worker", true},
		{"accepted rejects stranger", config.ChatAccessAccepted, "stranger", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc := services.NewChatService(services.NewRoomHub(), &fakeChatStore{}, apps, &fakeUserStore{}, nil, c.access)
			got, err := svc.CanJoin(context.Background(), job, c.userID)
			if err != nil {
				t.Fatalf("CanJoin returned error: %v", err)
			}
			if got != c.want {
				t.Errorf("CanJoin(%s, %s) = %v, want %v", c.access, c.userID, got, c.want)
			}
		})
	}
}

func TestChatService_OfflineParticipantGetsPush(t *testing.T) {
	hub := services.NewRoomHub()
	store := &fakeChatStore{}
	apps := &fakeAcceptanceStore{accepted: map[string]bool{"job-1/worker": true}}
	token := "device-token"
	users := &fakeUserStore{users: map[string]*models.User{
		"owner": {ID: "owner", Username: "olu", PushToken: &token},
	}}
	pusher := &fakePusher{}
	svc := services.NewChatService(hub, store, apps, users, pusher, config.ChatAccessOpen)

	// The worker is in the room; the owner is not.
	sender := services.NewRoomClient("worker", "wale")
	hub.Join(services.ChatRoom("job-1"), sender)

	if err := svc.HandleInbound(context.Background(), testJob(), sender, []byte(`{"message":"arrived"}`)); err != nil {
		t.Fatalf("HandleInbound returned error: %v", err)
	}

	pusher.mu.Lock()
	defer pusher.mu.Unlock()
	if len(pusher.pushed) != 1 || pusher.pushed[0] != token {
		t.Errorf("pushed to %v, want exactly [%s]", pusher.pushed, token)
	}
}

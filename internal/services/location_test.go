package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"paeshift-backend/internal/models"
	"paeshift-backend/internal/services"
)

// fakeSampleStore mirrors the repository's retention contract: two
// distinct rows per stationary (user, lat, lon) tuple, then
// update-in-place of the most recent row.
type fakeSampleStore struct {
	mu      sync.Mutex
	samples []*models.LocationSample
}

func (f *fakeSampleStore) Record(_ context.Context, sample *models.LocationSample) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matches []*models.LocationSample
	for _, s := range f.samples {
		if s.UserID == sample.UserID && s.JobID == sample.JobID &&
			s.Latitude == sample.Latitude && s.Longitude == sample.Longitude {
			matches = append(matches, s)
		}
	}
	if len(matches) >= 2 {
		latest := matches[0]
		for _, s := range matches[1:] {
			if s.RecordedAt.After(latest.RecordedAt) {
				latest = s
			}
		}
		latest.RecordedAt = sample.RecordedAt
		latest.Address = sample.Address
		return false, nil
	}

	copied := *sample
	f.samples = append(f.samples, &copied)
	return true, nil
}

func (f *fakeSampleStore) rows() []*models.LocationSample {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.LocationSample, len(f.samples))
	copy(out, f.samples)
	return out
}

type fakeResolver struct {
	address string
}

func (f *fakeResolver) Reverse(_ context.Context, _, _ float64) string {
	return f.address
}

func locationRaw(lat, lon float64) []byte {
	raw, _ := json.Marshal(map[string]interface{}{
		"type":      "location",
		"latitude":  lat,
		"longitude": lon,
	})
	return raw
}

func newLocationFixture(address string) (*services.LocationService, *fakeSampleStore, *services.RoomHub) {
	hub := services.NewRoomHub()
	store := &fakeSampleStore{}
	svc := services.NewLocationService(hub, store, &fakeAcceptanceStore{}, &fakeResolver{address: address})
	return svc, store, hub
}

func TestLocationSession_StationaryRetentionKeepsTwoRows(t *testing.T) {
	svc, store, hub := newLocationFixture("12 Allen Avenue, Ikeja")

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var calls int
	var mu sync.Mutex
	svc.SetNowFunc(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	})

	client := services.NewRoomClient("worker", "wale")
	job := testJob()
	hub.Join(services.LocationRoom(job.ID), client)

	sess := svc.NewSession(job, client)
	for i := 0; i < 3; i++ {
		sess.Handle(locationRaw(6.5, 3.3))
	}
	sess.Close()
	<-sess.Done()

	rows := store.rows()
	if len(rows) != 2 {
		t.Fatalf("stored %d rows, want 2", len(rows))
	}

	// The third update touches the second row's timestamp in place.
	third := base.Add(3 * time.Minute)
	var latest time.Time
	for _, row := range rows {
		if row.RecordedAt.After(latest) {
			latest = row.RecordedAt
		}
	}
	if !latest.Equal(third) {
		t.Errorf("latest row timestamp = %v, want %v", latest, third)
	}
}

func TestLocationSession_MovingUserInsertsNewRows(t *testing.T) {
	svc, store, hub := newLocationFixture("somewhere")

	client := services.NewRoomClient("worker", "wale")
	job := testJob()
	hub.Join(services.LocationRoom(job.ID), client)

	sess := svc.NewSession(job, client)
	sess.Handle(locationRaw(6.5, 3.3))
	sess.Handle(locationRaw(6.51, 3.31))
	sess.Handle(locationRaw(6.52, 3.32))
	sess.Close()
	<-sess.Done()

	if rows := store.rows(); len(rows) != 3 {
		t.Errorf("stored %d rows for three distinct points, want 3", len(rows))
	}
}

func TestLocationSession_BroadcastCarriesAddressAndUsername(t *testing.T) {
	svc, _, hub := newLocationFixture(services.AddressUnknown)

	job := testJob()
	sender := services.NewRoomClient("worker", "wale")
	watcher := services.NewRoomClient("owner", "olu")
	hub.Join(services.LocationRoom(job.ID), sender)
	hub.Join(services.LocationRoom(job.ID), watcher)

	sess := svc.NewSession(job, sender)
	sess.Handle(locationRaw(6.5, 3.3))
	sess.Close()
	<-sess.Done()

	frames := drain(watcher)
	if len(frames) != 1 {
		t.Fatalf("watcher got %d frames, want 1", len(frames))
	}
	var event services.LocationEvent
	if err := json.Unmarshal(frames[0], &event); err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	if event.Type != "location" || event.Latitude != 6.5 || event.Longitude != 3.3 {
		t.Errorf("got event %+v, want location at (6.5, 3.3)", event)
	}
	// A failed geocode degrades to the sentinel but the broadcast still
	// goes out.
	if event.Address != services.AddressUnknown {
		t.Errorf("address = %q, want %q", event.Address, services.AddressUnknown)
	}
	if event.Username != "wale" {
		t.Errorf("username = %q, want wale", event.Username)
	}
}

func TestLocationSession_HeartbeatAckOnly(t *testing.T) {
	svc, store, hub := newLocationFixture("somewhere")

	job := testJob()
	sender := services.NewRoomClient("worker", "wale")
	watcher := services.NewRoomClient("owner", "olu")
	hub.Join(services.LocationRoom(job.ID), sender)
	hub.Join(services.LocationRoom(job.ID), watcher)

	sess := svc.NewSession(job, sender)
	sess.Handle([]byte(`{"type":"heartbeat"}`))
	sess.Close()
	<-sess.Done()

	frames := drain(sender)
	if len(frames) != 1 {
		t.Fatalf("sender got %d frames, want 1 ack", len(frames))
	}
	var ack struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frames[0], &ack); err != nil {
		t.Fatalf("failed to decode ack: %v", err)
	}
	if ack.Type != "heartbeat_ack" {
		t.Errorf("ack type = %q, want heartbeat_ack", ack.Type)
	}

	if frames := drain(watcher); len(frames) != 0 {
		t.Errorf("watcher got %d frames for a heartbeat, want 0", len(frames))
	}
	if rows := store.rows(); len(rows) != 0 {
		t.Errorf("heartbeat stored %d rows, want 0", len(rows))
	}
}

func TestLocationSession_InvalidPayloadsDropped(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing coordinates", `{"type":"location"}`},
		{"missing latitude", `{"type":"location","longitude":3.3}`},
		{"unknown type", `{"type":"teleport","latitude":6.5,"longitude":3.3}`},
		{"malformed json", `{"type":`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc, store, hub := newLocationFixture("somewhere")
			job := testJob()
			sender := services.NewRoomClient("worker", "wale")
			hub.Join(services.LocationRoom(job.ID), sender)

			sess := svc.NewSession(job, sender)
			sess.Handle([]byte(c.raw))
			sess.Close()
			<-sess.Done()

			if rows := store.rows(); len(rows) != 0 {
				t.Errorf("stored %d rows, want 0", len(rows))
			}
			if frames := drain(sender); len(frames) != 0 {
				t.Errorf("sender got %d frames, want 0", len(frames))
			}
		})
	}
}

func TestLocationSession_UpdatesProcessedInOrder(t *testing.T) {
	svc, store, hub := newLocationFixture("somewhere")

	job := testJob()
	sender := services.NewRoomClient("worker", "wale")
	hub.Join(services.LocationRoom(job.ID), sender)

	sess := svc.NewSession(job, sender)
	for i := 0; i < 5; i++ {
		sess.Handle(locationRaw(6.5, 3.3+float64(i)/100))
	}
	sess.Close()
	<-sess.Done()

	rows := store.rows()
	if len(rows) != 5 {
		t.Fatalf("stored %d rows, want 5", len(rows))
	}
	for i, row := range rows {
		want := 3.3 + float64(i)/100
		if row.Longitude != want {
			t.Errorf("row %d longitude = %v, want %v (out of order)", i, row.Longitude, want)
		}
	}
}

func TestLocationService_Authorize(t *testing.T) {
	apps := &fakeAcceptanceStore{accepted: map[string]bool{"job-1/worker": true}}
	svc := services.NewLocationService(services.NewRoomHub(), &fakeSampleStore{}, apps, &fakeResolver{})
	job := testJob()

	cases := []struct {
		userID string
		want   bool
	}{
		{"owner", true},
		{"worker", true},
		{"stranger", false},
	}
	for _, c := range cases {
		got, err := svc.Authorize(context.Background(), job, c.userID)
		if err != nil {
			t.Fatalf("Authorize(%s) returned error: %v", c.userID, err)
		}
		if got != c.want {
			t.Errorf("Authorize(%s) = %v, want %v", c.userID, got, c.want)
		}
	}
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"paeshift-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// sessionQueueSize bounds the per-connection backlog of unprocessed
// location updates. Overflow drops the update; delivery is best-effort.
const sessionQueueSize = 16

// SampleStore records location samples under the retention policy
type SampleStore interface {
	Record(ctx context.Context, sample *models.LocationSample) (bool, error)
}

// locationPayload is the fixed inbound schema of the location channel
type locationPayload struct {
	Type      string   `json:"type" validate:"required,oneof=heartbeat location"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// LocationEvent is the frame fanned out to a job's location room
type LocationEvent struct {
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	Username  string  `json:"username"`
}

// heartbeatAck is the direct reply to a liveness probe
type heartbeatAck struct {
	Type string `json:"type"`
}

// LocationService runs the per-job location rooms: admission, bounded
// sample retention, reverse geocoding and fan-out.
type LocationService struct {
	hub          *RoomHub
	samples      SampleStore
	applications AcceptanceStore
	geocoder     AddressResolver
	validate     *validator.Validate
	now          func() time.Time
}

// NewLocationService creates a new location service
func NewLocationService(hub *RoomHub, samples SampleStore, applications AcceptanceStore, geocoder AddressResolver) *LocationService {
	return &LocationService{
		hub:          hub,
		samples:      samples,
		applications: applications,
		geocoder:     geocoder,
		validate:     validator.New(),
		now:          time.Now,
	}
}

// Authorize reports whether a user may stream location for a job: the
// job owner or the holder of the job's accepted application.
func (s *LocationService) Authorize(ctx context.Context, job *models.Job, userID string) (bool, error) {
	if job.OwnerID == userID {
		return true, nil
	}
	accepted, err := s.applications.HasAccepted(ctx, job.ID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check location admission: %w", err)
	}
	return accepted, nil
}

type locationUpdate struct {
	latitude  float64
	longitude float64
}

// LocationSession is one connection's processing pipeline. Updates are
// handed to a single worker goroutine through a bounded queue, so the
// connection's read loop never blocks on storage or geocoding, and
// updates from this connection are processed in arrival order.
type LocationSession struct {
	svc    *LocationService
	job    *models.Job
	client *RoomClient
	queue  chan locationUpdate
	done   chan struct{}
}

// NewSession starts the worker for an admitted connection
func (s *LocationService) NewSession(job *models.Job, client *RoomClient) *LocationSession {
	sess := &LocationSession{
		svc:    s,
		job:    job,
		client: client,
		queue:  make(chan locationUpdate, sessionQueueSize),
		done:   make(chan struct{}),
	}
	go sess.run()
	return sess
}

// Handle processes one raw frame from the connection. Heartbeats are
// acknowledged immediately; location updates are queued; anything else
// is silently dropped.
func (sess *LocationSession) Handle(raw []byte) {
	var payload locationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Debug().Str("job_id", sess.job.ID).Str("user_id", sess.client.UserID).Msg("Dropped malformed location payload")
		return
	}
	if err := sess.svc.validate.Struct(&payload); err != nil {
		log.Debug().Str("job_id", sess.job.ID).Str("user_id", sess.client.UserID).Msg("Dropped invalid location payload")
		return
	}

	switch payload.Type {
	case "heartbeat":
		if err := sess.client.Send(heartbeatAck{Type: "heartbeat_ack"}); err != nil {
			log.Debug().Err(err).Str("user_id", sess.client.UserID).Msg("Failed to ack heartbeat")
		}
	case "location":
		if payload.Latitude == nil || payload.Longitude == nil {
			log.Debug().Str("job_id", sess.job.ID).Str("user_id", sess.client.UserID).Msg("Dropped location payload without coordinates")
			return
		}
		update := locationUpdate{latitude: *payload.Latitude, longitude: *payload.Longitude}
		select {
		case sess.queue <- update:
		default:
			log.Warn().Str("job_id", sess.job.ID).Str("user_id", sess.client.UserID).Msg("Location queue full, update dropped")
		}
	}
}

// Close stops accepting updates. The worker drains what is already
// queued before exiting; a broadcast completing after the sender left
// the room is harmless.
func (sess *LocationSession) Close() {
	close(sess.queue)
}

// Done is closed once the worker has drained the queue and exited
func (sess *LocationSession) Done() <-chan struct{} {
	return sess.done
}

func (sess *LocationSession) run() {
	defer close(sess.done)
	for update := range sess.queue {
		sess.process(update)
	}
}

func (sess *LocationSession) process(update locationUpdate) {
	// Detached from the connection's request context: in-flight work may
	// complete after disconnect.
	ctx := context.Background()

	address := sess.svc.geocoder.Reverse(ctx, update.latitude, update.longitude)

	sample := &models.LocationSample{
		ID:         uuid.New().String(),
		JobID:      sess.job.ID,
		UserID:     sess.client.UserID,
		Latitude:   update.latitude,
		Longitude:  update.longitude,
		Address:    &address,
		RecordedAt: sess.svc.now(),
	}
	inserted, err := sess.svc.samples.Record(ctx, sample)
	if err != nil {
		log.Error().Err(err).Str("job_id", sess.job.ID).Str("user_id", sess.client.UserID).Msg("Failed to record location sample")
		return
	}
	log.Debug().
		Str("job_id", sess.job.ID).
		Str("user_id", sess.client.UserID).
		Bool("inserted", inserted).
		Msg("Location sample recorded")

	event := LocationEvent{
		Type:      "location",
		Latitude:  update.latitude,
		Longitude: update.longitude,
		Address:   address,
		Username:  sess.client.Username,
	}
	if err := sess.svc.hub.Broadcast(LocationRoom(sess.job.ID), event); err != nil {
		log.Error().Err(err).Str("job_id", sess.job.ID).Msg("Failed to broadcast location update")
	}
}

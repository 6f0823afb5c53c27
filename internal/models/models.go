package models

import "time"

// Job status lifecycle: open -> assigned -> active -> completed.
const (
	JobStatusOpen      = "open"
	JobStatusAssigned  = "assigned"
	JobStatusActive    = "active"
	JobStatusCompleted = "completed"
)

// User represents a registered user
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	PushToken    *string   `json:"push_token,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Job represents a posted short-duration work opportunity.
// Coordinates are nullable: a job may be posted before its location is
// known, in which case it cannot be matched.
type Job struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// HasLocation reports whether the job carries coordinates
func (j *Job) HasLocation() bool {
	return j.Latitude != nil && j.Longitude != nil
}

// Application represents an applicant's request to perform a job
type Application struct {
	ID          string    `json:"id"`
	JobID       string    `json:"job_id"`
	ApplicantID string    `json:"applicant_id"`
	Accepted    bool      `json:"accepted"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// PendingApplicant is an Application joined with the ranking inputs for
// its applicant: last known location and rating aggregates.
// AverageRating is nil when the applicant has never been rated.
type PendingApplicant struct {
	Application   Application `json:"application"`
	Username      string      `json:"username"`
	LastLatitude  *float64    `json:"last_latitude,omitempty"`
	LastLongitude *float64    `json:"last_longitude,omitempty"`
	AverageRating *float64    `json:"average_rating,omitempty"`
	CompletedJobs int         `json:"completed_jobs"`
}

// RankedApplication is a matching result: the application plus the
// computed distance and the rating used for tie-breaking.
type RankedApplication struct {
	Application   Application `json:"application"`
	Username      string      `json:"username"`
	DistanceKm    float64     `json:"distance_km"`
	AverageRating float64     `json:"average_rating"`
}

// ChatMessage represents one message in a job's chat room. Append-only.
type ChatMessage struct {
	ID       string    `json:"id"`
	JobID    string    `json:"job_id"`
	SenderID string    `json:"sender_id"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
}

// LocationSample represents one stored location report for a user on a
// job. Address is the reverse-geocoded human-readable address, which may
// be a sentinel string when the geocoder is unavailable.
type LocationSample struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	UserID     string    `json:"user_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Address    *string   `json:"address,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Rating represents a peer rating left after a completed job
type Rating struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	RaterID   string    `json:"rater_id"`
	RateeID   string    `json:"ratee_id"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment represents an image attached to a job posting
type Attachment struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	UserID    string    `json:"user_id"`
	S3URL     string    `json:"s3_url"`
	CreatedAt time.Time `json:"created_at"`
}

package dto

import (
	"time"

	"github.com/noah-isme/aula-go-api/internal/models"
)

// LogEntryResponse is the public projection of one meeting log entry.
type LogEntryResponse struct {
	ID         uint                   `json:"id"`
	InstanceID uint                   `json:"instance_id"`
	CourseID   uint                   `json:"course_id"`
	UserID     uint                   `json:"user_id"`
	MeetingID  string                 `json:"meeting_id"`
	EventType  string                 `json:"event_type"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewLogEntryResponse maps a model to its public shape.
func NewLogEntryResponse(entry models.MeetingLog) LogEntryResponse {
	return LogEntryResponse{
		ID:         entry.ID,
		InstanceID: entry.InstanceID,
		CourseID:   entry.CourseID,
		UserID:     entry.UserID,
		MeetingID:  entry.MeetingID,
		EventType:  string(entry.EventType),
		Metadata:   entry.Metadata,
		CreatedAt:  entry.CreatedAt,
	}
}

// NewLogEntryResponseSlice maps a list of entries.
func NewLogEntryResponseSlice(entries []models.MeetingLog) []LogEntryResponse {
	responses := make([]LogEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, NewLogEntryResponse(entry))
	}
	return responses
}

// SummaryRequest is a periodic engagement snapshot reported for one user,
// usually ingested from the provider's meeting-events feed.
type SummaryRequest struct {
	UserID          uint           `json:"user_id" validate:"required"`
	Origin          int            `json:"origin" validate:"gte=0"`
	DurationMinutes int            `json:"duration_minutes" validate:"gte=0"`
	Engagement      map[string]int `json:"engagement"`
}

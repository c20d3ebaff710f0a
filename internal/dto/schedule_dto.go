package dto

import (
	"time"

	"github.com/noah-isme/aula-go-api/internal/models"
)

// ScheduleEntryResponse is one calendar entry in a course schedule listing.
type ScheduleEntryResponse struct {
	InstanceID      uint      `json:"instance_id"`
	CourseID        uint      `json:"course_id"`
	Name            string    `json:"name"`
	StartsAt        time.Time `json:"starts_at"`
	DurationSeconds int       `json:"duration_seconds"`
}

// NewScheduleEntryResponse maps a stored calendar entry.
func NewScheduleEntryResponse(event models.ScheduledEvent) ScheduleEntryResponse {
	return ScheduleEntryResponse{
		InstanceID:      event.InstanceID,
		CourseID:        event.CourseID,
		Name:            event.Name,
		StartsAt:        event.StartsAt,
		DurationSeconds: event.DurationSeconds,
	}
}

// NewScheduleEntryResponseSlice maps a list of calendar entries.
func NewScheduleEntryResponseSlice(events []models.ScheduledEvent) []ScheduleEntryResponse {
	responses := make([]ScheduleEntryResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, NewScheduleEntryResponse(event))
	}
	return responses
}

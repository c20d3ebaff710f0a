package dto

import (
	"time"

	"github.com/noah-isme/aula-go-api/internal/models"
)

// CompletionRuleInput is one enabled/threshold pair as supplied by the platform.
type CompletionRuleInput struct {
	Enabled   bool `json:"enabled"`
	Threshold int  `json:"threshold" validate:"gte=0"`
}

// InstanceCreateRequest describes a new conferencing activity.
type InstanceCreateRequest struct {
	CourseID         uint                           `json:"course_id" validate:"required"`
	Name             string                         `json:"name" validate:"required,max=255"`
	Welcome          string                         `json:"welcome"`
	OpeningTime      *time.Time                     `json:"opening_time"`
	ClosingTime      *time.Time                     `json:"closing_time"`
	WaitForModerator bool                           `json:"wait_for_moderator"`
	RecordingEnabled bool                           `json:"recording_enabled"`
	GroupMode        int                            `json:"group_mode" validate:"gte=0,lte=2"`
	CompletionRules  map[string]CompletionRuleInput `json:"completion_rules"`
}

// InstanceUpdateRequest carries partial edits. Identity fields (id, meeting
// id, secrets) are never part of it.
type InstanceUpdateRequest struct {
	Name             *string                        `json:"name" validate:"omitempty,max=255"`
	Welcome          *string                        `json:"welcome"`
	OpeningTime      *time.Time                     `json:"opening_time"`
	ClearOpening     bool                           `json:"clear_opening"`
	ClosingTime      *time.Time                     `json:"closing_time"`
	ClearClosing     bool                           `json:"clear_closing"`
	WaitForModerator *bool                          `json:"wait_for_moderator"`
	RecordingEnabled *bool                          `json:"recording_enabled"`
	GroupMode        *int                           `json:"group_mode" validate:"omitempty,gte=0,lte=2"`
	CompletionRules  map[string]CompletionRuleInput `json:"completion_rules"`
	Notify           bool                           `json:"notify"`
	NotifyMessage    string                         `json:"notify_message"`
}

// InstanceResponse is the public projection of an instance. Access secrets
// never leave the service.
type InstanceResponse struct {
	ID               uint       `json:"id"`
	CourseID         uint       `json:"course_id"`
	Name             string     `json:"name"`
	Welcome          string     `json:"welcome"`
	MeetingID        string     `json:"meeting_id"`
	OpeningTime      *time.Time `json:"opening_time"`
	ClosingTime      *time.Time `json:"closing_time"`
	WaitForModerator bool       `json:"wait_for_moderator"`
	RecordingEnabled bool       `json:"recording_enabled"`
	GroupMode        int        `json:"group_mode"`
	PresentationName string     `json:"presentation_name,omitempty"`
	PresentationURL  string     `json:"presentation_url,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewInstanceResponse maps a model to its public shape.
func NewInstanceResponse(instance models.Instance) InstanceResponse {
	return InstanceResponse{
		ID:               instance.ID,
		CourseID:         instance.CourseID,
		Name:             instance.Name,
		Welcome:          instance.Welcome,
		MeetingID:        instance.MeetingID,
		OpeningTime:      instance.OpeningTime,
		ClosingTime:      instance.ClosingTime,
		WaitForModerator: instance.WaitForModerator,
		RecordingEnabled: instance.RecordingEnabled,
		GroupMode:        int(instance.GroupMode),
		PresentationName: instance.PresentationName,
		PresentationURL:  instance.PresentationURL,
		CreatedAt:        instance.CreatedAt,
		UpdatedAt:        instance.UpdatedAt,
	}
}

// NewInstanceResponseSlice maps a list of models.
func NewInstanceResponseSlice(instances []models.Instance) []InstanceResponse {
	responses := make([]InstanceResponse, 0, len(instances))
	for _, instance := range instances {
		responses = append(responses, NewInstanceResponse(instance))
	}
	return responses
}

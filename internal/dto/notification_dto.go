package dto

import (
	"time"

	"github.com/noah-isme/aula-go-api/internal/models"
)

// NotificationCreateRequest publishes a message to a user or course channel.
type NotificationCreateRequest struct {
	Target  string `json:"target" validate:"required"`
	Type    string `json:"type" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// NotificationResponse is the public projection of a stored notification.
type NotificationResponse struct {
	ID        uint      `json:"id"`
	Target    string    `json:"target"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationResponse maps a model to its public shape.
func NewNotificationResponse(notification models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        notification.ID,
		Target:    notification.Target,
		Type:      notification.Type,
		Message:   notification.Message,
		Read:      notification.Read,
		CreatedAt: notification.CreatedAt,
	}
}

// NewNotificationResponseSlice maps a list of models.
func NewNotificationResponseSlice(notifications []models.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, NewNotificationResponse(notification))
	}
	return responses
}

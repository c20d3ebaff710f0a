package dto

import (
	"time"

	"github.com/noah-isme/aula-go-api/pkg/bigbluebutton"
)

// JoinResponse is the outcome of one join attempt. Exactly one of JoinURL or
// a terminal non-join state is meaningful: when the state is "waiting" the
// caller polls until JoinURL appears.
type JoinResponse struct {
	State               string              `json:"state"`
	JoinURL             string              `json:"join_url,omitempty"`
	OpeningTime         *time.Time          `json:"opening_time,omitempty"`
	ClosingTime         *time.Time          `json:"closing_time,omitempty"`
	PollIntervalSeconds int                 `json:"poll_interval_seconds,omitempty"`
	Recordings          []RecordingResponse `json:"recordings,omitempty"`
}

// RunningResponse reports live session state for waiting viewers.
type RunningResponse struct {
	Running bool `json:"running"`
}

// RecordingResponse is the public projection of a provider recording.
type RecordingResponse struct {
	RecordID    string    `json:"record_id"`
	Name        string    `json:"name"`
	PlaybackURL string    `json:"playback_url"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Published   bool      `json:"published"`
}

// NewRecordingResponse maps a provider recording descriptor.
func NewRecordingResponse(recording bigbluebutton.Recording) RecordingResponse {
	return RecordingResponse{
		RecordID:    recording.RecordID,
		Name:        recording.Name,
		PlaybackURL: recording.PlaybackURL,
		StartTime:   recording.StartTime,
		EndTime:     recording.EndTime,
		Published:   recording.Published,
	}
}

// NewRecordingResponseSlice maps a list of recordings.
func NewRecordingResponseSlice(recordings []bigbluebutton.Recording) []RecordingResponse {
	responses := make([]RecordingResponse, 0, len(recordings))
	for _, recording := range recordings {
		responses = append(responses, NewRecordingResponse(recording))
	}
	return responses
}

// CallbackRequest is the payload of an asynchronous provider notification.
type CallbackRequest struct {
	RecordID     string `json:"record_id" validate:"required"`
	CallbackType string `json:"callback_type" validate:"required"`
}

// CallbackResponse reports how a provider callback was handled.
type CallbackResponse struct {
	Duplicate bool  `json:"duplicate"`
	Count     int64 `json:"count"`
}

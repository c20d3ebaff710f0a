package models

import (
	"time"

	"gorm.io/datatypes"
)

// EventType enumerates the recognised meeting log events. The set is closed:
// appending an entry with any other value is a validation error.
type EventType string

const (
	EventAdd      EventType = "Add"
	EventEdit     EventType = "Edit"
	EventCreate   EventType = "Create"
	EventJoin     EventType = "Join"
	EventPlayed   EventType = "Played"
	EventLogout   EventType = "Logout"
	EventImport   EventType = "Import"
	EventDelete   EventType = "Delete"
	EventCallback EventType = "Callback"
	EventSummary  EventType = "Summary"
)

// Valid reports whether the event type belongs to the closed enumeration.
func (e EventType) Valid() bool {
	switch e {
	case EventAdd, EventEdit, EventCreate, EventJoin, EventPlayed,
		EventLogout, EventImport, EventDelete, EventCallback, EventSummary:
		return true
	}
	return false
}

// Metadata keys shared between the event log writers and readers.
const (
	MetaRecordID     = "recordid"
	MetaCallback     = "callback"
	MetaOrigin       = "origin"
	MetaData         = "data"
	MetaDuration     = "duration"
	MetaEngagement   = "engagement"
	MetaRecord       = "record"
	MetaHasRecording = "has_recordings"
)

// Callback types delivered by the conferencing provider.
const (
	CallbackRecordingReady = "recording_ready"
	CallbackMeetingEvents  = "meeting_events"
)

// MeetingLog is one append-only record of something that happened to an
// instance. Course and meeting context is denormalised at write time so the
// history survives instance edits and deletion.
type MeetingLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	InstanceID uint              `gorm:"not null;index" json:"instance_id"`
	CourseID   uint              `gorm:"not null" json:"course_id"`
	UserID     uint              `gorm:"index" json:"user_id"`
	MeetingID  string            `gorm:"size:128;not null" json:"meeting_id"`
	EventType  EventType         `gorm:"size:16;not null;index" json:"event_type"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

package models

import "time"

// ScheduledEvent is the calendar entry owned by an instance with an opening
// time. At most one exists per instance; it is rewritten on every edit and
// removed when the opening time is cleared or the instance is deleted.
type ScheduledEvent struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	InstanceID      uint      `gorm:"not null;uniqueIndex" json:"instance_id"`
	CourseID        uint      `gorm:"not null;index" json:"course_id"`
	Name            string    `gorm:"size:255;not null" json:"name"`
	StartsAt        time.Time `gorm:"not null" json:"starts_at"`
	DurationSeconds int       `gorm:"not null;default:0" json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Notification is a message fanned out to a user or course channel, typically
// after an instance edit that participants should hear about.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Target    string    `gorm:"size:64;index" json:"target"`
	Type      string    `gorm:"size:64" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

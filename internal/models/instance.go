package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// GroupMode controls how concurrent sessions are partitioned for one activity.
type GroupMode int

const (
	// GroupModeNone runs a single shared session per activity.
	GroupModeNone GroupMode = iota
	// GroupModeVisible partitions sessions per course but lets users see each other's groups.
	GroupModeVisible
	// GroupModeSeparate gives every group its own isolated session.
	GroupModeSeparate
)

// Instance is one configured conferencing activity inside a course.
//
// MeetingID and both access secrets are generated once at creation and never
// regenerated; everything else may change on edit.
type Instance struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	CourseID        uint   `gorm:"not null;index" json:"course_id"`
	Name            string `gorm:"size:255;not null" json:"name"`
	Welcome         string `gorm:"type:text" json:"welcome"`
	MeetingID       string `gorm:"size:64;not null;uniqueIndex" json:"meeting_id"`
	ModeratorSecret string `gorm:"size:64;not null" json:"-"`
	ViewerSecret    string `gorm:"size:64;not null" json:"-"`

	OpeningTime *time.Time `json:"opening_time"`
	ClosingTime *time.Time `json:"closing_time"`

	WaitForModerator bool      `gorm:"not null;default:false" json:"wait_for_moderator"`
	RecordingEnabled bool      `gorm:"not null;default:false" json:"recording_enabled"`
	GroupMode        GroupMode `gorm:"not null;default:0" json:"group_mode"`

	PresentationName string `gorm:"size:255" json:"presentation_name"`
	PresentationURL  string `gorm:"size:512" json:"presentation_url"`

	CompletionRules datatypes.JSONMap `gorm:"type:json" json:"completion_rules"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ComposedMeetingID derives the identity handed to the conferencing provider.
// Without grouping the bare meeting id is enough; with grouping the course and
// instance ids disambiguate concurrent sessions for the same activity, and
// separate-groups mode appends the group id as well.
func (i Instance) ComposedMeetingID(groupID uint) string {
	if i.GroupMode == GroupModeNone {
		return i.MeetingID
	}

	composed := fmt.Sprintf("%s-%d-%d", i.MeetingID, i.CourseID, i.ID)
	if i.GroupMode == GroupModeSeparate {
		composed = fmt.Sprintf("%s[%d]", composed, groupID)
	}
	return composed
}

// DurationSeconds returns the scheduled session length, or zero when either
// bound is absent.
func (i Instance) DurationSeconds() int {
	if i.OpeningTime == nil || i.ClosingTime == nil {
		return 0
	}
	duration := i.ClosingTime.Sub(*i.OpeningTime)
	if duration <= 0 {
		return 0
	}
	return int(duration / time.Second)
}

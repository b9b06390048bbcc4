package store

import (
	"time"

	"training-planner-backend/internal/model"
)

// LinkedResource is a resource assigned to an event.
type LinkedResource struct {
	EventID      int64  `gorm:"column:event_id" json:"-"`
	ResourceID   int64  `gorm:"column:resource_id" json:"resource_id"`
	Name         string `gorm:"column:resource_name" json:"resource_name"`
	CategoryID   int64  `gorm:"column:resource_category_id" json:"resource_category_id"`
	AssignStatus string `gorm:"column:assign_status" json:"assign_status"`
}

// EventListing is an event with its resources and enrolment.
type EventListing struct {
	model.Event
	Resources    []LinkedResource    `json:"resources"`
	Participants *model.Participants `json:"participants,omitempty"`
}

// TypeCount is one bar of the event-type histogram.
type TypeCount struct {
	Type  string `gorm:"column:event_type" json:"event_type"`
	Total int64  `gorm:"column:total" json:"total"`
}

// KPI holds the dashboard counters.
type KPI struct {
	Planned        int64       `json:"planned"`
	Executed       int64       `json:"executed"`
	Participants   int64       `json:"participants"`
	UnreadMessages int64       `json:"unread_messages"`
	ByType         []TypeCount `json:"by_type"`
}

// DeadlineWarning is a reserved event whose confirmation deadline is near.
type DeadlineWarning struct {
	EventID              int64     `gorm:"column:event_id" json:"event_id"`
	Name                 string    `gorm:"column:event_name" json:"event_name"`
	StartDate            time.Time `gorm:"column:event_start_date" json:"event_start_date"`
	ConfirmationDeadline time.Time `gorm:"column:event_confirmation_deadline" json:"event_confirmation_deadline"`
	DaysLeft             int       `gorm:"-" json:"days_left"`
}

// ParticipantWarning is an upcoming training with open seats.
type ParticipantWarning struct {
	EventID   int64     `gorm:"column:event_id" json:"event_id"`
	Name      string    `gorm:"column:event_name" json:"event_name"`
	Type      string    `gorm:"column:event_type" json:"event_type"`
	StartDate time.Time `gorm:"column:event_start_date" json:"event_start_date"`
	Required  int       `gorm:"column:required_participants" json:"required_participants"`
	Inscribed int       `gorm:"column:inscribed_participants" json:"inscribed_participants"`
	DaysToGo  int       `gorm:"-" json:"days_to_start"`
}

// ScheduleEntry is a ledger interval of a room or workstation.
type ScheduleEntry struct {
	TemporalStatusID int64      `gorm:"column:temporal_status_id" json:"temporal_status_id"`
	ResourceID       int64      `gorm:"column:resource_id" json:"resource_id"`
	Name             string     `gorm:"column:resource_name" json:"resource_name"`
	CategoryID       int64      `gorm:"column:resource_category_id" json:"resource_category_id"`
	StatusType       string     `gorm:"column:status_type" json:"status_type"`
	StartDate        time.Time  `gorm:"column:start_date" json:"start_date"`
	EndDate          *time.Time `gorm:"column:end_date" json:"end_date"`
	Details          string     `gorm:"column:details" json:"details"`
}

// StatusRow is one line of the event status table.
type StatusRow struct {
	EventID              int64     `gorm:"column:event_id" json:"event_id"`
	Name                 string    `gorm:"column:event_name" json:"event_name"`
	Type                 string    `gorm:"column:event_type" json:"event_type"`
	StartDate            time.Time `gorm:"column:event_start_date" json:"event_start_date"`
	EndDate              time.Time `gorm:"column:event_end_date" json:"event_end_date"`
	Status               string    `gorm:"column:event_status" json:"event_status"`
	ConfirmationDeadline time.Time `gorm:"column:event_confirmation_deadline" json:"event_confirmation_deadline"`
	Required             *int      `gorm:"column:required_participants" json:"required_participants"`
	Inscribed            *int      `gorm:"column:inscribed_participants" json:"inscribed_participants"`
	Total                *int      `gorm:"column:total_part" json:"total_part"`
}

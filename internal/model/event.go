package model

import "time"

// Event is a scheduled activity that reserves a set of resources.
type Event struct {
	ID                   int64     `gorm:"column:event_id;primaryKey" json:"event_id"`
	Name                 string    `gorm:"column:event_name;size:256;not null" json:"event_name"`
	NameOther            string    `gorm:"column:event_name_other;size:256" json:"event_name_other"`
	Type                 string    `gorm:"column:event_type;size:64;not null;index" json:"event_type"`
	TypeOther            string    `gorm:"column:event_type_other;size:128" json:"event_type_other"`
	StartDate            time.Time `gorm:"column:event_start_date;type:date;not null;index" json:"event_start_date"`
	EndDate              time.Time `gorm:"column:event_end_date;type:date;not null" json:"event_end_date"`
	Status               string    `gorm:"column:event_status;size:32;not null;index" json:"event_status"`
	ConfirmationDeadline time.Time `gorm:"column:event_confirmation_deadline;type:date" json:"event_confirmation_deadline"`
	CreatedBy            string    `gorm:"column:created_by;size:64" json:"created_by"`
	CreatedAt            time.Time `json:"created_at"`
}

func (Event) TableName() string { return "events" }

// EventResource links an event to one of its reserved resources.
type EventResource struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	EventID      int64     `gorm:"column:event_id;not null;index" json:"event_id"`
	ResourceID   int64     `gorm:"column:resource_id;not null;index" json:"resource_id"`
	AssignStatus string    `gorm:"column:assign_status;size:32;not null" json:"assign_status"`
	CreatedBy    string    `gorm:"column:created_by;size:64" json:"created_by"`
	UpdateDate   time.Time `gorm:"column:update_date;autoUpdateTime" json:"update_date"`
}

func (EventResource) TableName() string { return "event_resources" }

// Participants tracks enrolment for a training event.
type Participants struct {
	EventID               int64 `gorm:"column:event_id;primaryKey;autoIncrement:false" json:"event_id"`
	RequiredParticipants  int   `gorm:"column:required_participants;not null" json:"required_participants"`
	InscribedParticipants int   `gorm:"column:inscribed_participants;not null" json:"inscribed_participants"`
	TotalPart             int   `gorm:"column:total_part" json:"total_part"`
}

func (Participants) TableName() string { return "participants" }

// Training is an entry of the event-name catalog.
type Training struct {
	ID   int64  `gorm:"column:training_id;primaryKey" json:"training_id"`
	Name string `gorm:"column:training_name;size:256;not null" json:"training_name"`
	Type string `gorm:"column:training_type;size:64" json:"training_type"`
}

func (Training) TableName() string { return "trainings" }

// Holiday blocks out a calendar range on the schedule.
type Holiday struct {
	ID        int64     `gorm:"column:holiday_id;primaryKey" json:"holiday_id"`
	StartDate time.Time `gorm:"column:start_date;type:date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"column:end_date;type:date;not null" json:"end_date"`
	Holiday   string    `gorm:"column:holiday;size:256" json:"holiday"`
}

func (Holiday) TableName() string { return "holidays" }

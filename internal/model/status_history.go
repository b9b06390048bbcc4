package model

import "time"

// Ledger status types written by the event flows. Any other value is a
// manual operator reason.
const (
	StatusReserved   = "Reserved"
	StatusProgrammed = "Programmed"
	StatusConfirmed  = "Confirmed"
	StatusExecuted   = "Executed"
)

// EventDrivenStatuses are the ledger status types owned by event flows.
var EventDrivenStatuses = []string{StatusReserved, StatusProgrammed, StatusConfirmed, StatusExecuted}

// ResourceStatusHistory is one interval during which a resource is
// unavailable. A nil EndDate means open-ended.
type ResourceStatusHistory struct {
	ID         int64      `gorm:"column:temporal_status_id;primaryKey" json:"temporal_status_id"`
	ResourceID int64      `gorm:"column:resource_id;not null;index:idx_rsh_resource_start,priority:1" json:"resource_id"`
	StatusType string     `gorm:"column:status_type;size:128;not null" json:"status_type"`
	StartDate  time.Time  `gorm:"column:start_date;type:date;not null;index:idx_rsh_resource_start,priority:2" json:"start_date"`
	EndDate    *time.Time `gorm:"column:end_date;type:date" json:"end_date"`
	Details    string     `gorm:"column:details;size:512" json:"details"`
	CreatedBy  string     `gorm:"column:created_by;size:64" json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (ResourceStatusHistory) TableName() string { return "resource_status_history" }

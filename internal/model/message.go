package model

import "time"

// Message types and read states.
const (
	MessageTypeMessage     = "message"
	MessageTypeInformation = "information"
	MessageTypeWarning     = "warning"

	MessageNotRead = "not read"
	MessageRead    = "read"
)

// Message is one entry of the append-only audit trail.
type Message struct {
	ID        int64     `gorm:"column:message_id;primaryKey" json:"message_id"`
	Type      string    `gorm:"column:message_type;size:32;not null;index" json:"message_type"`
	Content   string    `gorm:"column:message_cont;size:1024;not null" json:"message_cont"`
	Status    string    `gorm:"column:message_status;size:16;not null;index" json:"message_status"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "messages" }

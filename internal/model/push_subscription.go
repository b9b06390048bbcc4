package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint string `gorm:"primaryKey" json:"endpoint"`
	P256DH   string `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth     string `gorm:"not null" json:"auth"`
	UserCode string `gorm:"size:64;index" json:"user_code"`
	// MessageTypes is a comma separated filter; empty means every type.
	MessageTypes string    `gorm:"size:256" json:"message_types"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is the durable in-app record of a dispatched coordination
// event, independent of whether the matching email was delivered.
type Notification struct {
	BaseModel

	UserID   string         `gorm:"type:uuid;index;not null" json:"user_id"`
	Type     string         `gorm:"type:varchar(64);not null" json:"type"`
	Message  string         `gorm:"type:text;not null" json:"message"`
	Metadata datatypes.JSON `json:"metadata"`

	ReadAt *time.Time `json:"read_at"`
}

// IsRead reports whether the notification has been acknowledged.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

package models

import "gorm.io/datatypes"

// WorkerProfile is the kiosk-facing record for a worker. It can override the
// display name and avatar from the auth identity and carries the full list of
// preferred languages stated at the front desk.
type WorkerProfile struct {
	BaseModel

	UserID      string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	DisplayName string `gorm:"type:varchar(255)" json:"display_name"`
	AvatarURL   string `gorm:"type:text" json:"avatar_url"`

	// PreferredLanguages is a JSON array of free-text language preferences in
	// priority order, e.g. ["es", "en"].
	PreferredLanguages datatypes.JSON `json:"preferred_languages"`
}

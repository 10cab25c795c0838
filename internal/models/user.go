package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the authentication identity of a worker. Display-facing attributes
// may live on a separate WorkerProfile record; the directory service coalesces
// the two into a single resolved profile.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`

	// PreferredLanguage is the free-text language preference captured at
	// sign-up, e.g. "es" or "Spanish". Kiosk profiles may carry a richer list.
	PreferredLanguage string `gorm:"type:varchar(64)" json:"preferred_language"`

	IsAdmin  bool `gorm:"default:false" json:"is_admin"`
	IsActive bool `gorm:"default:true" json:"is_active"`

	Profile *WorkerProfile `gorm:"foreignKey:UserID" json:"profile,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// DisplayName derives a human-readable name from the identity record alone.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

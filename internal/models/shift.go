package models

import "time"

// ShiftTemplate is the immutable weekly definition of a work slot.
type ShiftTemplate struct {
	BaseModel

	Name      string       `gorm:"type:varchar(255);not null" json:"name"`
	Weekday   time.Weekday `gorm:"not null" json:"weekday"`
	StartTime string       `gorm:"type:varchar(8);not null" json:"start_time"` // "10:00"
	EndTime   string       `gorm:"type:varchar(8);not null" json:"end_time"`   // "14:00"

	Recurrences []Recurrence `gorm:"foreignKey:ShiftTemplateID" json:"recurrences,omitempty"`
}

// Recurrence names a repeating pattern under a shift template, e.g. "every
// week" or "second week of the month". Requests and availability entries point
// at a recurrence rather than the raw template.
type Recurrence struct {
	BaseModel

	ShiftTemplateID string         `gorm:"type:uuid;not null;index" json:"shift_template_id"`
	ShiftTemplate   *ShiftTemplate `json:"shift_template,omitempty"`
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`
}

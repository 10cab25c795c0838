package models

// Availability levels a worker may state for a shift/recurrence pair. Levels
// feed the matching engine's ranking only; they never gate who may volunteer.
const (
	AvailabilityUsually = "usually"
	AvailabilityMaybe   = "maybe"
)

// AvailabilityEntry records a worker's stated willingness to cover a shift. A
// nil RecurrenceID means "any recurrence of this shift".
type AvailabilityEntry struct {
	BaseModel

	UserID          string  `gorm:"type:uuid;not null;index;uniqueIndex:idx_availability_scope" json:"user_id"`
	ShiftTemplateID string  `gorm:"type:uuid;not null;index;uniqueIndex:idx_availability_scope" json:"shift_template_id"`
	RecurrenceID    *string `gorm:"type:uuid;uniqueIndex:idx_availability_scope" json:"recurrence_id"`
	Level           string  `gorm:"type:varchar(16);not null" json:"level"`
}

package models

// Volunteer offer statuses. A withdrawn offer is revived in place when the
// worker volunteers again, so at most one row exists per (request, volunteer).
const (
	OfferStatusOffered   = "offered"
	OfferStatusWithdrawn = "withdrawn"
)

// VolunteerOffer is a worker's self-initiated, non-binding offer to cover an
// open request.
type VolunteerOffer struct {
	BaseModel

	RequestID       string             `gorm:"type:uuid;not null;index;uniqueIndex:idx_offer_request_volunteer" json:"request_id"`
	Request         *SubstituteRequest `json:"-"`
	VolunteerUserID string             `gorm:"type:uuid;not null;uniqueIndex:idx_offer_request_volunteer" json:"volunteer_user_id"`
	Status          string             `gorm:"type:varchar(16);not null" json:"status"`
}

package models

import "time"

// Substitute request statuses. A request is terminal once accepted, cancelled,
// or expired; terminal rows admit no further mutation.
const (
	RequestStatusOpen                = "open"
	RequestStatusAwaitingRequestConf = "awaiting_request_confirmation"
	RequestStatusAwaitingNomination  = "awaiting_nomination_confirmation"
	RequestStatusAccepted            = "accepted"
	RequestStatusCancelled           = "cancelled"
	RequestStatusExpired             = "expired"
)

// Request types.
const (
	RequestTypeSubstitute = "substitute"
	RequestTypeTrade      = "trade"
)

// SubstituteRequest asks for coverage of one specific calendar occurrence of a
// shift. It is the row the coordination state machine operates on.
type SubstituteRequest struct {
	BaseModel

	ShiftTemplateID string      `gorm:"type:uuid;not null;index" json:"shift_template_id"`
	RecurrenceID    string      `gorm:"type:uuid;not null;index" json:"recurrence_id"`
	Recurrence      *Recurrence `json:"recurrence,omitempty"`

	// Date is the ISO calendar date ("2025-03-10") of the occurrence.
	Date      string `gorm:"type:varchar(10);not null;index" json:"date"`
	StartTime string `gorm:"type:varchar(8);not null" json:"start_time"`
	EndTime   string `gorm:"type:varchar(8);not null" json:"end_time"`

	Type   string `gorm:"type:varchar(16);not null" json:"type"`
	Status string `gorm:"type:varchar(40);not null;index" json:"status"`

	RequestedByUserID    string     `gorm:"type:uuid;not null;index" json:"requested_by_user_id"`
	NominatedSubUserID   *string    `gorm:"type:uuid" json:"nominated_sub_user_id"`
	NominatedConfirmedAt *time.Time `json:"nominated_confirmed_at"`
	AcceptedByUserID     *string    `gorm:"type:uuid" json:"accepted_by_user_id"`
	AcceptedAt           *time.Time `json:"accepted_at"`

	// ActiveKey enforces the "one live request per requester, shift, and date"
	// invariant at the store level. Rows carry the composite
	// "requester|shift|date" until cancellation or expiry nulls it; an accepted
	// request keeps holding the slot so covered shifts cannot be re-requested.
	// NULLs do not collide under the unique index on any supported driver.
	ActiveKey *string `gorm:"type:varchar(128);uniqueIndex" json:"-"`

	Offers []VolunteerOffer `gorm:"foreignKey:RequestID" json:"offers,omitempty"`
}

// IsTerminal reports whether the request reached a final status.
func (r *SubstituteRequest) IsTerminal() bool {
	return IsTerminalStatus(r.Status)
}

// IsTerminalStatus reports whether the given status admits no further mutation.
func IsTerminalStatus(status string) bool {
	switch status {
	case RequestStatusAccepted, RequestStatusCancelled, RequestStatusExpired:
		return true
	}
	return false
}

// ComposeActiveKey builds the uniqueness token for a non-terminal request.
func ComposeActiveKey(requestedByUserID, shiftTemplateID, date string) string {
	return requestedByUserID + "|" + shiftTemplateID + "|" + date
}

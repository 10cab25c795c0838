package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/calebmorten/shiftrelief/internal/services"
	apperrors "github.com/calebmorten/shiftrelief/pkg/errors"
	"github.com/calebmorten/shiftrelief/pkg/response"
)

// AvailabilityHandler maintains the authenticated worker's availability entries.
type AvailabilityHandler struct {
	svc *services.AvailabilityService
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(svc *services.AvailabilityService) (*AvailabilityHandler, error) {
	if svc == nil {
		return nil, errors.New("availability handler: service is required")
	}
	return &AvailabilityHandler{svc: svc}, nil
}

type setAvailabilityBody struct {
	ShiftTemplateID string  `json:"shift_template_id" validate:"required"`
	RecurrenceID    *string `json:"recurrence_id"`
	Level           string  `json:"level" validate:"required,oneof=usually maybe"`
}

// Set creates or updates the entry for one shift scope.
func (h *AvailabilityHandler) Set(c *gin.Context) {
	var body setAvailabilityBody
	if !bindAndValidate(c, &body) {
		return
	}

	entry, err := h.svc.SetLevel(c.Request.Context(), services.SetAvailabilityInput{
		UserID:          currentUserID(c),
		ShiftTemplateID: body.ShiftTemplateID,
		RecurrenceID:    body.RecurrenceID,
		Level:           body.Level,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entry)
}

// Remove deletes the entry for one shift scope.
func (h *AvailabilityHandler) Remove(c *gin.Context) {
	shiftTemplateID := strings.TrimSpace(c.Query("shift_template_id"))
	if shiftTemplateID == "" {
		response.Error(c, apperrors.NewBadRequest("shift_template_id is required"))
		return
	}

	var recurrenceID *string
	if value := strings.TrimSpace(c.Query("recurrence_id")); value != "" {
		recurrenceID = &value
	}

	if err := h.svc.Remove(c.Request.Context(), currentUserID(c), shiftTemplateID, recurrenceID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// List returns the authenticated worker's availability entries.
func (h *AvailabilityHandler) List(c *gin.Context) {
	entries, err := h.svc.ListForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, entries)
}

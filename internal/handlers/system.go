package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/calebmorten/shiftrelief/internal/app/maintenance"
	apperrors "github.com/calebmorten/shiftrelief/pkg/errors"
	"github.com/calebmorten/shiftrelief/pkg/response"
)

// SystemHandler exposes administrative operations.
type SystemHandler struct {
	sweeper *maintenance.Sweeper
}

// NewSystemHandler constructs a SystemHandler.
func NewSystemHandler(sweeper *maintenance.Sweeper) (*SystemHandler, error) {
	if sweeper == nil {
		return nil, errors.New("system handler: sweeper is required")
	}
	return &SystemHandler{sweeper: sweeper}, nil
}

// RunSweep triggers the expiration sweep immediately instead of waiting for
// the schedule. Admin only.
func (h *SystemHandler) RunSweep(c *gin.Context) {
	if !isAdmin(c) {
		response.Error(c, apperrors.ErrForbidden)
		return
	}

	if err := h.sweeper.RunOnce(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"swept": true})
}

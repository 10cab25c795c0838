package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/calebmorten/shiftrelief/internal/services"
	"github.com/calebmorten/shiftrelief/pkg/response"
)

// RequestHandler exposes the coordination commands and request views.
type RequestHandler struct {
	coordination *services.CoordinationService
	matching     *services.MatchingService
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(coordination *services.CoordinationService, matching *services.MatchingService) (*RequestHandler, error) {
	if coordination == nil || matching == nil {
		return nil, errors.New("request handler: coordination and matching are required")
	}
	return &RequestHandler{coordination: coordination, matching: matching}, nil
}

type createRequestBody struct {
	RecurrenceID string `json:"recurrence_id" validate:"required"`
	Date         string `json:"date" validate:"required,shiftdate"`
	Type         string `json:"type" validate:"required,oneof=substitute trade"`
}

// Create opens a new coverage request for the authenticated worker.
func (h *RequestHandler) Create(c *gin.Context) {
	var body createRequestBody
	if !bindAndValidate(c, &body) {
		return
	}

	dto, err := h.coordination.CreateRequest(c.Request.Context(), services.CreateRequestInput{
		ActorID:      currentUserID(c),
		RecurrenceID: body.RecurrenceID,
		Date:         body.Date,
		Type:         body.Type,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, dto)
}

// List returns the open requests board, annotated with the viewer's offers.
func (h *RequestHandler) List(c *gin.Context) {
	rows, err := h.coordination.ListOpenRequests(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}

// Detail returns one request with its volunteer pool and ranked candidates.
func (h *RequestHandler) Detail(c *gin.Context) {
	detail, err := h.coordination.GetRequestDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// Matches returns workers whose stated availability covers the request's shift.
func (h *RequestHandler) Matches(c *gin.Context) {
	matches, err := h.matching.AvailabilityMatchesForRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, matches)
}

// Volunteer records the authenticated worker's offer to cover the request.
func (h *RequestHandler) Volunteer(c *gin.Context) {
	h.command(c, func() (services.RequestDTO, error) {
		return h.coordination.Volunteer(c.Request.Context(), c.Param("id"), currentUserID(c))
	})
}

// WithdrawVolunteer retracts the authenticated worker's offer.
func (h *RequestHandler) WithdrawVolunteer(c *gin.Context) {
	h.command(c, func() (services.RequestDTO, error) {
		return h.coordination.WithdrawVolunteer(c.Request.Context(), c.Param("id"), currentUserID(c))
	})
}

type nominateBody struct {
	NomineeUserID string `json:"nominee_user_id" validate:"required"`
}

// Nominate privately asks one worker to cover the shift.
func (h *RequestHandler) Nominate(c *gin.Context) {
	var body nominateBody
	if !bindAndValidate(c, &body) {
		return
	}
	h.command(c, func() (services.RequestDTO, error) {
		return h.coordination.NominateSubstitute(c.Request.Context(), c.Param("id"), currentUserID(c), body.NomineeUserID)
	})
}

// CancelNomination retracts a pending nomination.
func (h *RequestHandler) CancelNomination(c *gin.Context) {
	h.command(c, func() (services.RequestDTO, error) {
		return h.coordination.CancelNomination(c.Request.Context(), c.Param("id"), currentUserID(c))
	})
}

// ConfirmNomination is the nominee's acceptance.
func (h *RequestHandler) ConfirmNomination(c *gin.Context) {
	h.command(c, func() (services.RequestDTO, error) {
		return h.coordination.ConfirmNomination(c.Request.Context(), c.Param("id"), currentUserID(c))
	})
}

// DeclineNomination is the nominee's refusal.
func (h *RequestHandler) DeclineNomination(c *gin.Context) {
	h.command(c, func() (services.RequestDTO, error) {
		return h.coordination.DeclineNomination(c.Request.Context(), c.Param("id"), currentUserID(c))
	})
}

type acceptBody struct {
	VolunteerUserID string `json:"volunteer_user_id" validate:"required"`
}

// AcceptVolunteer closes the request with the named volunteer as substitute.
func (h *RequestHandler) AcceptVolunteer(c *gin.Context) {
	var body acceptBody
	if !bindAndValidate(c, &body) {
		return
	}
	h.command(c, func() (services.RequestDTO, error) {
		return h.coordination.AcceptVolunteer(c.Request.Context(), c.Param("id"), currentUserID(c), body.VolunteerUserID)
	})
}

// WithdrawAccepted lets the recorded substitute back out after acceptance.
func (h *RequestHandler) WithdrawAccepted(c *gin.Context) {
	h.command(c, func() (services.RequestDTO, error) {
		return h.coordination.WithdrawAcceptedSub(c.Request.Context(), c.Param("id"), currentUserID(c))
	})
}

// Cancel closes the request on the requester's behalf.
func (h *RequestHandler) Cancel(c *gin.Context) {
	h.command(c, func() (services.RequestDTO, error) {
		return h.coordination.CancelRequest(c.Request.Context(), c.Param("id"), currentUserID(c))
	})
}

func (h *RequestHandler) command(c *gin.Context, fn func() (services.RequestDTO, error)) {
	dto, err := fn()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dto)
}

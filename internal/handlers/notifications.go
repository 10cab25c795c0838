package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/calebmorten/shiftrelief/internal/realtime"
	"github.com/calebmorten/shiftrelief/internal/services"
	"github.com/calebmorten/shiftrelief/pkg/response"
)

// NotificationHandler exposes the in-app notification inbox and its live stream.
type NotificationHandler struct {
	svc *services.NotificationService
	hub *realtime.Hub
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(svc *services.NotificationService, hub *realtime.Hub) (*NotificationHandler, error) {
	if svc == nil || hub == nil {
		return nil, errors.New("notification handler: service and hub are required")
	}
	return &NotificationHandler{svc: svc, hub: hub}, nil
}

// List returns the authenticated worker's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"

	rows, err := h.svc.ListForUser(c.Request.Context(), currentUserID(c), unreadOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}

// UnreadCount returns the badge count for the authenticated worker.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.svc.UnreadCount(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread": count})
}

// MarkRead acknowledges one notification.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	row, err := h.svc.MarkRead(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, row)
}

// MarkAllRead acknowledges every unread notification.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	changed, err := h.svc.MarkAllRead(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"marked": changed})
}

// Delete removes one notification from the authenticated worker's inbox.
func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Stream upgrades to a WebSocket and pushes coordination events as they happen.
func (h *NotificationHandler) Stream(c *gin.Context) {
	h.hub.Serve(currentUserID(c), c.Writer, c.Request)
}

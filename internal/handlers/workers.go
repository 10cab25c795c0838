package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/calebmorten/shiftrelief/internal/services"
	"github.com/calebmorten/shiftrelief/pkg/response"
)

// WorkerHandler exposes the worker directory.
type WorkerHandler struct {
	directory *services.DirectoryService
}

// NewWorkerHandler constructs a WorkerHandler.
func NewWorkerHandler(directory *services.DirectoryService) (*WorkerHandler, error) {
	if directory == nil {
		return nil, errors.New("worker handler: directory is required")
	}
	return &WorkerHandler{directory: directory}, nil
}

// List returns the resolved profiles of every active worker.
func (h *WorkerHandler) List(c *gin.Context) {
	workers, err := h.directory.ListActiveWorkers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, workers)
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/calebmorten/shiftrelief/pkg/response"
)

// Health reports process liveness.
func Health(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

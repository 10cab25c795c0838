package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/calebmorten/shiftrelief/internal/middleware"
)

func currentUserID(c *gin.Context) string {
	if value, ok := c.Get(middleware.CtxUserIDKey); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}

func isAdmin(c *gin.Context) bool {
	if value, ok := c.Get(middleware.CtxIsAdminKey); ok {
		if admin, ok := value.(bool); ok {
			return admin
		}
	}
	return false
}

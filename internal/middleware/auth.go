package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/calebmorten/shiftrelief/internal/auth"
	"github.com/calebmorten/shiftrelief/pkg/errors"
	"github.com/calebmorten/shiftrelief/pkg/response"
)

const (
	CtxClaimsKey  = "authClaims"
	CtxUserIDKey  = "userID"
	CtxIsAdminKey = "isAdmin"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxIsAdminKey, claims.IsAdmin)

		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header, falling back
// to the query string for WebSocket upgrades where headers cannot be set.
func bearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return strings.TrimSpace(c.Query("token"))
}

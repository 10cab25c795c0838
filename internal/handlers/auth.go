package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	iauth "github.com/calebmorten/shiftrelief/internal/auth"
	"github.com/calebmorten/shiftrelief/internal/models"
	"github.com/calebmorten/shiftrelief/internal/services"
	apperrors "github.com/calebmorten/shiftrelief/pkg/errors"
	"github.com/calebmorten/shiftrelief/pkg/response"
)

// AuthHandler issues access tokens and exposes the authenticated identity.
type AuthHandler struct {
	db        *gorm.DB
	jwt       *iauth.JWTService
	directory *services.DirectoryService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwt *iauth.JWTService, directory *services.DirectoryService) (*AuthHandler, error) {
	if db == nil || jwt == nil || directory == nil {
		return nil, errors.New("auth handler: db, jwt, and directory are required")
	}
	return &AuthHandler{db: db, jwt: jwt, directory: directory}, nil
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login verifies credentials and returns a bearer token with the resolved profile.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	var user models.User
	err := h.db.WithContext(c.Request.Context()).
		Where("username = ? OR email = ?", req.Username, req.Username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, apperrors.ErrInvalidCredentials)
			return
		}
		response.Error(c, err)
		return
	}

	if !user.IsActive {
		response.Error(c, apperrors.ErrInvalidCredentials)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		response.Error(c, apperrors.ErrInvalidCredentials)
		return
	}

	token, err := h.jwt.GenerateAccessToken(user.ID, user.IsAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}

	now := time.Now().UTC()
	_ = h.db.Model(&user).Update("last_login_at", now).Error

	profile, err := h.directory.ResolveWorker(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":    token,
		"worker":   profile,
		"is_admin": user.IsAdmin,
	})
}

// Me returns the resolved profile of the authenticated worker.
func (h *AuthHandler) Me(c *gin.Context) {
	profile, err := h.directory.ResolveWorker(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"worker":   profile,
		"is_admin": isAdmin(c),
	})
}

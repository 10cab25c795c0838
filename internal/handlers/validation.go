package handlers

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/calebmorten/shiftrelief/pkg/errors"
	"github.com/calebmorten/shiftrelief/pkg/response"
	"github.com/calebmorten/shiftrelief/pkg/validator"
)

// bindAndValidate decodes the JSON body into dst and runs struct validation,
// writing the error response itself on failure.
func bindAndValidate(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid request body"))
		return false
	}
	if err := validator.ValidateStruct(dst); err != nil {
		response.Error(c, apperrors.NewBadRequest(err.Error()))
		return false
	}
	return true
}

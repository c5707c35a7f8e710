package middleware

import (
	apperrors "github.com/chachabrian/rideon-backend/pkg/errors"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Errors map[string]string `json:"errors,omitempty"`
}

// RespondError renders err as JSON with its status. Unknown errors become a
// generic 500 and the cause is attached to the gin context for the logger.
func RespondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	c.JSON(appErr.Status, ErrorResponse{
		Error:  appErr.Message,
		Code:   appErr.Code,
		Errors: appErr.Fields,
	})
}

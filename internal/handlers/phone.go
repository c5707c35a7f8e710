package handlers

import (
	"net/http"

	"github.com/chachabrian/rideon-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type PhoneInput struct {
	PhoneNumber string `json:"phone_number" binding:"required,phone"`
}

type VerifyPhoneInput struct {
	PhoneNumber      string `json:"phone_number" binding:"required,phone"`
	VerificationCode string `json:"verification_code" binding:"required,len=6,numeric"`
}

func SendPhoneCode(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input PhoneInput
		if !bindJSON(c, &input) {
			return
		}

		sent, err := d.Verification.SendPhoneCode(c.Request.Context(), middleware.CurrentUser(c), input.PhoneNumber)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":            "Verification code sent successfully",
			"phone_number":       sent.PhoneNumber,
			"expires_at":         sent.ExpiresAt,
			"expires_in_minutes": sent.ExpiresInMinutes,
		})
	}
}

func VerifyPhoneCode(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input VerifyPhoneInput
		if !bindJSON(c, &input) {
			return
		}

		user, err := d.Verification.VerifyPhoneCode(c.Request.Context(), middleware.CurrentUser(c), input.PhoneNumber, input.VerificationCode)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Phone number verified successfully!",
			"user":    user,
		})
	}
}

func PhoneStatus(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := d.Verification.PhoneStatus(c.Request.Context(), middleware.CurrentUser(c))
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

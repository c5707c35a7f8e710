package handlers

import (
	"net/http"

	"github.com/chachabrian/rideon-backend/internal/identity"
	"github.com/chachabrian/rideon-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// GetProfile retrieves the user's profile
func GetProfile(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := d.Identity.GetProfile(c.Request.Context(), middleware.CurrentUser(c).ID)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// UpdateProfile updates name and phone number. Omitted fields are left alone.
func UpdateProfile(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input identity.ProfileUpdate
		if !bindJSON(c, &input) {
			return
		}

		user, err := d.Identity.UpdateProfile(c.Request.Context(), middleware.CurrentUser(c), input)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func GetDriverProfile(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := d.Identity.GetDriverProfile(c.Request.Context(), middleware.CurrentUser(c))
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func CreateDriverProfile(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input identity.DriverProfileInput
		if !bindJSON(c, &input) {
			return
		}

		profile, err := d.Identity.CreateDriverProfile(c.Request.Context(), middleware.CurrentUser(c), input)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, profile)
	}
}

func UpdateDriverProfile(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input identity.DriverProfileInput
		if !bindJSON(c, &input) {
			return
		}

		profile, err := d.Identity.UpdateDriverProfile(c.Request.Context(), middleware.CurrentUser(c), input)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func DeleteDriverProfile(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.Identity.DeleteDriverProfile(c.Request.Context(), middleware.CurrentUser(c)); err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// RegisterDeviceToken stores the FCM token for push notifications
func RegisterDeviceToken(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			FCMToken string `json:"fcm_token" binding:"required"`
		}
		if !bindJSON(c, &input) {
			return
		}

		if err := d.Identity.SetDeviceToken(c.Request.Context(), middleware.CurrentUser(c), input.FCMToken); err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Device token registered successfully"})
	}
}

func RemoveDeviceToken(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := d.Identity.SetDeviceToken(c.Request.Context(), middleware.CurrentUser(c), ""); err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Device token removed successfully"})
	}
}

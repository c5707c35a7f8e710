package handlers

import (
	"github.com/chachabrian/rideon-backend/internal/middleware"
	"github.com/chachabrian/rideon-backend/internal/models"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the API on r. Global middleware (recovery, logging,
// metrics, CORS, sessions) is the caller's job. It panics when the request
// validators cannot be registered.
func RegisterRoutes(r *gin.Engine, d *Dependencies) {
	if err := registerValidators(); err != nil {
		panic(err)
	}

	r.GET("/health", Health(d))

	authRequired := middleware.AuthRequired(d.Identity)
	driversOnly := middleware.RequireRole(models.UserTypeDriver)
	ridersOnly := middleware.RequireRole(models.UserTypeRider)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", Register(d))
			auth.POST("/login", Login(d))
			auth.POST("/logout", Logout(d))
			auth.POST("/refresh", RefreshToken(d))
			auth.POST("/verify-email", VerifyEmail(d))
			auth.GET("/verify-email/:token", VerifyEmail(d))
			auth.POST("/resend-verification", ResendVerification(d))
			auth.POST("/forgot-password", RequestPasswordReset(d))
			auth.POST("/reset-password", ResetPassword(d))
			auth.POST("/change-password", authRequired, ChangePassword(d))
		}

		api.GET("/ws", authRequired, WebSocketHandler(d.Hub))

		protected := api.Group("/")
		protected.Use(authRequired)
		{
			users := protected.Group("/users")
			{
				users.GET("/profile", GetProfile(d))
				users.PUT("/profile", UpdateProfile(d))
				users.GET("/driver-profile", driversOnly, GetDriverProfile(d))
				users.POST("/driver-profile", driversOnly, CreateDriverProfile(d))
				users.PUT("/driver-profile", driversOnly, UpdateDriverProfile(d))
				users.DELETE("/driver-profile", driversOnly, DeleteDriverProfile(d))
				users.GET("/:id/ratings/summary", RatingSummary(d))
			}

			notifications := protected.Group("/notifications")
			{
				notifications.POST("/device-token", RegisterDeviceToken(d))
				notifications.DELETE("/device-token", RemoveDeviceToken(d))
			}

			phone := protected.Group("/phone")
			{
				phone.POST("/send-code", SendPhoneCode(d))
				phone.POST("/verify-code", VerifyPhoneCode(d))
				phone.GET("/status", PhoneStatus(d))
			}

			fare := protected.Group("/fare")
			{
				fare.GET("/info", FareInfo(d))
				fare.GET("/estimate", FareEstimate(d))
			}

			rides := protected.Group("/rides")
			{
				rides.GET("", ListMyRides(d))
				rides.POST("", ridersOnly, CreateRide(d))
				rides.GET("/available", driversOnly, AvailableRides(d))
				rides.GET("/:id", GetRide(d))
				rides.POST("/:id/accept", driversOnly, AcceptRide(d))
				rides.PATCH("/:id/status", UpdateRideStatus(d))
				rides.GET("/:id/messages", ListRideMessages(d))
				rides.POST("/:id/messages", PostRideMessage(d))
				rides.POST("/:id/arrival", driversOnly, DriverArrived(d))
				rides.GET("/:id/requests", ListRideRequests(d))
				rides.POST("/:id/requests", driversOnly, RequestRide(d))
				rides.GET("/:id/ratings", ListRideRatings(d))
				rides.POST("/:id/ratings", CreateRating(d))
			}

			ratings := protected.Group("/ratings")
			{
				ratings.GET("/:id", GetRating(d))
				ratings.PUT("/:id", UpdateRating(d))
				ratings.DELETE("/:id", DeleteRating(d))
			}
		}
	}
}

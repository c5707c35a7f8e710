package handlers

import (
	"github.com/chachabrian/rideon-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler upgrades an authenticated request to a ride event stream
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		hub.Serve(c.Writer, c.Request, userID, userType)
	}
}

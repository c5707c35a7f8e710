package handlers

import (
	"net/http"

	"github.com/chachabrian/rideon-backend/internal/middleware"
	"github.com/chachabrian/rideon-backend/internal/models"
	"github.com/chachabrian/rideon-backend/internal/rides"
	"github.com/gin-gonic/gin"
)

type UpdateStatusInput struct {
	Status models.RideStatus `json:"status" binding:"required"`
}

type MessageInput struct {
	MessageType models.MessageType `json:"message_type"`
	Message     string             `json:"message" binding:"required"`
}

// ListMyRides returns the rides the caller booked or drives
func ListMyRides(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := d.Rides.ListMine(c.Request.Context(), middleware.CurrentUser(c))
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func CreateRide(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input rides.CreateInput
		if !bindJSON(c, &input) {
			return
		}

		ride, err := d.Rides.Create(c.Request.Context(), middleware.CurrentUser(c), input)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ride)
	}
}

// AvailableRides lists pending rides a driver can accept
func AvailableRides(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := d.Rides.ListAvailable(c.Request.Context(), middleware.CurrentUser(c))
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func GetRide(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		ride, err := d.Rides.Get(c.Request.Context(), middleware.CurrentUser(c), id)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ride)
	}
}

func AcceptRide(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		ride, err := d.Rides.Accept(c.Request.Context(), middleware.CurrentUser(c), id)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Ride accepted successfully",
			"ride":    ride,
		})
	}
}

func UpdateRideStatus(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var input UpdateStatusInput
		if !bindJSON(c, &input) {
			return
		}

		ride, err := d.Rides.UpdateStatus(c.Request.Context(), middleware.CurrentUser(c), id, input.Status)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ride)
	}
}

func ListRideMessages(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		msgs, err := d.Rides.ListMessages(c.Request.Context(), middleware.CurrentUser(c), id)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

func PostRideMessage(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var input MessageInput
		if !bindJSON(c, &input) {
			return
		}

		msg, err := d.Rides.PostMessage(c.Request.Context(), middleware.CurrentUser(c), id, input.MessageType, input.Message)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

// DriverArrived notifies the rider that the driver is at the pickup point
func DriverArrived(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		msg, err := d.Rides.NotifyArrival(c.Request.Context(), middleware.CurrentUser(c), id)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":      "Arrival notification sent to rider",
			"ride_message": msg,
		})
	}
}

func RequestRide(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var input struct {
			Message string `json:"message"`
		}
		_ = c.ShouldBindJSON(&input)

		req, err := d.Rides.RequestRide(c.Request.Context(), middleware.CurrentUser(c), id, input.Message)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, req)
	}
}

func ListRideRequests(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		reqs, err := d.Rides.ListRequests(c.Request.Context(), middleware.CurrentUser(c), id)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reqs)
	}
}

package handlers

import (
	"net/http"

	"github.com/chachabrian/rideon-backend/pkg/utils"
	"github.com/gin-gonic/gin"
)

type FareEstimateQuery struct {
	PickupLat  *float64 `json:"pickup_lat" form:"pickup_lat" binding:"required,gte=-90,lte=90"`
	PickupLng  *float64 `json:"pickup_lng" form:"pickup_lng" binding:"required,gte=-180,lte=180"`
	DropoffLat *float64 `json:"dropoff_lat" form:"dropoff_lat" binding:"required,gte=-90,lte=90"`
	DropoffLng *float64 `json:"dropoff_lng" form:"dropoff_lng" binding:"required,gte=-180,lte=180"`
}

// FareInfo returns the configured base fare, per-km rate and currency
func FareInfo(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, d.Fare.Info())
	}
}

// FareEstimate prices a trip between two coordinates without booking it
func FareEstimate(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q FareEstimateQuery
		if !bindQuery(c, &q) {
			return
		}

		estimate := d.Fare.Estimate(
			utils.Point{Lat: *q.PickupLat, Lng: *q.PickupLng},
			utils.Point{Lat: *q.DropoffLat, Lng: *q.DropoffLng},
		)
		c.JSON(http.StatusOK, estimate)
	}
}

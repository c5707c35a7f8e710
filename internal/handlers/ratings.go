package handlers

import (
	"net/http"

	"github.com/chachabrian/rideon-backend/internal/middleware"
	"github.com/chachabrian/rideon-backend/internal/ratings"
	"github.com/gin-gonic/gin"
)

func CreateRating(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var input ratings.Input
		if !bindJSON(c, &input) {
			return
		}

		rating, err := d.Ratings.Create(c.Request.Context(), middleware.CurrentUser(c), id, input)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, rating)
	}
}

func ListRideRatings(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		list, err := d.Ratings.ListForRide(c.Request.Context(), middleware.CurrentUser(c), id)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func GetRating(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		rating, err := d.Ratings.Get(c.Request.Context(), id)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rating)
	}
}

func UpdateRating(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var input ratings.Input
		if !bindJSON(c, &input) {
			return
		}

		rating, err := d.Ratings.Update(c.Request.Context(), middleware.CurrentUser(c), id, input)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rating)
	}
}

func DeleteRating(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := d.Ratings.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// RatingSummary aggregates the ratings a user has received
func RatingSummary(d *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		summary, err := d.Ratings.Aggregate(c.Request.Context(), id)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

package rides

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chachabrian/rideon-backend/internal/models"
	"github.com/chachabrian/rideon-backend/internal/services"
	apperrors "github.com/chachabrian/rideon-backend/pkg/errors"
	"github.com/chachabrian/rideon-backend/pkg/logger"
	"gorm.io/gorm"
)

var errDuplicateRequest = apperrors.Conflict("You have already requested this ride", nil)

// RequestRide records a driver's interest in a pending ride, once per driver
func (s *Service) RequestRide(ctx context.Context, driver *models.User, id uint, message string) (*models.RideRequest, error) {
	if !driver.IsDriver() {
		return nil, apperrors.Forbidden("Only drivers can request rides", nil)
	}
	ride, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ride.RiderID == driver.ID {
		return nil, apperrors.Forbidden("You cannot request your own ride", nil)
	}
	if ride.Status != models.RideStatusPending {
		return nil, apperrors.ErrRideNotAvailable
	}

	db := s.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&models.RideRequest{}).Where("ride_id = ? AND driver_id = ?", id, driver.ID).Count(&existing).Error; err != nil {
		return nil, apperrors.Internal("Failed to check ride requests", err)
	}
	if existing > 0 {
		return nil, errDuplicateRequest
	}

	req := &models.RideRequest{
		RideID:   id,
		DriverID: driver.ID,
		Message:  strings.TrimSpace(message),
	}
	if err := db.Create(req).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errDuplicateRequest
		}
		return nil, apperrors.Internal("Failed to request ride", err)
	}
	req.Driver = driver

	s.log.Info("Ride requested", logger.Uint("ride_id", id), logger.Uint("driver_id", driver.ID))
	s.notifier.NotifyUser(ctx, ride.RiderID, services.Event{
		Type:  EventRideRequested,
		Title: "New driver request",
		Body:  fmt.Sprintf("%s wants to take your ride.", driver.FirstName),
		Data:  rideData(ride),
	})
	return req, nil
}

// ListRequests shows the rider who has offered to drive
func (s *Service) ListRequests(ctx context.Context, rider *models.User, id uint) ([]models.RideRequest, error) {
	ride, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ride.RiderID != rider.ID {
		return nil, apperrors.Forbidden("Only the rider can view requests for this ride", nil)
	}

	var reqs []models.RideRequest
	if err := s.db.WithContext(ctx).
		Preload("Driver").Preload("Driver.DriverProfile").
		Where("ride_id = ?", id).
		Order("created_at DESC, id DESC").
		Find(&reqs).Error; err != nil {
		return nil, apperrors.Internal("Failed to load ride requests", err)
	}
	return reqs, nil
}

// Package rides owns the ride state machine: booking, driver acceptance,
// status transitions, driver interest, in-ride messages and arrival notices.
package rides

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chachabrian/rideon-backend/internal/models"
	"github.com/chachabrian/rideon-backend/internal/services"
	apperrors "github.com/chachabrian/rideon-backend/pkg/errors"
	"github.com/chachabrian/rideon-backend/pkg/logger"
	"github.com/chachabrian/rideon-backend/pkg/utils"
	"gorm.io/gorm"
)

// Event types pushed to ride participants
const (
	EventRideAccepted      = "ride_accepted"
	EventRideStatusChanged = "ride_status_changed"
	EventRideRequested     = "ride_request"
	EventNewMessage        = "new_message"
	EventDriverArrived     = "driver_arrival"
)

type Service struct {
	db       *gorm.DB
	fare     *utils.FareCalculator
	notifier services.UserNotifier
	log      *logger.Logger
	now      func() time.Time
}

func NewService(db *gorm.DB, fare *utils.FareCalculator, notifier services.UserNotifier, log *logger.Logger) *Service {
	return &Service{
		db:       db,
		fare:     fare,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

type CreateInput struct {
	PickupLocation   string               `json:"pickup_location"`
	PickupLatitude   *float64             `json:"pickup_latitude"`
	PickupLongitude  *float64             `json:"pickup_longitude"`
	DropoffLocation  string               `json:"dropoff_location"`
	DropoffLatitude  *float64             `json:"dropoff_latitude"`
	DropoffLongitude *float64             `json:"dropoff_longitude"`
	IsScheduled      bool                 `json:"is_scheduled"`
	ScheduledTime    *time.Time           `json:"scheduled_time"`
	PaymentMethod    models.PaymentMethod `json:"payment_method"`
	Notes            string               `json:"notes"`
}

func checkAddress(fields apperrors.FieldErrors, field, value string) {
	switch {
	case strings.TrimSpace(value) == "":
		fields.Add(field, "This field is required.")
	case utils.LooksLikeCoordinates(value):
		fields.Add(field, "Please enter a street address rather than coordinates.")
	}
}

func checkCoordinate(fields apperrors.FieldErrors, field string, value *float64, limit float64) {
	switch {
	case value == nil:
		fields.Add(field, "This field is required.")
	case *value < -limit || *value > limit:
		fields.Add(field, fmt.Sprintf("Ensure this value is between -%g and %g.", limit, limit))
	}
}

func (s *Service) validate(in *CreateInput) apperrors.FieldErrors {
	fields := apperrors.FieldErrors{}

	checkAddress(fields, "pickup_location", in.PickupLocation)
	checkAddress(fields, "dropoff_location", in.DropoffLocation)
	checkCoordinate(fields, "pickup_latitude", in.PickupLatitude, 90)
	checkCoordinate(fields, "pickup_longitude", in.PickupLongitude, 180)
	checkCoordinate(fields, "dropoff_latitude", in.DropoffLatitude, 90)
	checkCoordinate(fields, "dropoff_longitude", in.DropoffLongitude, 180)

	if in.IsScheduled {
		switch {
		case in.ScheduledTime == nil:
			fields.Add("scheduled_time", "Scheduled time is required for scheduled rides.")
		case !in.ScheduledTime.After(s.now()):
			fields.Add("scheduled_time", "Scheduled time must be in the future.")
		}
	}

	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PaymentCash
	}
	switch in.PaymentMethod {
	case models.PaymentCash, models.PaymentCard:
	default:
		fields.Add("payment_method", fmt.Sprintf("\"%s\" is not a valid choice.", in.PaymentMethod))
	}
	return fields
}

// Create books a pending ride. Distance, fare and duration are fixed here.
func (s *Service) Create(ctx context.Context, rider *models.User, in CreateInput) (*models.Ride, error) {
	if !rider.IsRider() {
		return nil, apperrors.Forbidden("Only riders can book rides", nil)
	}
	if err := s.validate(&in).Err("Invalid ride details"); err != nil {
		return nil, err
	}

	pickup := utils.Point{Lat: *in.PickupLatitude, Lng: *in.PickupLongitude}
	dropoff := utils.Point{Lat: *in.DropoffLatitude, Lng: *in.DropoffLongitude}
	estimate := s.fare.Estimate(pickup, dropoff)

	ride := &models.Ride{
		RiderID:          rider.ID,
		PickupLocation:   strings.TrimSpace(in.PickupLocation),
		PickupLatitude:   pickup.Lat,
		PickupLongitude:  pickup.Lng,
		DropoffLocation:  strings.TrimSpace(in.DropoffLocation),
		DropoffLatitude:  dropoff.Lat,
		DropoffLongitude: dropoff.Lng,
		Status:           models.RideStatusPending,
		Fare:             estimate.Fare,
		Distance:         estimate.DistanceKm,
		Duration:         estimate.DurationMinutes,
		PaymentMethod:    in.PaymentMethod,
		Notes:            strings.TrimSpace(in.Notes),
	}
	if in.IsScheduled {
		ride.IsScheduled = true
		ride.ScheduledTime = in.ScheduledTime
	}

	if err := s.db.WithContext(ctx).Create(ride).Error; err != nil {
		return nil, apperrors.Internal("Failed to create ride", err)
	}
	ride.Rider = rider

	s.log.Info("Ride created",
		logger.Uint("ride_id", ride.ID),
		logger.Uint("rider_id", rider.ID),
		logger.Float64("fare", ride.Fare),
		logger.Float64("distance_km", ride.Distance),
	)
	return ride, nil
}

// ListMine returns rides where the user is rider or driver, newest first
func (s *Service) ListMine(ctx context.Context, user *models.User) ([]models.Ride, error) {
	var rides []models.Ride
	if err := s.db.WithContext(ctx).
		Preload("Rider").Preload("Driver").
		Where("rider_id = ? OR driver_id = ?", user.ID, user.ID).
		Order("created_at DESC, id DESC").
		Find(&rides).Error; err != nil {
		return nil, apperrors.Internal("Failed to load rides", err)
	}
	return rides, nil
}

// ListAvailable returns pending rides the caller did not book
func (s *Service) ListAvailable(ctx context.Context, user *models.User) ([]models.Ride, error) {
	var rides []models.Ride
	if err := s.db.WithContext(ctx).
		Preload("Rider").
		Where("status = ? AND rider_id <> ?", models.RideStatusPending, user.ID).
		Order("created_at DESC, id DESC").
		Find(&rides).Error; err != nil {
		return nil, apperrors.Internal("Failed to load available rides", err)
	}
	return rides, nil
}

func (s *Service) load(ctx context.Context, id uint) (*models.Ride, error) {
	var ride models.Ride
	if err := s.db.WithContext(ctx).Preload("Rider").Preload("Driver").First(&ride, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRideNotFound
		}
		return nil, apperrors.Internal("Failed to load ride", err)
	}
	return &ride, nil
}

// Get returns a ride to its participants, or to any driver while it is pending
func (s *Service) Get(ctx context.Context, user *models.User, id uint) (*models.Ride, error) {
	ride, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ride.IsParticipant(user.ID) {
		return ride, nil
	}
	if user.IsDriver() && ride.Status == models.RideStatusPending {
		return ride, nil
	}
	return nil, apperrors.ErrNotRideParticipant
}

// Accept assigns the driver to a pending ride. Of several concurrent callers
// exactly one wins; the rest get a conflict.
func (s *Service) Accept(ctx context.Context, driver *models.User, id uint) (*models.Ride, error) {
	if !driver.IsDriver() {
		return nil, apperrors.Forbidden("Only drivers can accept rides", nil)
	}
	ride, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ride.RiderID == driver.ID {
		return nil, apperrors.Forbidden("You cannot accept your own ride", nil)
	}

	res := s.db.WithContext(ctx).Model(&models.Ride{}).
		Where("id = ? AND status = ?", id, models.RideStatusPending).
		Updates(map[string]interface{}{
			"driver_id":  driver.ID,
			"status":     models.RideStatusAccepted,
			"updated_at": s.now(),
		})
	if res.Error != nil {
		return nil, apperrors.Internal("Failed to accept ride", res.Error)
	}
	if res.RowsAffected != 1 {
		return nil, apperrors.ErrRideNotAvailable
	}

	if ride, err = s.load(ctx, id); err != nil {
		return nil, err
	}

	s.log.Info("Ride accepted", logger.Uint("ride_id", ride.ID), logger.Uint("driver_id", driver.ID))
	s.notifier.NotifyUser(ctx, ride.RiderID, services.Event{
		Type:  EventRideAccepted,
		Title: "Ride accepted",
		Body:  fmt.Sprintf("%s %s is on the way to %s.", driver.FirstName, driver.LastName, ride.PickupLocation),
		Data:  rideData(ride),
	})
	return ride, nil
}

// transitionAllowed reports whether a ride may move from its current status to to.
// Either participant may drive any allowed transition.
func transitionAllowed(ride *models.Ride, to models.RideStatus) bool {
	switch to {
	case models.RideStatusInProgress:
		return ride.Status == models.RideStatusAccepted
	case models.RideStatusCompleted:
		return ride.Status == models.RideStatusInProgress
	case models.RideStatusCancelled:
		return !ride.Status.IsTerminal()
	}
	return false
}

// UpdateStatus moves the ride along the state machine on behalf of a participant
func (s *Service) UpdateStatus(ctx context.Context, user *models.User, id uint, to models.RideStatus) (*models.Ride, error) {
	switch to {
	case models.RideStatusInProgress, models.RideStatusCompleted, models.RideStatusCancelled:
	default:
		return nil, apperrors.Invalid("status", fmt.Sprintf("\"%s\" is not a valid choice.", to))
	}

	ride, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ride.IsParticipant(user.ID) {
		return nil, apperrors.ErrNotRideParticipant
	}
	if !transitionAllowed(ride, to) {
		return nil, apperrors.Invalid("status", fmt.Sprintf("Cannot change ride status from %s to %s.", ride.Status, to))
	}

	from := ride.Status
	res := s.db.WithContext(ctx).Model(&models.Ride{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": s.now()})
	if res.Error != nil {
		return nil, apperrors.Internal("Failed to update ride status", res.Error)
	}
	if res.RowsAffected != 1 {
		return nil, apperrors.ErrRideStatusChanged
	}
	ride.Status = to

	s.log.Info("Ride status changed",
		logger.Uint("ride_id", ride.ID),
		logger.String("from", string(from)),
		logger.String("to", string(to)),
		logger.Uint("by", user.ID),
	)
	if other := ride.Counterpart(user.ID); other != 0 {
		s.notifier.NotifyUser(ctx, other, services.Event{
			Type:  EventRideStatusChanged,
			Title: "Ride update",
			Body:  fmt.Sprintf("Your ride is now %s.", strings.ReplaceAll(string(to), "_", " ")),
			Data:  rideData(ride),
		})
	}
	return ride, nil
}

func rideData(ride *models.Ride) map[string]interface{} {
	return map[string]interface{}{
		"ride_id": ride.ID,
		"status":  string(ride.Status),
	}
}

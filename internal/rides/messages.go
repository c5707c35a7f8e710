package rides

import (
	"context"
	"fmt"
	"strings"

	"github.com/chachabrian/rideon-backend/internal/models"
	"github.com/chachabrian/rideon-backend/internal/services"
	apperrors "github.com/chachabrian/rideon-backend/pkg/errors"
	"github.com/chachabrian/rideon-backend/pkg/logger"
)

func (s *Service) participantRide(ctx context.Context, user *models.User, id uint) (*models.Ride, error) {
	ride, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ride.IsParticipant(user.ID) {
		return nil, apperrors.ErrNotRideParticipant
	}
	return ride, nil
}

// ListMessages returns the ride's conversation, newest first
func (s *Service) ListMessages(ctx context.Context, user *models.User, id uint) ([]models.RideMessage, error) {
	if _, err := s.participantRide(ctx, user, id); err != nil {
		return nil, err
	}

	var msgs []models.RideMessage
	if err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("ride_id = ?", id).
		Order("created_at DESC, id DESC").
		Find(&msgs).Error; err != nil {
		return nil, apperrors.Internal("Failed to load messages", err)
	}
	return msgs, nil
}

// PostMessage stores a message from one participant and notifies the other
func (s *Service) PostMessage(ctx context.Context, user *models.User, id uint, msgType models.MessageType, text string) (*models.RideMessage, error) {
	fields := apperrors.FieldErrors{}
	if msgType == "" {
		msgType = models.MessageGeneral
	}
	if !msgType.Valid() {
		fields.Add("message_type", fmt.Sprintf("\"%s\" is not a valid choice.", msgType))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		fields.Add("message", "This field may not be blank.")
	}
	if err := fields.Err("Invalid message"); err != nil {
		return nil, err
	}

	ride, err := s.participantRide(ctx, user, id)
	if err != nil {
		return nil, err
	}
	return s.postMessage(ctx, ride, user, msgType, text, "New message")
}

func (s *Service) postMessage(ctx context.Context, ride *models.Ride, sender *models.User, msgType models.MessageType, text, title string) (*models.RideMessage, error) {
	msg := &models.RideMessage{
		RideID:      ride.ID,
		SenderID:    sender.ID,
		MessageType: msgType,
		Message:     text,
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, apperrors.Internal("Failed to send message", err)
	}
	msg.Sender = sender

	if other := ride.Counterpart(sender.ID); other != 0 {
		data := rideData(ride)
		data["message_id"] = msg.ID
		data["message_type"] = string(msgType)
		eventType := EventNewMessage
		if msgType == models.MessageDriverArrival {
			eventType = EventDriverArrived
		}
		s.notifier.NotifyUser(ctx, other, services.Event{
			Type:  eventType,
			Title: title,
			Body:  text,
			Data:  data,
		})
	}
	return msg, nil
}

// NotifyArrival tells the rider the assigned driver is at the pickup point
func (s *Service) NotifyArrival(ctx context.Context, driver *models.User, id uint) (*models.RideMessage, error) {
	ride, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ride.IsDriver(driver.ID) {
		return nil, apperrors.Forbidden("Only the assigned driver can send arrival notifications", nil)
	}
	if ride.Status != models.RideStatusAccepted && ride.Status != models.RideStatusInProgress {
		return nil, apperrors.Invalid("status", "Arrival can only be sent for accepted or in-progress rides.")
	}

	text := fmt.Sprintf("Your driver has arrived at %s. Please proceed to the pickup point.", ride.PickupLocation)
	msg, err := s.postMessage(ctx, ride, driver, models.MessageDriverArrival, text, "Driver arrived")
	if err != nil {
		return nil, err
	}
	s.log.Info("Driver arrival sent", logger.Uint("ride_id", ride.ID), logger.Uint("driver_id", driver.ID))
	return msg, nil
}

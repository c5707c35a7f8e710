package models

import (
	"time"
)

type RideStatus string

const (
	RideStatusPending    RideStatus = "pending"
	RideStatusAccepted   RideStatus = "accepted"
	RideStatusInProgress RideStatus = "in_progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

type Ride struct {
	Model
	RiderID          uint          `json:"rider_id" gorm:"not null;index"`
	Rider            *User         `json:"rider,omitempty" gorm:"foreignKey:RiderID;constraint:OnDelete:CASCADE"`
	DriverID         *uint         `json:"driver_id" gorm:"index"`
	Driver           *User         `json:"driver,omitempty" gorm:"foreignKey:DriverID;constraint:OnDelete:SET NULL"`
	PickupLocation   string        `json:"pickup_location" gorm:"size:255;not null"`
	PickupLatitude   float64       `json:"pickup_latitude" gorm:"not null"`
	PickupLongitude  float64       `json:"pickup_longitude" gorm:"not null"`
	DropoffLocation  string        `json:"dropoff_location" gorm:"size:255;not null"`
	DropoffLatitude  float64       `json:"dropoff_latitude" gorm:"not null"`
	DropoffLongitude float64       `json:"dropoff_longitude" gorm:"not null"`
	Status           RideStatus    `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Fare             float64       `json:"fare" gorm:"type:decimal(10,2);not null"`
	Distance         float64       `json:"distance" gorm:"type:decimal(8,2);not null"`
	Duration         int           `json:"duration"`
	IsScheduled      bool          `json:"is_scheduled" gorm:"not null"`
	ScheduledTime    *time.Time    `json:"scheduled_time"`
	PaymentMethod    PaymentMethod `json:"payment_method" gorm:"type:varchar(10);not null;default:'cash'"`
	Notes            string        `json:"notes"`

	Requests []RideRequest `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Messages []RideMessage `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Ratings  []Rating      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (Ride) TableName() string {
	return "rides"
}

// IsParticipant reports whether userID is the rider or the assigned driver
func (r *Ride) IsParticipant(userID uint) bool {
	return r.RiderID == userID || r.IsDriver(userID)
}

func (r *Ride) IsDriver(userID uint) bool {
	return r.DriverID != nil && *r.DriverID == userID
}

// Counterpart returns the other participant, or 0 when there is none yet
func (r *Ride) Counterpart(userID uint) uint {
	if r.RiderID == userID {
		if r.DriverID != nil {
			return *r.DriverID
		}
		return 0
	}
	if r.IsDriver(userID) {
		return r.RiderID
	}
	return 0
}

// RideRequest records a driver's interest in a pending ride
type RideRequest struct {
	Model
	RideID   uint   `json:"ride_id" gorm:"not null;uniqueIndex:idx_ride_request_pair"`
	DriverID uint   `json:"driver_id" gorm:"not null;uniqueIndex:idx_ride_request_pair"`
	Driver   *User  `json:"driver,omitempty" gorm:"foreignKey:DriverID;constraint:OnDelete:CASCADE"`
	Message  string `json:"message"`
}

func (RideRequest) TableName() string {
	return "ride_requests"
}

type MessageType string

const (
	MessageGeneral       MessageType = "general"
	MessageDriverArrival MessageType = "driver_arrival"
	MessagePickupDelay   MessageType = "pickup_delay"
	MessageRouteChange   MessageType = "route_change"
)

// Valid reports whether t is a known message type
func (t MessageType) Valid() bool {
	switch t {
	case MessageGeneral, MessageDriverArrival, MessagePickupDelay, MessageRouteChange:
		return true
	}
	return false
}

type RideMessage struct {
	Model
	RideID      uint        `json:"ride_id" gorm:"not null;index"`
	SenderID    uint        `json:"sender_id" gorm:"not null"`
	Sender      *User       `json:"sender,omitempty" gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE"`
	MessageType MessageType `json:"message_type" gorm:"type:varchar(20);not null;default:'general'"`
	Message     string      `json:"message" gorm:"type:text;not null"`
	IsRead      bool        `json:"is_read" gorm:"not null"`
}

func (RideMessage) TableName() string {
	return "ride_messages"
}

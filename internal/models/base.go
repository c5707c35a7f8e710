package models

import "time"

// Model is the common primary key and timestamps. Rows are hard deleted so
// unique indexes (one rating per ride/rater/rated, one driver profile per
// user) stay meaningful and ON DELETE CASCADE applies.
type Model struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All lists every table for AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&DriverProfile{},
		&Ride{},
		&RideRequest{},
		&RideMessage{},
		&Rating{},
		&PhoneVerification{},
		&PasswordReset{},
		&BlacklistedToken{},
	}
}

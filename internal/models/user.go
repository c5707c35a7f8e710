package models

import (
	"golang.org/x/crypto/bcrypt"
)

type UserType string

const (
	UserTypeRider  UserType = "RIDER"
	UserTypeDriver UserType = "DRIVER"
	UserTypeAdmin  UserType = "ADMIN"
)

type User struct {
	Model
	Email                  string   `json:"email" gorm:"uniqueIndex;not null"`
	PhoneNumber            string   `json:"phone_number" gorm:"uniqueIndex;not null"`
	PasswordHash           string   `json:"-" gorm:"not null"`
	FirstName              string   `json:"first_name"`
	LastName               string   `json:"last_name"`
	UserType               UserType `json:"user_type" gorm:"type:varchar(10);not null;default:'RIDER'"`
	IsEmailVerified        bool     `json:"is_email_verified" gorm:"not null"`
	IsPhoneVerified        bool     `json:"is_phone_verified" gorm:"not null"`
	IsActive               bool     `json:"is_active" gorm:"not null"`
	EmailVerificationToken *string  `json:"-" gorm:"uniqueIndex"`
	FCMToken               *string  `json:"-"`

	DriverProfile      *DriverProfile      `json:"driver_profile,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	PhoneVerifications []PhoneVerification `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	PasswordResets     []PasswordReset     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsDriver() bool { return u.UserType == UserTypeDriver }
func (u *User) IsRider() bool  { return u.UserType == UserTypeRider }

// SetPassword stores the bcrypt hash of password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// DriverProfile holds the vehicle a DRIVER operates. One per user.
type DriverProfile struct {
	Model
	UserID        uint    `json:"user_id" gorm:"uniqueIndex;not null"`
	LicenseNumber string  `json:"license_number" gorm:"not null"`
	VehicleMake   string  `json:"vehicle_make" gorm:"not null"`
	VehicleModel  string  `json:"vehicle_model" gorm:"not null"`
	VehicleYear   int     `json:"vehicle_year" gorm:"not null"`
	VehicleColor  string  `json:"vehicle_color" gorm:"not null"`
	LicensePlate  string  `json:"license_plate" gorm:"not null"`
	IsAvailable   bool    `json:"is_available" gorm:"not null"`
	Rating        float64 `json:"rating" gorm:"type:decimal(3,2);not null"`
}

func (DriverProfile) TableName() string {
	return "driver_profiles"
}

// DefaultDriverRating is the rating of a driver nobody has rated yet
const DefaultDriverRating = 5.00

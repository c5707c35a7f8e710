package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chachabrian/rideon-backend/internal/models"
	apperrors "github.com/chachabrian/rideon-backend/pkg/errors"
	"github.com/chachabrian/rideon-backend/pkg/utils"
	"gorm.io/gorm"
)

// GetProfile loads the user with the driver profile if any
func (s *Service) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("DriverProfile").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Internal("Failed to load profile", err)
	}
	return &user, nil
}

type ProfileUpdate struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
}

// UpdateProfile applies a partial update. A new phone number must be unique and
// has to be verified again.
func (s *Service) UpdateProfile(ctx context.Context, user *models.User, in ProfileUpdate) (*models.User, error) {
	updates := map[string]interface{}{}

	if in.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.PhoneNumber != nil {
		phone := strings.TrimSpace(*in.PhoneNumber)
		if phone != user.PhoneNumber {
			if !utils.ValidPhoneNumber(phone) {
				return nil, apperrors.Invalid("phone_number", "Phone number must be in format: '+999999999'. Up to 15 digits allowed.")
			}
			if err := s.checkUnique(s.db.WithContext(ctx), "", phone, user.ID); err != nil {
				return nil, err
			}
			updates["phone_number"] = phone
			updates["is_phone_verified"] = false
		}
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return nil, apperrors.Internal("Failed to update profile", err)
		}
	}
	return s.GetProfile(ctx, user.ID)
}

// SetDeviceToken stores (or clears, when token is empty) the FCM device token
func (s *Service) SetDeviceToken(ctx context.Context, user *models.User, token string) error {
	var value interface{}
	if token = strings.TrimSpace(token); token != "" {
		value = token
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("fcm_token", value).Error; err != nil {
		return apperrors.Internal("Failed to update device token", err)
	}
	return nil
}

// DriverProfileInput is shared by create (all fields required) and partial update
type DriverProfileInput struct {
	LicenseNumber *string `json:"license_number"`
	VehicleMake   *string `json:"vehicle_make"`
	VehicleModel  *string `json:"vehicle_model"`
	VehicleYear   *int    `json:"vehicle_year"`
	VehicleColor  *string `json:"vehicle_color"`
	LicensePlate  *string `json:"license_plate"`
	IsAvailable   *bool   `json:"is_available"`
}

func (in DriverProfileInput) validate(fields apperrors.FieldErrors, requireAll bool) {
	text := map[string]*string{
		"license_number": in.LicenseNumber,
		"vehicle_make":   in.VehicleMake,
		"vehicle_model":  in.VehicleModel,
		"vehicle_color":  in.VehicleColor,
		"license_plate":  in.LicensePlate,
	}
	for field, v := range text {
		if v == nil {
			if requireAll {
				fields.Add(field, "This field is required for drivers.")
			}
			continue
		}
		if strings.TrimSpace(*v) == "" {
			fields.Add(field, "This field is required for drivers.")
		}
	}

	maxYear := time.Now().Year() + 1
	switch {
	case in.VehicleYear == nil || *in.VehicleYear == 0:
		if requireAll || in.VehicleYear != nil {
			fields.Add("vehicle_year", "This field is required for drivers.")
		}
	case *in.VehicleYear < 1900 || *in.VehicleYear > maxYear:
		fields.Add("vehicle_year", fmt.Sprintf("Vehicle year must be between 1900 and %d.", maxYear))
	}
}

func (in DriverProfileInput) apply(p *models.DriverProfile) *models.DriverProfile {
	if in.LicenseNumber != nil {
		p.LicenseNumber = strings.TrimSpace(*in.LicenseNumber)
	}
	if in.VehicleMake != nil {
		p.VehicleMake = strings.TrimSpace(*in.VehicleMake)
	}
	if in.VehicleModel != nil {
		p.VehicleModel = strings.TrimSpace(*in.VehicleModel)
	}
	if in.VehicleYear != nil {
		p.VehicleYear = *in.VehicleYear
	}
	if in.VehicleColor != nil {
		p.VehicleColor = strings.TrimSpace(*in.VehicleColor)
	}
	if in.LicensePlate != nil {
		p.LicensePlate = strings.ToUpper(strings.TrimSpace(*in.LicensePlate))
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
	return p
}

func (s *Service) GetDriverProfile(ctx context.Context, user *models.User) (*models.DriverProfile, error) {
	var profile models.DriverProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDriverProfileNotFound
		}
		return nil, apperrors.Internal("Failed to load driver profile", err)
	}
	return &profile, nil
}

func (s *Service) CreateDriverProfile(ctx context.Context, user *models.User, in DriverProfileInput) (*models.DriverProfile, error) {
	if _, err := s.GetDriverProfile(ctx, user); err == nil {
		return nil, apperrors.Conflict("Driver profile already exists", nil)
	} else if apperrors.GetAppError(err) != apperrors.ErrDriverProfileNotFound {
		return nil, err
	}

	fields := apperrors.FieldErrors{}
	in.validate(fields, true)
	if err := fields.Err("Invalid driver profile"); err != nil {
		return nil, err
	}

	profile := in.apply(&models.DriverProfile{
		UserID:      user.ID,
		IsAvailable: true,
		Rating:      models.DefaultDriverRating,
	})
	if in.IsAvailable != nil {
		profile.IsAvailable = *in.IsAvailable
	}
	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("Driver profile already exists", err)
		}
		return nil, apperrors.Internal("Failed to create driver profile", err)
	}
	return profile, nil
}

// UpdateDriverProfile applies a partial update; rating is not writable
func (s *Service) UpdateDriverProfile(ctx context.Context, user *models.User, in DriverProfileInput) (*models.DriverProfile, error) {
	profile, err := s.GetDriverProfile(ctx, user)
	if err != nil {
		return nil, err
	}

	fields := apperrors.FieldErrors{}
	in.validate(fields, false)
	if err := fields.Err("Invalid driver profile"); err != nil {
		return nil, err
	}

	in.apply(profile)
	if err := s.db.WithContext(ctx).Model(profile).Select(
		"license_number", "vehicle_make", "vehicle_model", "vehicle_year",
		"vehicle_color", "license_plate", "is_available",
	).Updates(profile).Error; err != nil {
		return nil, apperrors.Internal("Failed to update driver profile", err)
	}
	return profile, nil
}

func (s *Service) DeleteDriverProfile(ctx context.Context, user *models.User) error {
	res := s.db.WithContext(ctx).Where("user_id = ?", user.ID).Delete(&models.DriverProfile{})
	if res.Error != nil {
		return apperrors.Internal("Failed to delete driver profile", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrDriverProfileNotFound
	}
	return nil
}

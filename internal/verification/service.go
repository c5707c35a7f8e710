// Package verification issues and checks SMS phone codes, email verification
// tokens and single-use password reset tokens.
package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chachabrian/rideon-backend/internal/config"
	"github.com/chachabrian/rideon-backend/internal/models"
	"github.com/chachabrian/rideon-backend/internal/services"
	apperrors "github.com/chachabrian/rideon-backend/pkg/errors"
	"github.com/chachabrian/rideon-backend/pkg/logger"
	"github.com/chachabrian/rideon-backend/pkg/utils"
	"gorm.io/gorm"
)

const codeDigits = 6

type Service struct {
	db      *gorm.DB
	sms     services.SMSSender
	mailer  services.EmailSender
	cfg     config.VerificationConfig
	baseURL string
	log     *logger.Logger
	now     func() time.Time
}

func NewService(db *gorm.DB, sms services.SMSSender, mailer services.EmailSender, cfg config.VerificationConfig, baseURL string, log *logger.Logger) *Service {
	return &Service{
		db:      db,
		sms:     sms,
		mailer:  mailer,
		cfg:     cfg,
		baseURL: baseURL,
		log:     log,
		now:     time.Now,
	}
}

type CodeSent struct {
	PhoneNumber      string    `json:"phone_number"`
	ExpiresAt        time.Time `json:"expires_at"`
	ExpiresInMinutes int       `json:"expires_in_minutes"`
}

type PhoneStatus struct {
	PhoneNumber         string                     `json:"phone_number"`
	IsPhoneVerified     bool                       `json:"is_phone_verified"`
	RecentVerifications []models.PhoneVerification `json:"recent_verifications"`
}

func (s *Service) ttlMinutes() int {
	m := int(s.cfg.PhoneCodeTTL / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}

func (s *Service) checkPhone(user *models.User, phone string) error {
	if strings.TrimSpace(phone) != user.PhoneNumber {
		return apperrors.Invalid("phone_number", "Phone number does not match your account")
	}
	if user.IsPhoneVerified {
		return apperrors.Conflict("Phone number is already verified", nil)
	}
	return nil
}

// SendPhoneCode issues a new code for the user's own phone number and texts it
func (s *Service) SendPhoneCode(ctx context.Context, user *models.User, phone string) (*CodeSent, error) {
	if err := s.checkPhone(user, phone); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	now := s.now()

	var recent int64
	if err := db.Model(&models.PhoneVerification{}).
		Where("user_id = ? AND phone_number = ? AND created_at >= ?", user.ID, user.PhoneNumber, now.Add(-s.cfg.RateLimitWindow)).
		Count(&recent).Error; err != nil {
		return nil, apperrors.Internal("Failed to check recent codes", err)
	}
	if recent >= int64(s.cfg.RateLimitMax) {
		return nil, apperrors.RateLimited("Too many verification attempts. Please wait before requesting another code.")
	}

	code, err := utils.GenerateNumericCode(codeDigits)
	if err != nil {
		return nil, apperrors.Internal("Failed to generate code", err)
	}
	record := &models.PhoneVerification{
		UserID:           user.ID,
		PhoneNumber:      user.PhoneNumber,
		VerificationCode: code,
		ExpiresAt:        now.Add(s.cfg.PhoneCodeTTL),
	}
	record.CreatedAt = now
	if err := db.Create(record).Error; err != nil {
		return nil, apperrors.Internal("Failed to store verification code", err)
	}

	msg := fmt.Sprintf("Your RideOn verification code is: %s. This code will expire in %d minutes.", code, s.ttlMinutes())
	res := s.sms.Send(ctx, user.PhoneNumber, msg)
	if !res.Success {
		if err := db.Delete(record).Error; err != nil {
			s.log.Error("Failed to remove unsent verification code", logger.Uint("id", record.ID), logger.Err(err))
		}
		s.log.Warn("Verification SMS failed",
			logger.Uint("user_id", user.ID),
			logger.String("provider", res.Provider),
			logger.String("error", res.Error),
		)
		return nil, apperrors.Unavailable("Failed to send verification code. Please try again.", nil)
	}

	s.log.Info("Verification code sent", logger.Uint("user_id", user.ID), logger.String("message_id", res.MessageID))
	return &CodeSent{
		PhoneNumber:      user.PhoneNumber,
		ExpiresAt:        record.ExpiresAt,
		ExpiresInMinutes: s.ttlMinutes(),
	}, nil
}

// VerifyPhoneCode checks code against the latest open record. The attempt is
// counted before the comparison.
func (s *Service) VerifyPhoneCode(ctx context.Context, user *models.User, phone, code string) (*models.User, error) {
	if err := s.checkPhone(user, phone); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var record models.PhoneVerification
	err := db.Where("user_id = ? AND phone_number = ? AND is_verified = ?", user.ID, user.PhoneNumber, false).
		Order("created_at DESC, id DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("No verification request found. Please request a new verification code.", nil)
		}
		return nil, apperrors.Internal("Failed to load verification code", err)
	}

	errExhausted := apperrors.Invalid("verification_code", "Verification code has expired or exceeded maximum attempts. Please request a new code.")
	now := s.now()
	if !record.IsValid(now, s.cfg.MaxAttempts) {
		return nil, errExhausted
	}

	// claim an attempt slot; concurrent guesses past the limit lose here
	res := db.Model(&models.PhoneVerification{}).
		Where("id = ? AND is_verified = ? AND attempts < ? AND expires_at > ?", record.ID, false, s.cfg.MaxAttempts, now).
		Update("attempts", gorm.Expr("attempts + 1"))
	if res.Error != nil {
		return nil, apperrors.Internal("Failed to record attempt", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errExhausted
	}
	var attempts []int
	if err := db.Model(&models.PhoneVerification{}).Where("id = ?", record.ID).Pluck("attempts", &attempts).Error; err != nil || len(attempts) != 1 {
		return nil, apperrors.Internal("Failed to record attempt", err)
	}

	if record.VerificationCode != strings.TrimSpace(code) {
		remaining := s.cfg.MaxAttempts - attempts[0]
		if remaining > 0 {
			return nil, apperrors.Invalid("verification_code", fmt.Sprintf("Invalid verification code. You have %d attempts remaining.", remaining))
		}
		return nil, apperrors.Invalid("verification_code", "Invalid verification code. Maximum attempts exceeded. Please request a new code.")
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PhoneVerification{}).
			Where("id = ? AND is_verified = ?", record.ID, false).
			Update("is_verified", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return errExhausted
		}
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Update("is_phone_verified", true).Error
	})
	if errors.Is(err, errExhausted) {
		return nil, errExhausted
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to verify phone number", err)
	}
	user.IsPhoneVerified = true

	welcome := "Welcome to RideOn! Your phone number has been verified. You can now start requesting rides."
	if user.IsDriver() {
		welcome = "Welcome to RideOn! Your phone number has been verified. You can now start accepting ride requests."
	}
	if res := s.sms.Send(ctx, user.PhoneNumber, welcome); !res.Success {
		s.log.Warn("Welcome SMS failed", logger.Uint("user_id", user.ID), logger.String("error", res.Error))
	}

	s.log.Info("Phone number verified", logger.Uint("user_id", user.ID))
	return user, nil
}

// PhoneStatus returns the verification flag and the last five codes issued
func (s *Service) PhoneStatus(ctx context.Context, user *models.User) (*PhoneStatus, error) {
	var recent []models.PhoneVerification
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND phone_number = ?", user.ID, user.PhoneNumber).
		Order("created_at DESC, id DESC").
		Limit(5).
		Find(&recent).Error; err != nil {
		return nil, apperrors.Internal("Failed to load verification history", err)
	}
	return &PhoneStatus{
		PhoneNumber:         user.PhoneNumber,
		IsPhoneVerified:     user.IsPhoneVerified,
		RecentVerifications: recent,
	}, nil
}

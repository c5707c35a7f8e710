package verification

import (
	"context"
	"errors"
	"strings"

	"github.com/chachabrian/rideon-backend/internal/models"
	"github.com/chachabrian/rideon-backend/internal/services"
	apperrors "github.com/chachabrian/rideon-backend/pkg/errors"
	"github.com/chachabrian/rideon-backend/pkg/logger"
	"github.com/chachabrian/rideon-backend/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EmailVerified struct {
	User            *models.User `json:"user"`
	AlreadyVerified bool         `json:"already_verified"`
}

// VerifyEmail consumes an email verification token. Verifying twice is not an error.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*EmailVerified, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.Invalid("token", "Invalid or expired verification token.")
	}
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("email_verification_token = ?", token).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Invalid("token", "Invalid or expired verification token.")
		}
		return nil, apperrors.Internal("Failed to verify email", err)
	}
	if user.IsEmailVerified {
		return &EmailVerified{User: &user, AlreadyVerified: true}, nil
	}

	if err := db.Model(&user).Updates(map[string]interface{}{
		"is_email_verified":        true,
		"email_verification_token": nil,
	}).Error; err != nil {
		return nil, apperrors.Internal("Failed to verify email", err)
	}
	user.IsEmailVerified = true
	user.EmailVerificationToken = nil

	s.log.Info("Email verified", logger.Uint("user_id", user.ID))
	return &EmailVerified{User: &user}, nil
}

// ResendVerificationEmail issues a fresh token for an unverified account.
// Unknown and already verified addresses succeed silently.
func (s *Service) ResendVerificationEmail(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !utils.ValidEmail(email) {
		return apperrors.Invalid("email", "Enter a valid email address.")
	}
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperrors.Internal("Failed to resend verification email", err)
	}
	if user.IsEmailVerified || !user.IsActive {
		return nil
	}

	token := uuid.NewString()
	if err := db.Model(&user).Update("email_verification_token", token).Error; err != nil {
		return apperrors.Internal("Failed to resend verification email", err)
	}

	msg := services.VerificationEmail(displayName(&user), s.baseURL+"/verify-email/"+token)
	if err := s.mailer.Send(ctx, user.Email, msg.Subject, msg.Text, msg.HTML); err != nil {
		s.log.Warn("Verification email not sent", logger.Uint("user_id", user.ID), logger.Err(err))
	}
	return nil
}

func displayName(u *models.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}

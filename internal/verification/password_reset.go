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

var errResetTokenInvalid = apperrors.Invalid("token", "Invalid or expired reset token.")

// RequestPasswordReset mails a reset link to an active account. The result is
// the same whether or not the address is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !utils.ValidEmail(email) {
		return apperrors.Invalid("email", "Enter a valid email address.")
	}
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("email = ? AND is_active = ?", email, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Debug("Password reset requested for unknown email")
			return nil
		}
		return apperrors.Internal("Failed to request password reset", err)
	}

	reset := &models.PasswordReset{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.cfg.ResetTokenTTL),
	}
	if err := db.Create(reset).Error; err != nil {
		return apperrors.Internal("Failed to request password reset", err)
	}

	hours := int(s.cfg.ResetTokenTTL.Hours())
	msg := services.PasswordResetEmail(displayName(&user), s.baseURL+"/reset-password/"+reset.Token, hours)
	if err := s.mailer.Send(ctx, user.Email, msg.Subject, msg.Text, msg.HTML); err != nil {
		s.log.Warn("Password reset email not sent", logger.Uint("user_id", user.ID), logger.Err(err))
	}
	return nil
}

// ResetPassword consumes the token and sets the new password in one transaction
func (s *Service) ResetPassword(ctx context.Context, token, password, confirm string) error {
	fields := apperrors.FieldErrors{}
	if problems := utils.PasswordProblems(password); len(problems) > 0 {
		fields.Add("password", strings.Join(problems, " "))
	}
	if password != confirm {
		fields.Add("password_confirm", "Passwords don't match.")
	}
	if err := fields.Err("Password reset failed"); err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	db := s.db.WithContext(ctx)

	var reset models.PasswordReset
	if err := db.Where("token = ?", token).First(&reset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errResetTokenInvalid
		}
		return apperrors.Internal("Failed to reset password", err)
	}
	if !reset.IsValid(s.now()) {
		return errResetTokenInvalid
	}

	var user models.User
	if err := db.First(&user, reset.UserID).Error; err != nil {
		return errResetTokenInvalid
	}
	if err := user.SetPassword(password); err != nil {
		return apperrors.Internal("Failed to hash password", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PasswordReset{}).
			Where("id = ? AND is_used = ?", reset.ID, false).
			Update("is_used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return errResetTokenInvalid
		}
		return tx.Model(&user).Update("password_hash", user.PasswordHash).Error
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return apperrors.Internal("Failed to reset password", err)
	}

	s.log.Info("Password reset", logger.Uint("user_id", user.ID))
	return nil
}

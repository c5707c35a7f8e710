// Package identity creates accounts, checks credentials and issues, rotates
// and revokes the JWT pair.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chachabrian/rideon-backend/internal/models"
	"github.com/chachabrian/rideon-backend/internal/services"
	apperrors "github.com/chachabrian/rideon-backend/pkg/errors"
	"github.com/chachabrian/rideon-backend/pkg/logger"
	"github.com/chachabrian/rideon-backend/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenBlacklist records revoked token ids
type TokenBlacklist interface {
	Add(ctx context.Context, jti string, expiresAt time.Time) error
	Contains(ctx context.Context, jti string) (bool, error)
}

type Service struct {
	db        *gorm.DB
	tokens    *utils.TokenManager
	blacklist TokenBlacklist
	mailer    services.EmailSender
	baseURL   string
	log       *logger.Logger
}

func NewService(db *gorm.DB, tokens *utils.TokenManager, blacklist TokenBlacklist, mailer services.EmailSender, baseURL string, log *logger.Logger) *Service {
	return &Service{
		db:        db,
		tokens:    tokens,
		blacklist: blacklist,
		mailer:    mailer,
		baseURL:   baseURL,
		log:       log,
	}
}

type RegisterInput struct {
	Email           string          `json:"email"`
	PhoneNumber     string          `json:"phone_number"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	UserType        models.UserType `json:"user_type"`
	Password        string          `json:"password"`
	PasswordConfirm string          `json:"password_confirm"`

	LicenseNumber string `json:"license_number"`
	VehicleMake   string `json:"vehicle_make"`
	VehicleModel  string `json:"vehicle_model"`
	VehicleYear   int    `json:"vehicle_year"`
	VehicleColor  string `json:"vehicle_color"`
	LicensePlate  string `json:"license_plate"`
}

func (in *RegisterInput) normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.UserType = models.UserType(strings.ToUpper(string(in.UserType)))
	if in.UserType == "" {
		in.UserType = models.UserTypeRider
	}
}

func (in *RegisterInput) driverProfile() DriverProfileInput {
	return DriverProfileInput{
		LicenseNumber: &in.LicenseNumber,
		VehicleMake:   &in.VehicleMake,
		VehicleModel:  &in.VehicleModel,
		VehicleYear:   &in.VehicleYear,
		VehicleColor:  &in.VehicleColor,
		LicensePlate:  &in.LicensePlate,
	}
}

func (in *RegisterInput) validate() apperrors.FieldErrors {
	fields := apperrors.FieldErrors{}

	if !utils.ValidEmail(in.Email) {
		fields.Add("email", "Enter a valid email address.")
	}
	if !utils.ValidPhoneNumber(in.PhoneNumber) {
		fields.Add("phone_number", "Phone number must be in format: '+999999999'. Up to 15 digits allowed.")
	}
	if problems := utils.PasswordProblems(in.Password); len(problems) > 0 {
		fields.Add("password", strings.Join(problems, " "))
	}
	if in.Password != in.PasswordConfirm {
		fields.Add("password_confirm", "Passwords don't match.")
	}

	switch in.UserType {
	case models.UserTypeRider:
	case models.UserTypeDriver:
		dp := in.driverProfile()
		dp.validate(fields, true)
	default:
		fields.Add("user_type", "User type must be RIDER or DRIVER.")
	}
	return fields
}

// Register creates the account (and driver profile) and mails the verification link
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.normalize()
	if err := in.validate().Err("Registration failed"); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := s.checkUnique(db, in.Email, in.PhoneNumber, 0); err != nil {
		return nil, err
	}

	token := uuid.NewString()
	user := &models.User{
		Email:                  in.Email,
		PhoneNumber:            in.PhoneNumber,
		FirstName:              in.FirstName,
		LastName:               in.LastName,
		UserType:               in.UserType,
		IsActive:               true,
		EmailVerificationToken: &token,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if user.IsDriver() {
			profile := in.driverProfile().apply(&models.DriverProfile{
				UserID:      user.ID,
				IsAvailable: true,
				Rating:      models.DefaultDriverRating,
			})
			if err := tx.Create(profile).Error; err != nil {
				return err
			}
			user.DriverProfile = profile
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("A user with this email or phone number already exists", err)
		}
		return nil, apperrors.Internal("Registration failed", err)
	}

	// delivery failure never blocks registration
	email := services.VerificationEmail(displayName(user), s.baseURL+"/verify-email/"+token)
	if err := s.mailer.Send(ctx, user.Email, email.Subject, email.Text, email.HTML); err != nil {
		s.log.Debug("Verification email not sent", logger.Uint("user_id", user.ID), logger.Err(err))
	}

	s.log.Info("User registered", logger.Uint("user_id", user.ID), logger.String("user_type", string(user.UserType)))
	return user, nil
}

// checkUnique reports duplicate email/phone as a conflict with per-field messages
func (s *Service) checkUnique(db *gorm.DB, email, phone string, exceptID uint) error {
	dup := apperrors.FieldErrors{}

	if email != "" {
		var count int64
		if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", email, exceptID).Count(&count).Error; err != nil {
			return apperrors.Internal("Failed to check email", err)
		}
		if count > 0 {
			dup.Add("email", "A user with this email already exists.")
		}
	}
	if phone != "" {
		var count int64
		if err := db.Model(&models.User{}).Where("phone_number = ? AND id <> ?", phone, exceptID).Count(&count).Error; err != nil {
			return apperrors.Internal("Failed to check phone number", err)
		}
		if count > 0 {
			dup.Add("phone_number", "A user with this phone number already exists.")
		}
	}

	if len(dup) == 0 {
		return nil
	}
	conflict := apperrors.Conflict("A user with these details already exists", nil)
	conflict.Fields = dup
	return conflict
}

type LoginResult struct {
	Tokens *utils.TokenPair `json:"tokens"`
	User   *models.User     `json:"user"`
}

// Login checks credentials, then verification and active flags, then issues tokens
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !utils.ValidEmail(email) {
		return nil, apperrors.Invalid("email", "Enter a valid email address.")
	}
	if password == "" {
		return nil, apperrors.Invalid("password", "This field is required.")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Preload("DriverProfile").Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Internal("Login failed", err)
	}
	if err := user.CheckPassword(password); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsEmailVerified {
		return nil, apperrors.Forbidden("Please verify your email address before logging in.", nil).WithCode("EMAIL_NOT_VERIFIED")
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("Your account has been deactivated.", nil).WithCode("ACCOUNT_INACTIVE")
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID, user.Email, string(user.UserType))
	if err != nil {
		return nil, apperrors.Internal("Failed to generate tokens", err)
	}

	s.log.Info("User logged in", logger.Uint("user_id", user.ID))
	return &LoginResult{Tokens: pair, User: &user}, nil
}

// Logout revokes every token given. It never fails: revoking an invalid or
// already revoked token is indistinguishable from success to the caller.
func (s *Service) Logout(ctx context.Context, tokens ...string) {
	for _, token := range tokens {
		if token == "" {
			continue
		}
		jti, exp, err := s.tokens.ParseUnverifiedExpiry(token)
		if err != nil {
			continue
		}
		if err := s.blacklist.Add(ctx, jti, exp); err != nil {
			s.log.Warn("Failed to blacklist token on logout", logger.Err(err))
		}
	}
}

// Refresh rotates a refresh token: the old one is blacklisted and a new pair issued
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*utils.TokenPair, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, utils.TokenTypeRefresh)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	if err := s.ensureNotRevoked(ctx, claims.ID); err != nil {
		return nil, err
	}

	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, apperrors.Internal("Failed to rotate token", err)
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID, user.Email, string(user.UserType))
	if err != nil {
		return nil, apperrors.Internal("Failed to generate tokens", err)
	}
	return pair, nil
}

// Authenticate resolves an access token to its user
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.ValidateToken(accessToken, utils.TokenTypeAccess)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	if err := s.ensureNotRevoked(ctx, claims.ID); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthorized("User not found", nil)
		}
		return nil, apperrors.Internal("Failed to load user", err)
	}
	return &user, nil
}

func (s *Service) ensureNotRevoked(ctx context.Context, jti string) error {
	revoked, err := s.blacklist.Contains(ctx, jti)
	if err != nil {
		return apperrors.Internal("Failed to check token", err)
	}
	if revoked {
		return apperrors.Unauthorized("Token has been revoked", nil)
	}
	return nil
}

func (s *Service) activeUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthorized("User not found", nil)
		}
		return nil, apperrors.Internal("Failed to load user", err)
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("Your account has been deactivated.", nil).WithCode("ACCOUNT_INACTIVE")
	}
	return &user, nil
}

// ChangePassword replaces the password after checking the current one
func (s *Service) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword, confirm string) error {
	if err := user.CheckPassword(oldPassword); err != nil {
		return apperrors.Invalid("old_password", "Old password is incorrect.")
	}

	fields := apperrors.FieldErrors{}
	if problems := utils.PasswordProblems(newPassword); len(problems) > 0 {
		fields.Add("new_password", strings.Join(problems, " "))
	}
	if newPassword != confirm {
		fields.Add("new_password_confirm", "Passwords don't match.")
	}
	if err := fields.Err("Password change failed"); err != nil {
		return err
	}

	if err := user.SetPassword(newPassword); err != nil {
		return apperrors.Internal("Failed to hash password", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", user.PasswordHash).Error; err != nil {
		return apperrors.Internal("Failed to update password", err)
	}
	return nil
}

func displayName(u *models.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}

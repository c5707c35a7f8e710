package identity

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chachabrian/rideon-backend/internal/models"
	"github.com/chachabrian/rideon-backend/internal/services"
	"github.com/chachabrian/rideon-backend/internal/testutil"
	apperrors "github.com/chachabrian/rideon-backend/pkg/errors"
	"github.com/chachabrian/rideon-backend/pkg/logger"
	"github.com/chachabrian/rideon-backend/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentEmail struct {
	to, subject, text string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, text, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{to: to, subject: subject, text: text})
	return nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *recordingMailer) {
	t.Helper()
	db := testutil.NewDB(t)
	mailer := &recordingMailer{}
	tokens := utils.NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	svc := NewService(db, tokens, services.NewDBTokenBlacklist(db), mailer, "http://rideon.test", logger.NewNop())
	return svc, db, mailer
}

func riderInput() RegisterInput {
	return RegisterInput{
		Email:           "Ada@Example.com",
		PhoneNumber:     "+2348011112222",
		FirstName:       "Ada",
		LastName:        "Obi",
		UserType:        models.UserTypeRider,
		Password:        testutil.Password,
		PasswordConfirm: testutil.Password,
	}
}

func appErr(t *testing.T, err error) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperrors.IsAppError(err), "expected AppError, got %v", err)
	return apperrors.GetAppError(err)
}

func TestRegister_Rider(t *testing.T) {
	svc, db, mailer := newTestService(t)

	user, err := svc.Register(context.Background(), riderInput())
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", user.Email)
	assert.False(t, user.IsEmailVerified)
	assert.True(t, user.IsActive)
	require.NotNil(t, user.EmailVerificationToken)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ada@example.com", mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].text, "http://rideon.test/verify-email/"+*user.EmailVerificationToken)

	var profiles int64
	db.Model(&models.DriverProfile{}).Count(&profiles)
	assert.Zero(t, profiles)
}

func TestRegister_DriverCreatesProfile(t *testing.T) {
	svc, _, _ := newTestService(t)

	in := riderInput()
	in.UserType = "driver"
	in.LicenseNumber = "LAG-998877"
	in.VehicleMake = "Honda"
	in.VehicleModel = "Accord"
	in.VehicleYear = 2019
	in.VehicleColor = "Black"
	in.LicensePlate = "abc-123-de"

	user, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, user.DriverProfile)
	assert.Equal(t, models.UserTypeDriver, user.UserType)
	assert.Equal(t, "ABC-123-DE", user.DriverProfile.LicensePlate)
	assert.Equal(t, models.DefaultDriverRating, user.DriverProfile.Rating)
	assert.True(t, user.DriverProfile.IsAvailable)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		fields []string
	}{
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, []string{"email"}},
		{"bad phone", func(in *RegisterInput) { in.PhoneNumber = "08011112222" }, []string{"phone_number"}},
		{"weak password", func(in *RegisterInput) { in.Password, in.PasswordConfirm = "password", "password" }, []string{"password"}},
		{"mismatched confirm", func(in *RegisterInput) { in.PasswordConfirm = "Other!Pass1" }, []string{"password_confirm"}},
		{"unknown type", func(in *RegisterInput) { in.UserType = "ADMIN" }, []string{"user_type"}},
		{"driver without vehicle", func(in *RegisterInput) { in.UserType = models.UserTypeDriver }, []string{
			"license_number", "vehicle_make", "vehicle_model", "vehicle_year", "vehicle_color", "license_plate",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db, mailer := newTestService(t)
			in := riderInput()
			tt.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			e := appErr(t, err)
			assert.Equal(t, http.StatusBadRequest, e.Status)
			for _, f := range tt.fields {
				assert.Contains(t, e.Fields, f)
			}

			var users int64
			db.Model(&models.User{}).Count(&users)
			assert.Zero(t, users)
			assert.Empty(t, mailer.sent)
		})
	}
}

func TestRegister_DriverVehicleYearRange(t *testing.T) {
	svc, _, _ := newTestService(t)

	in := riderInput()
	in.UserType = models.UserTypeDriver
	in.LicenseNumber, in.VehicleMake, in.VehicleModel = "L1", "Kia", "Rio"
	in.VehicleColor, in.LicensePlate = "Red", "XYZ-1"
	in.VehicleYear = 1850

	_, err := svc.Register(context.Background(), in)
	e := appErr(t, err)
	assert.Contains(t, e.Fields["vehicle_year"], "between 1900")
	assert.Len(t, e.Fields, 1)
}

func TestRegister_Duplicates(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Register(context.Background(), riderInput())
	require.NoError(t, err)

	in := riderInput()
	in.Email = "ADA@example.com"
	_, err = svc.Register(context.Background(), in)
	e := appErr(t, err)
	assert.Equal(t, http.StatusConflict, e.Status)
	assert.Contains(t, e.Fields, "email")
	assert.Contains(t, e.Fields, "phone_number")
}

func TestLogin(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	verified := testutil.CreateUser(t, db, models.UserTypeRider)
	unverified := testutil.CreateUser(t, db, models.UserTypeRider, func(u *models.User) { u.IsEmailVerified = false })
	inactive := testutil.CreateUser(t, db, models.UserTypeDriver)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	t.Run("success", func(t *testing.T) {
		res, err := svc.Login(ctx, strings.ToUpper(verified.Email), testutil.Password)
		require.NoError(t, err)
		assert.Equal(t, verified.ID, res.User.ID)
		assert.NotEmpty(t, res.Tokens.AccessToken)
		assert.NotEmpty(t, res.Tokens.RefreshToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, verified.Email, "Wrong!Pass1")
		assert.Same(t, apperrors.ErrInvalidCredentials, apperrors.GetAppError(err))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", testutil.Password)
		assert.Same(t, apperrors.ErrInvalidCredentials, apperrors.GetAppError(err))
	})

	t.Run("unverified email", func(t *testing.T) {
		_, err := svc.Login(ctx, unverified.Email, testutil.Password)
		e := appErr(t, err)
		assert.Equal(t, http.StatusForbidden, e.Status)
		assert.Equal(t, "EMAIL_NOT_VERIFIED", e.Code)
	})

	t.Run("inactive account", func(t *testing.T) {
		_, err := svc.Login(ctx, inactive.Email, testutil.Password)
		e := appErr(t, err)
		assert.Equal(t, http.StatusForbidden, e.Status)
		assert.Equal(t, "ACCOUNT_INACTIVE", e.Code)
	})
}

func TestLogoutRevokesTokens(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, models.UserTypeRider)

	res, err := svc.Login(ctx, user.Email, testutil.Password)
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	svc.Logout(ctx, res.Tokens.RefreshToken, res.Tokens.AccessToken, "garbage", "")

	_, err = svc.Authenticate(ctx, res.Tokens.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, appErr(t, err).Status)

	_, err = svc.Refresh(ctx, res.Tokens.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, appErr(t, err).Status)

	// a second logout of the same tokens is still a success
	svc.Logout(ctx, res.Tokens.RefreshToken)
}

func TestRefreshRotates(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, models.UserTypeRider)

	res, err := svc.Login(ctx, user.Email, testutil.Password)
	require.NoError(t, err)

	pair, err := svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.Tokens.RefreshToken, pair.RefreshToken)

	_, err = svc.Refresh(ctx, res.Tokens.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, appErr(t, err).Status)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)

	// an access token is not accepted as a refresh token
	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.Same(t, apperrors.ErrInvalidToken, apperrors.GetAppError(err))
}

func TestChangePassword(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, models.UserTypeRider)

	err := svc.ChangePassword(ctx, user, "Wrong!Pass1", "N3w!Password", "N3w!Password")
	assert.Contains(t, appErr(t, err).Fields, "old_password")

	err = svc.ChangePassword(ctx, user, testutil.Password, "short", "short")
	assert.Contains(t, appErr(t, err).Fields, "new_password")

	err = svc.ChangePassword(ctx, user, testutil.Password, "N3w!Password", "N3w!Passw0rd")
	assert.Contains(t, appErr(t, err).Fields, "new_password_confirm")

	require.NoError(t, svc.ChangePassword(ctx, user, testutil.Password, "N3w!Password", "N3w!Password"))

	_, err = svc.Login(ctx, user.Email, testutil.Password)
	assert.Error(t, err)
	_, err = svc.Login(ctx, user.Email, "N3w!Password")
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, models.UserTypeRider, func(u *models.User) { u.IsPhoneVerified = true })
	other := testutil.CreateUser(t, db, models.UserTypeRider)

	first := "  Chioma "
	updated, err := svc.UpdateProfile(ctx, user, ProfileUpdate{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Chioma", updated.FirstName)
	assert.True(t, updated.IsPhoneVerified)

	taken := other.PhoneNumber
	_, err = svc.UpdateProfile(ctx, user, ProfileUpdate{PhoneNumber: &taken})
	e := appErr(t, err)
	assert.Equal(t, http.StatusConflict, e.Status)
	assert.Contains(t, e.Fields, "phone_number")

	bad := "12345"
	_, err = svc.UpdateProfile(ctx, user, ProfileUpdate{PhoneNumber: &bad})
	assert.Equal(t, http.StatusBadRequest, appErr(t, err).Status)

	fresh := "+2348099998888"
	updated, err = svc.UpdateProfile(ctx, user, ProfileUpdate{PhoneNumber: &fresh})
	require.NoError(t, err)
	assert.Equal(t, fresh, updated.PhoneNumber)
	assert.False(t, updated.IsPhoneVerified)
}

func TestDeviceToken(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, models.UserTypeRider)

	require.NoError(t, svc.SetDeviceToken(ctx, user, "fcm-token-1"))
	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	require.NotNil(t, got.FCMToken)
	assert.Equal(t, "fcm-token-1", *got.FCMToken)

	require.NoError(t, svc.SetDeviceToken(ctx, user, ""))
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.Nil(t, got.FCMToken)
}

func TestDriverProfileLifecycle(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	driver := testutil.CreateUser(t, db, models.UserTypeDriver)

	_, err := svc.CreateDriverProfile(ctx, driver, DriverProfileInput{})
	assert.Equal(t, http.StatusConflict, appErr(t, err).Status)

	color := "Blue"
	available := false
	profile, err := svc.UpdateDriverProfile(ctx, driver, DriverProfileInput{VehicleColor: &color, IsAvailable: &available})
	require.NoError(t, err)
	assert.Equal(t, "Blue", profile.VehicleColor)
	assert.Equal(t, "Toyota", profile.VehicleMake)
	assert.False(t, profile.IsAvailable)

	empty := " "
	_, err = svc.UpdateDriverProfile(ctx, driver, DriverProfileInput{VehicleMake: &empty})
	assert.Contains(t, appErr(t, err).Fields, "vehicle_make")

	require.NoError(t, svc.DeleteDriverProfile(ctx, driver))
	assert.Same(t, apperrors.ErrDriverProfileNotFound, apperrors.GetAppError(svc.DeleteDriverProfile(ctx, driver)))

	_, err = svc.CreateDriverProfile(ctx, driver, DriverProfileInput{VehicleMake: &color})
	assert.Equal(t, http.StatusBadRequest, appErr(t, err).Status)

	lic, mk, model, plate := "LAG-1", "Kia", "Rio", "KJA-1"
	year := 2020
	profile, err = svc.CreateDriverProfile(ctx, driver, DriverProfileInput{
		LicenseNumber: &lic, VehicleMake: &mk, VehicleModel: &model,
		VehicleYear: &year, VehicleColor: &color, LicensePlate: &plate,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDriverRating, profile.Rating)
	assert.True(t, profile.IsAvailable)
}

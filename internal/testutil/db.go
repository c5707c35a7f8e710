// Package testutil provides an in-memory database and fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/chachabrian/rideon-backend/internal/database"
	"github.com/chachabrian/rideon-backend/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Password satisfies the password policy and is set on every fixture user
const Password = "Str0ng!Pass"

// NewDB returns a migrated private in-memory SQLite database. A single
// connection serialises writers the way row locks do in postgres.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

var phoneSeq atomic.Int64

// CreateUser inserts a verified, active user of the given type
func CreateUser(t testing.TB, db *gorm.DB, userType models.UserType, mutate ...func(*models.User)) *models.User {
	t.Helper()

	seq := phoneSeq.Add(1)
	u := &models.User{
		Email:           fmt.Sprintf("user%d-%s@example.com", seq, uuid.NewString()[:8]),
		PhoneNumber:     fmt.Sprintf("+23480%08d", seq),
		FirstName:       "Test",
		LastName:        string(userType),
		UserType:        userType,
		IsEmailVerified: true,
		IsActive:        true,
	}
	if err := u.SetPassword(Password); err != nil {
		t.Fatalf("hash password: %v", err)
	}
	for _, m := range mutate {
		m(u)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if userType == models.UserTypeDriver {
		profile := &models.DriverProfile{
			UserID:        u.ID,
			LicenseNumber: "LAG-12345",
			VehicleMake:   "Toyota",
			VehicleModel:  "Corolla",
			VehicleYear:   2018,
			VehicleColor:  "Silver",
			LicensePlate:  "KJA-123-XY",
			IsAvailable:   true,
			Rating:        models.DefaultDriverRating,
		}
		if err := db.Create(profile).Error; err != nil {
			t.Fatalf("create driver profile: %v", err)
		}
	}
	return u
}

// CreateRide inserts a ride in the given state. driver may be nil.
func CreateRide(t testing.TB, db *gorm.DB, rider *models.User, driver *models.User, status models.RideStatus) *models.Ride {
	t.Helper()

	ride := &models.Ride{
		RiderID:          rider.ID,
		PickupLocation:   "12 Adeola Odeku Street, Victoria Island",
		PickupLatitude:   6.4281,
		PickupLongitude:  3.4219,
		DropoffLocation:  "Ikeja City Mall, Alausa",
		DropoffLatitude:  6.6018,
		DropoffLongitude: 3.3515,
		Status:           status,
		Fare:             1141.00,
		Distance:         20.82,
		Duration:         42,
		PaymentMethod:    models.PaymentCash,
	}
	if driver != nil {
		ride.DriverID = &driver.ID
	}
	if err := db.Create(ride).Error; err != nil {
		t.Fatalf("create ride: %v", err)
	}
	return ride
}

package database

import (
	"github.com/chachabrian/rideon-backend/internal/models"
	"gorm.io/gorm"
)

// enum checks gorm cannot express through struct tags
var postgresConstraints = []struct {
	table, name, check string
}{
	{"users", "users_user_type_check", "user_type IN ('RIDER', 'DRIVER', 'ADMIN')"},
	{"rides", "rides_status_check", "status IN ('pending', 'accepted', 'in_progress', 'completed', 'cancelled')"},
	{"rides", "rides_payment_method_check", "payment_method IN ('cash', 'card')"},
	{"rides", "rides_pending_has_no_driver_check", "status <> 'pending' OR driver_id IS NULL"},
	{"ride_messages", "ride_messages_type_check", "message_type IN ('general', 'driver_arrival', 'pickup_delay', 'route_change')"},
	{"ratings", "ratings_sub_scores_check", "(punctuality IS NULL OR punctuality BETWEEN 1 AND 5) AND " +
		"(communication IS NULL OR communication BETWEEN 1 AND 5) AND " +
		"(cleanliness IS NULL OR cleanliness BETWEEN 1 AND 5) AND " +
		"(professionalism IS NULL OR professionalism BETWEEN 1 AND 5)"},
}

func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	for _, c := range postgresConstraints {
		if err := db.Exec(`ALTER TABLE ` + c.table + ` DROP CONSTRAINT IF EXISTS ` + c.name).Error; err != nil {
			return err
		}
		if err := db.Exec(`ALTER TABLE ` + c.table + ` ADD CONSTRAINT ` + c.name + ` CHECK (` + c.check + `)`).Error; err != nil {
			return err
		}
	}

	return nil
}

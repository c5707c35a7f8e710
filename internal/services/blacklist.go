package services

import (
	"context"
	"time"

	"github.com/chachabrian/rideon-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBTokenBlacklist keeps revoked token ids in postgres when Redis is not configured
type DBTokenBlacklist struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDBTokenBlacklist(db *gorm.DB) *DBTokenBlacklist {
	return &DBTokenBlacklist{db: db, now: time.Now}
}

func (b *DBTokenBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	entry := models.BlacklistedToken{JTI: jti, ExpiresAt: expiresAt}
	return b.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "jti"}}, DoNothing: true}).
		Create(&entry).Error
}

func (b *DBTokenBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := b.db.WithContext(ctx).Model(&models.BlacklistedToken{}).
		Where("jti = ? AND expires_at > ?", jti, b.now()).
		Count(&count).Error
	return count > 0, err
}

// Purge deletes entries whose tokens have expired
func (b *DBTokenBlacklist) Purge(ctx context.Context) (int64, error) {
	res := b.db.WithContext(ctx).Where("expires_at <= ?", b.now()).Delete(&models.BlacklistedToken{})
	return res.RowsAffected, res.Error
}

package models

import (
	"time"
)

// PhoneVerification is one issued SMS code for a user+phone pair
type PhoneVerification struct {
	Model
	UserID           uint      `json:"-" gorm:"not null;index:idx_phone_verification_lookup"`
	PhoneNumber      string    `json:"phone_number" gorm:"not null;index:idx_phone_verification_lookup"`
	VerificationCode string    `json:"-" gorm:"size:6;not null"`
	ExpiresAt        time.Time `json:"expires_at" gorm:"not null"`
	Attempts         int       `json:"attempts" gorm:"not null"`
	IsVerified       bool      `json:"is_verified" gorm:"not null"`
}

func (PhoneVerification) TableName() string {
	return "phone_verifications"
}

func (p *PhoneVerification) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// IsValid checks the code can still be tried (not expired, attempts left, not verified)
func (p *PhoneVerification) IsValid(now time.Time, maxAttempts int) bool {
	return !p.IsVerified && !p.IsExpired(now) && p.Attempts < maxAttempts
}

// PasswordReset is a single-use reset token
type PasswordReset struct {
	Model
	UserID    uint      `json:"-" gorm:"not null;index"`
	Token     string    `json:"-" gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	IsUsed    bool      `json:"is_used" gorm:"not null"`
}

func (PasswordReset) TableName() string {
	return "password_resets"
}

// IsValid checks if the token is valid (not expired and not used)
func (p *PasswordReset) IsValid(now time.Time) bool {
	return !p.IsUsed && now.Before(p.ExpiresAt)
}

// BlacklistedToken is the database fallback for revoked refresh tokens
type BlacklistedToken struct {
	Model
	JTI       string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

func (BlacklistedToken) TableName() string {
	return "blacklisted_tokens"
}

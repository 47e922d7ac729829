package models

import "time"

type User struct {
	ID                    uint      `gorm:"primaryKey"`
	Email                 string    `gorm:"uniqueIndex;not null"`
	PasswordHash          string    `gorm:"not null"`
	EmailVerified         bool      `gorm:"not null;default:false"`
	VerificationTokenHash string    `gorm:"not null;default:''"`
	MustChangePassword    bool      `gorm:"not null;default:false"`
	CreatedAt             time.Time `gorm:"not null"`
}

// PublicID is the stable identity id every per-user key is derived from.
func (user User) PublicID() string {
	return UserPublicID(user.ID)
}

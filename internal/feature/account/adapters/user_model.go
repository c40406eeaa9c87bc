package adapters

import (
	"time"

	"account_backend/internal/feature/account/domain/entity"
)

// UserModel is the GORM model for the users table.
// Timestamps are owned by the domain, so GORM's auto-tracking is disabled.
type UserModel struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Name         string    `gorm:"size:255;not null"`
	Email        string    `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	Salt         string    `gorm:"size:64;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime:false;not null"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false;not null"`
}

// TableName returns the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}

// ToEntity converts the GORM model to a domain entity.
func (m *UserModel) ToEntity() *entity.User {
	return &entity.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Salt:         m.Salt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// UserModelFromEntity converts a domain entity to a GORM model.
func UserModelFromEntity(u *entity.User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Salt:         u.Salt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

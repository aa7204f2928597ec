package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountLink records that a user connected an advertising account on a platform.
// One link per (user, platform); a reconnect replaces the row instead of updating it.
type AccountLink struct {
	ID        string    `gorm:"primaryKey;type:char(36)" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_account_links_user_platform" json:"user_id"`
	Platform  Platform  `gorm:"type:varchar(20);not null;uniqueIndex:idx_account_links_user_platform" json:"platform"`
	AccountID string    `gorm:"type:varchar(191);not null;default:''" json:"account_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (AccountLink) TableName() string {
	return "account_links"
}

func (l *AccountLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

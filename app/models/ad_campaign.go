package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdContent is the generated copy bundle. Hashtags are used by the social
// platforms, keywords by search.
type AdContent struct {
	Headlines    []string `json:"headlines" validate:"required,min=1,dive,required"`
	Descriptions []string `json:"descriptions" validate:"required,min=1,dive,required"`
	CTA          string   `json:"cta" validate:"required"`
	Hashtags     []string `json:"hashtags,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// AdCampaign is a saved generation result. Rows are never updated.
type AdCampaign struct {
	ID        string    `gorm:"primaryKey;type:char(36)" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Platform  Platform  `gorm:"type:varchar(20);not null" json:"platform"`
	ImagePath string    `gorm:"type:varchar(255);not null" json:"image_path"`
	AdContent AdContent `gorm:"type:json;serializer:json" json:"ad_content"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AdCampaign) TableName() string {
	return "ad_campaigns"
}

func (c *AdCampaign) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

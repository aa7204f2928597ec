package repository

import (
	"github.com/ManuelReschke/AdGenie/app/models"
	"gorm.io/gorm"
)

// campaignRepository implements the CampaignRepository interface
type campaignRepository struct {
	db *gorm.DB
}

// NewCampaignRepository creates a new campaign repository instance
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

// Create stores a new campaign
func (r *campaignRepository) Create(campaign *models.AdCampaign) error {
	return r.db.Create(campaign).Error
}

// GetByID retrieves a campaign by its ID
func (r *campaignRepository) GetByID(id string) (*models.AdCampaign, error) {
	var campaign models.AdCampaign
	if err := r.db.Where("id = ?", id).First(&campaign).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

// ListByUserID returns the campaigns of a user, newest first
func (r *campaignRepository) ListByUserID(userID uint) ([]models.AdCampaign, error) {
	var campaigns []models.AdCampaign
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&campaigns).Error
	return campaigns, err
}

// Delete removes a campaign by id
func (r *campaignRepository) Delete(id string) error {
	res := r.db.Where("id = ?", id).Delete(&models.AdCampaign{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Count returns the total number of campaigns
func (r *campaignRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.AdCampaign{}).Count(&count).Error
	return count, err
}

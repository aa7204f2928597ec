package repository

import (
	"github.com/ManuelReschke/AdGenie/app/models"
	"gorm.io/gorm"
)

// accountLinkRepository implements the AccountLinkRepository interface
type accountLinkRepository struct {
	db *gorm.DB
}

// NewAccountLinkRepository creates a new account link repository instance
func NewAccountLinkRepository(db *gorm.DB) AccountLinkRepository {
	return &accountLinkRepository{db: db}
}

// Upsert stores link as the only link of its user for its platform. An
// existing row for the same (user, platform) pair is replaced, never updated
// in place, so the new row gets a fresh id and creation time.
func (r *accountLinkRepository) Upsert(link *models.AccountLink) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND platform = ?", link.UserID, link.Platform).
			Delete(&models.AccountLink{}).Error; err != nil {
			return err
		}
		link.ID = ""
		return tx.Create(link).Error
	})
}

// GetByID retrieves a link by its ID
func (r *accountLinkRepository) GetByID(id string) (*models.AccountLink, error) {
	var link models.AccountLink
	if err := r.db.Where("id = ?", id).First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// ListByUserID returns all links of a user, newest first
func (r *accountLinkRepository) ListByUserID(userID uint) ([]models.AccountLink, error) {
	var links []models.AccountLink
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&links).Error
	return links, err
}

// ListAllWithUsers returns every link joined with its owner
func (r *accountLinkRepository) ListAllWithUsers() ([]models.AccountLink, error) {
	var links []models.AccountLink
	err := r.db.Preload("User").Order("created_at DESC").Find(&links).Error
	return links, err
}

// Delete removes a link by id
func (r *accountLinkRepository) Delete(id string) error {
	res := r.db.Where("id = ?", id).Delete(&models.AccountLink{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Count returns the total number of links
func (r *accountLinkRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.AccountLink{}).Count(&count).Error
	return count, err
}

// CountByPlatform returns link counts grouped by platform
func (r *accountLinkRepository) CountByPlatform() (map[models.Platform]int64, error) {
	type row struct {
		Platform models.Platform
		Total    int64
	}
	var rows []row
	err := r.db.Model(&models.AccountLink{}).
		Select("platform, COUNT(*) AS total").
		Group("platform").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[models.Platform]int64, len(rows))
	for _, r := range rows {
		out[r.Platform] = r.Total
	}
	return out, nil
}

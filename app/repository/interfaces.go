package repository

import (
	"github.com/ManuelReschke/AdGenie/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	UpdateRole(id uint, role string) (*models.User, error)
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	CountByRole(role string) (int64, error)
}

// AccountLinkRepository defines the interface for platform account links
type AccountLinkRepository interface {
	Upsert(link *models.AccountLink) error
	GetByID(id string) (*models.AccountLink, error)
	ListByUserID(userID uint) ([]models.AccountLink, error)
	ListAllWithUsers() ([]models.AccountLink, error)
	Delete(id string) error
	Count() (int64, error)
	CountByPlatform() (map[models.Platform]int64, error)
}

// CampaignRepository defines the interface for saved ad campaigns
type CampaignRepository interface {
	Create(campaign *models.AdCampaign) error
	GetByID(id string) (*models.AdCampaign, error)
	ListByUserID(userID uint) ([]models.AdCampaign, error)
	Delete(id string) error
	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User        UserRepository
	AccountLink AccountLinkRepository
	Campaign    CampaignRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		AccountLink: NewAccountLinkRepository(db),
		Campaign:    NewCampaignRepository(db),
	}
}

package repository

import (
	"errors"

	"github.com/gocart-next/internal/models"

	"gorm.io/gorm"
)

// SellerRepository 卖家数据访问接口
type SellerRepository interface {
	GetByID(id uint) (*models.Seller, error)
	ListByIDs(ids []uint) ([]models.Seller, error)
	Create(seller *models.Seller) error
}

// GormSellerRepository GORM 实现
type GormSellerRepository struct {
	db *gorm.DB
}

// NewSellerRepository 创建卖家仓库
func NewSellerRepository(db *gorm.DB) *GormSellerRepository {
	return &GormSellerRepository{db: db}
}

// GetByID 根据 ID 获取卖家
func (r *GormSellerRepository) GetByID(id uint) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.First(&seller, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &seller, nil
}

// ListByIDs 批量获取卖家
func (r *GormSellerRepository) ListByIDs(ids []uint) ([]models.Seller, error) {
	if len(ids) == 0 {
		return []models.Seller{}, nil
	}
	var sellers []models.Seller
	if err := r.db.Where("id IN ?", ids).Find(&sellers).Error; err != nil {
		return nil, err
	}
	return sellers, nil
}

// Create 创建卖家
func (r *GormSellerRepository) Create(seller *models.Seller) error {
	return r.db.Create(seller).Error
}

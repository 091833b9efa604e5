package models

import (
	"time"

	"gorm.io/gorm"
)

// Seller 卖家表
type Seller struct {
	ID           uint           `gorm:"primarykey" json:"id"`                // 主键
	Name         string         `gorm:"not null" json:"name"`                // 店铺名称
	ContactEmail string         `gorm:"default:''" json:"contact_email"`     // 联系邮箱
	IsActive     bool           `gorm:"default:true;index" json:"is_active"` // 是否营业
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`             // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                          // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                      // 软删除时间
}

// TableName 指定表名
func (Seller) TableName() string {
	return "sellers"
}

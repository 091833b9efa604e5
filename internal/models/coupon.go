package models

import (
	"time"

	"gorm.io/gorm"
)

// Coupon 优惠券
type Coupon struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                         // 主键
	Code            string         `gorm:"uniqueIndex;not null" json:"code"`                             // 优惠码（大写存储）
	DiscountPercent Money          `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percent"` // 折扣百分比（如 10 表示九折）
	ForNewUser      bool           `gorm:"not null;default:false" json:"for_new_user"`                   // 仅限新用户（无历史订单）
	ForMember       bool           `gorm:"not null;default:false" json:"for_member"`                     // 仅限付费会员
	ExpiresAt       *time.Time     `gorm:"index" json:"expires_at"`                                      // 失效时间
	IsActive        bool           `gorm:"not null;default:true" json:"is_active"`                       // 是否启用
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                      // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

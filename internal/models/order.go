package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表（每次结算为每个卖家生成一条订单）
type Order struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo         string         `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号
	UserID          uint           `gorm:"index;not null" json:"user_id"`                             // 用户ID
	SellerID        uint           `gorm:"index;not null" json:"seller_id"`                           // 卖家ID
	AddressID       uint           `gorm:"not null" json:"address_id"`                                // 收货地址ID（外部引用，不解释）
	Status          string         `gorm:"index;not null" json:"status"`                              // 订单状态（pending/paid）
	PaymentMethod   string         `gorm:"index;not null" json:"payment_method"`                      // 支付方式（stripe/cod）
	Currency        string         `gorm:"not null" json:"currency"`                                  // 币种
	TotalAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 实付金额（折扣与运费调整后）
	CouponApplied   bool           `gorm:"not null;default:false" json:"coupon_applied"`              // 是否使用了优惠券
	CouponID        *uint          `gorm:"index" json:"coupon_id,omitempty"`                          // 优惠券ID
	ShippingApplied bool           `gorm:"not null;default:false" json:"shipping_applied"`            // 本单是否承担了运费
	IsPaid          bool           `gorm:"index;not null;default:false" json:"is_paid"`               // 是否已支付
	PaidAt          *time.Time     `gorm:"index" json:"paid_at"`                                      // 支付时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

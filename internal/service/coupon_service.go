package service

import (
	"strings"
	"time"

	"github.com/gocart-next/internal/models"
	"github.com/gocart-next/internal/repository"
)

// CouponService 优惠券服务
type CouponService struct {
	couponRepo repository.CouponRepository
	orderRepo  repository.OrderRepository
}

// NewCouponService 创建优惠券服务
func NewCouponService(couponRepo repository.CouponRepository, orderRepo repository.OrderRepository) *CouponService {
	return &CouponService{
		couponRepo: couponRepo,
		orderRepo:  orderRepo,
	}
}

// NormalizeCouponCode 优惠码归一化：去空白并转大写。
// 校验与折扣计算必须使用同一规范化结果，中途不允许重新查券。
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate 校验优惠券资格：存在且未过期、新用户限制、会员限制。
// 只读操作，单次结算内对同一券只调用一次。
func (s *CouponService) Validate(code string, userID uint, isMember bool) (*models.Coupon, error) {
	normalized := NormalizeCouponCode(code)
	if normalized == "" {
		return nil, ErrCouponNotFound
	}

	coupon, err := s.couponRepo.GetByCode(normalized)
	if err != nil {
		return nil, err
	}
	if coupon == nil || !coupon.IsActive {
		return nil, ErrCouponNotFound
	}
	if s.isExpired(coupon, time.Now()) {
		return nil, ErrCouponNotFound
	}

	if coupon.ForNewUser {
		count, err := s.orderRepo.CountByUser(userID)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrCouponNewUserOnly
		}
	}

	if coupon.ForMember && !isMember {
		return nil, ErrCouponMemberOnly
	}

	return coupon, nil
}

// isExpired 过期判断统一用 UTC 并截断到毫秒，避免时钟精度抖动。
func (s *CouponService) isExpired(coupon *models.Coupon, now time.Time) bool {
	if coupon.ExpiresAt == nil {
		return false
	}
	expires := coupon.ExpiresAt.UTC().Truncate(time.Millisecond)
	return expires.Before(now.UTC().Truncate(time.Millisecond))
}

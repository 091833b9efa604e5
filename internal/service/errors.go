package service

import "errors"

var (
	// 用户与认证
	ErrUserEmailExists    = errors.New("user email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserDisabled       = errors.New("user disabled")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// 优惠券
	ErrCouponNotFound    = errors.New("coupon not found or expired")
	ErrCouponNewUserOnly = errors.New("coupon is for new users only")
	ErrCouponMemberOnly  = errors.New("coupon is for members only")

	// 购物车与商品
	ErrProductNotFound  = errors.New("product not found")
	ErrCartEmpty        = errors.New("cart is empty")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrQuantityInvalid  = errors.New("quantity invalid")

	// 订单与支付
	ErrAddressRequired       = errors.New("shipping address required")
	ErrPaymentMethodInvalid  = errors.New("payment method invalid")
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderCreateFailed     = errors.New("order create failed")
	ErrCheckoutSessionFailed = errors.New("checkout session create failed")
	ErrWebhookInvalid        = errors.New("webhook payload invalid")
)

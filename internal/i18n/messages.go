package i18n

import "github.com/gocart-next/internal/constants"

var catalog = map[string]map[string]string{
	constants.LocaleZhCN: {
		"error.invalid_params":         "请求参数无效",
		"error.unauthorized":           "请先登录",
		"error.internal":               "服务器内部错误",
		"error.too_many_requests":      "请求过于频繁，请稍后再试",
		"error.rate_limited":           "请求过于频繁，请 %d 秒后重试",
		"error.rate_limit_unavailable": "限流服务不可用",
		"error.token_invalid":          "登录凭证无效",
		"error.token_missing":          "缺少登录凭证",
		"error.email_exists":           "邮箱已被注册",
		"error.invalid_credentials":    "邮箱或密码错误",
		"error.user_disabled":          "账号已被禁用",
		"error.user_not_found":         "用户不存在",
		"error.coupon_not_found":       "优惠券不存在或已过期",
		"error.coupon_new_user_only":   "该优惠券仅限新用户使用",
		"error.coupon_member_only":     "该优惠券仅限会员使用",
		"error.product_not_found":      "商品不存在或已下架",
		"error.cart_empty":             "购物车为空",
		"error.cart_item_not_found":    "购物车中没有该商品",
		"error.quantity_invalid":       "商品数量无效",
		"error.payment_method":         "不支持的支付方式",
		"error.address_required":       "请选择收货地址",
		"error.order_not_found":        "订单不存在",
		"error.order_create_failed":    "订单创建失败",
		"error.payment_create_failed":  "支付会话创建失败",
	},
	constants.LocaleEnUS: {
		"error.invalid_params":         "Invalid request parameters",
		"error.unauthorized":           "Please sign in first",
		"error.internal":               "Internal server error",
		"error.too_many_requests":      "Too many requests, please retry later",
		"error.rate_limited":           "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable": "Rate limiter is unavailable",
		"error.token_invalid":          "Invalid access token",
		"error.token_missing":          "Missing access token",
		"error.email_exists":           "Email is already registered",
		"error.invalid_credentials":    "Incorrect email or password",
		"error.user_disabled":          "Account is disabled",
		"error.user_not_found":         "User not found",
		"error.coupon_not_found":       "Coupon not found or expired",
		"error.coupon_new_user_only":   "This coupon is for new users only",
		"error.coupon_member_only":     "This coupon is for members only",
		"error.product_not_found":      "Product not found or unavailable",
		"error.cart_empty":             "Cart is empty",
		"error.cart_item_not_found":    "Item is not in the cart",
		"error.quantity_invalid":       "Invalid quantity",
		"error.payment_method":         "Unsupported payment method",
		"error.address_required":       "Shipping address is required",
		"error.order_not_found":        "Order not found",
		"error.order_create_failed":    "Failed to create order",
		"error.payment_create_failed":  "Failed to create checkout session",
	},
}

package public

import (
	"github.com/gocart-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CouponValidateRequest 优惠券校验请求
type CouponValidateRequest struct {
	Code string `json:"code" binding:"required"`
}

// ValidateCoupon 校验优惠券对当前用户是否可用
func (h *Handler) ValidateCoupon(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CouponValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	user, err := h.UserAuthService.GetUser(uid)
	if err != nil {
		respondWithMappedError(c, err, authErrorRules, response.CodeInternal, "error.internal")
		return
	}

	coupon, err := h.CouponService.Validate(req.Code, uid, user.IsMember(h.Config.Checkout.MemberRole))
	if err != nil {
		respondWithMappedError(c, err, couponErrorRules, response.CodeInternal, "error.internal")
		return
	}

	response.Success(c, gin.H{
		"coupon": gin.H{
			"code":             coupon.Code,
			"discount_percent": coupon.DiscountPercent,
			"for_new_user":     coupon.ForNewUser,
			"for_member":       coupon.ForMember,
			"expires_at":       coupon.ExpiresAt,
		},
	})
}

package public

import (
	"strconv"

	handlershared "github.com/gocart-next/internal/http/handlers/shared"
	"github.com/gocart-next/internal/http/response"
	"github.com/gocart-next/internal/models"
	"github.com/gocart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest 结算请求
type CheckoutRequest struct {
	AddressID     uint                  `json:"address_id" binding:"required"`
	Items         []CheckoutItemRequest `json:"items"`
	CouponCode    string                `json:"coupon_code"`
	PaymentMethod string                `json:"payment_method" binding:"required"`
}

// CheckoutItemRequest 结算商品行（省略时使用持久化购物车）
type CheckoutItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// CreateOrders 执行结算并创建订单
func (h *Handler) CreateOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	items := make([]service.CheckoutItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.CheckoutItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	result, err := h.CheckoutService.Checkout(c.Request.Context(), service.CheckoutInput{
		UserID:        uid,
		AddressID:     req.AddressID,
		Items:         items,
		CouponCode:    req.CouponCode,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		rules := append(append([]mappedHandlerError{}, checkoutErrorRules...), couponErrorRules...)
		respondWithMappedError(c, err, rules, response.CodeInternal, "error.order_create_failed")
		return
	}

	response.Success(c, result)
}

// ListOrders 用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	orders, total, err := h.OrderService.ListUserOrders(uid, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}

	sellerNames, err := h.OrderService.SellerNames(orders)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}

	totalPage := total / int64(pageSize)
	if total%int64(pageSize) > 0 {
		totalPage++
	}
	response.SuccessWithPage(c, gin.H{"orders": orders, "seller_names": sellerNames}, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// GetOrder 用户订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	order, err := h.OrderService.GetUserOrder(uid, uint(orderID))
	if err != nil {
		respondWithMappedError(c, err, []mappedHandlerError{
			{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
		}, response.CodeInternal, "error.internal")
		return
	}
	sellerNames, err := h.OrderService.SellerNames([]models.Order{*order})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{"order": order, "seller_name": sellerNames[order.SellerID]})
}

package public

import (
	"strconv"

	"github.com/gocart-next/internal/http/response"
	"github.com/gocart-next/internal/models"

	"github.com/gin-gonic/gin"
)

// CartItemRequest 购物车项请求
type CartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// CartItemResponse 购物车项响应
type CartItemResponse struct {
	ProductID   uint         `json:"product_id"`
	Quantity    int          `json:"quantity"`
	ProductName string       `json:"product_name"`
	SellerID    uint         `json:"seller_id"`
	UnitPrice   models.Money `json:"unit_price"`
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	items, err := h.CartService.List(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}

	respItems := make([]CartItemResponse, 0, len(items))
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		respItems = append(respItems, CartItemResponse{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			ProductName: item.Product.Name,
			SellerID:    item.Product.SellerID,
			UnitPrice:   item.Product.PriceAmount,
		})
	}
	response.Success(c, gin.H{"items": respItems})
}

// AddCartItem 加购（同一商品重复加购覆盖数量）
func (h *Handler) AddCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	if err := h.CartService.Add(uid, req.ProductID, req.Quantity); err != nil {
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, gin.H{
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	})
}

// RemoveCartItem 移除购物车商品
func (h *Handler) RemoveCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || productID == 0 {
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	if err := h.CartService.Remove(uid, uint(productID)); err != nil {
		respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, gin.H{})
}

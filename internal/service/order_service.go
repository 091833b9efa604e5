package service

import (
	"github.com/gocart-next/internal/logger"
	"github.com/gocart-next/internal/models"
	"github.com/gocart-next/internal/repository"
)

// OrderService 订单查询与超时清理服务
type OrderService struct {
	orderRepo  repository.OrderRepository
	sellerRepo repository.SellerRepository
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, sellerRepo repository.SellerRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo, sellerRepo: sellerRepo}
}

// ListUserOrders 用户订单列表。
// 可见性规则：货到付款订单始终可见；在线支付订单仅在支付完成后可见，
// 避免把等待回调中的占位订单暴露给用户。
func (s *OrderService) ListUserOrders(userID uint, page, pageSize int) ([]models.Order, int64, error) {
	return s.orderRepo.ListByUser(repository.OrderListFilter{
		UserID:          userID,
		PaidVisibleOnly: true,
		Page:            page,
		PageSize:        pageSize,
	})
}

// SellerNames 批量解析订单涉及的卖家名称，供列表与详情展示。
// 卖家已被删除时跳过对应条目，不视为错误。
func (s *OrderService) SellerNames(orders []models.Order) (map[uint]string, error) {
	if len(orders) == 0 {
		return map[uint]string{}, nil
	}
	seen := make(map[uint]struct{}, len(orders))
	ids := make([]uint, 0, len(orders))
	for _, order := range orders {
		if _, ok := seen[order.SellerID]; ok {
			continue
		}
		seen[order.SellerID] = struct{}{}
		ids = append(ids, order.SellerID)
	}

	sellers, err := s.sellerRepo.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(sellers))
	for _, seller := range sellers {
		names[seller.ID] = seller.Name
	}
	return names, nil
}

// GetUserOrder 获取用户单笔订单详情
func (s *OrderService) GetUserOrder(userID uint, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// CancelExpiredOrders 删除结算会话已过期但始终未收到支付结果的待支付订单。
// 与支付失败回调共用同一条件删除，重复执行安全。
func (s *OrderService) CancelExpiredOrders(orderIDs []uint, userID uint) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	deleted, err := s.orderRepo.DeletePendingByIDs(orderIDs)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		logger.Infow("order_timeout_cancelled",
			"user_id", userID,
			"order_ids", orderIDs,
			"deleted", deleted,
		)
	}
	return deleted, nil
}

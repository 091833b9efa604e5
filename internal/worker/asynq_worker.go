package worker

import (
	"context"
	"encoding/json"

	"github.com/gocart-next/internal/logger"
	"github.com/gocart-next/internal/provider"
	"github.com/gocart-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
	mux.HandleFunc(queue.TaskOrderPaidNotify, c.handleOrderPaidNotify)
}

// handleOrderTimeoutCancel 结算会话过期兜底：删除仍未支付的订单。
// 已通过回调完成支付或已被失败回调删除的订单在这里自然空操作。
func (c *Consumer) handleOrderTimeoutCancel(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_timeout_cancel_unmarshal_failed", "error", err)
		return err
	}
	if len(payload.OrderIDs) == 0 {
		logger.Debugw("worker_order_timeout_cancel_skip_empty_payload")
		return nil
	}
	deleted, err := c.OrderService.CancelExpiredOrders(payload.OrderIDs, payload.UserID)
	if err != nil {
		logger.Warnw("worker_order_timeout_cancel_failed",
			"order_ids", payload.OrderIDs,
			"user_id", payload.UserID,
			"error", err,
		)
		return err
	}
	if deleted == 0 {
		logger.Debugw("worker_order_timeout_cancel_noop", "order_ids", payload.OrderIDs)
	}
	return nil
}

// handleOrderPaidNotify 支付完成后的通知占位任务，目前只落一条结构化日志。
func (c *Consumer) handleOrderPaidNotify(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.OrderPaidNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_paid_notify_unmarshal_failed", "error", err)
		return err
	}
	logger.Infow("worker_order_paid_notify",
		"order_ids", payload.OrderIDs,
		"user_id", payload.UserID,
	)
	return nil
}

package queue

import (
	"encoding/json"

	"github.com/gocart-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderTimeoutCancel 待支付订单超时清理任务
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
	// TaskOrderPaidNotify 支付成功通知任务
	TaskOrderPaidNotify = constants.TaskOrderPaidNotify
)

// OrderTimeoutCancelPayload 超时清理任务载荷：同一次结算产生的全部订单一并清理
type OrderTimeoutCancelPayload struct {
	OrderIDs []uint `json:"order_ids"`
	UserID   uint   `json:"user_id"`
}

// OrderPaidNotifyPayload 支付成功通知任务载荷
type OrderPaidNotifyPayload struct {
	OrderIDs []uint `json:"order_ids"`
	UserID   uint   `json:"user_id"`
}

// NewOrderTimeoutCancelTask 创建超时清理任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}

// NewOrderPaidNotifyTask 创建支付成功通知任务
func NewOrderPaidNotifyTask(payload OrderPaidNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderPaidNotify, body), nil
}

package service

import (
	"time"

	"github.com/gocart-next/internal/logger"
	"github.com/gocart-next/internal/models"
	"github.com/gocart-next/internal/payment/stripe"
	"github.com/gocart-next/internal/queue"
	"github.com/gocart-next/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentService 支付回调对账服务。
// 回调处理必须幂等：成功/失败事件重复投递时第二次及以后全部空操作确认。
type PaymentService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	queueClient *queue.Client
	stripeCfg   *stripe.Config
	appTag      string
}

// NewPaymentService 创建支付服务
func NewPaymentService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	queueClient *queue.Client,
	stripeCfg *stripe.Config,
	appTag string,
) *PaymentService {
	return &PaymentService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		queueClient: queueClient,
		stripeCfg:   stripeCfg,
		appTag:      appTag,
	}
}

// WebhookOutcome 单次回调的处理结论，仅用于日志与响应提示。
type WebhookOutcome struct {
	EventID      string `json:"event_id"`
	EventType    string `json:"event_type"`
	Handled      bool   `json:"handled"`
	Ignored      bool   `json:"ignored"`
	OrdersMarked int64  `json:"orders_marked"`
}

// HandleStripeWebhook 校验并处理一次 Stripe 回调。
// 返回 ErrWebhookInvalid 表示签名/载荷不可信，调用方应答 400；
// 其余情况一律视为已受理（包括归属不符、重复投递、订单已不存在）。
func (s *PaymentService) HandleStripeWebhook(headers map[string]string, body []byte, now time.Time) (*WebhookOutcome, error) {
	log := paymentLogger("provider", "stripe")

	event, err := stripe.VerifyAndParseWebhook(s.stripeCfg, headers, body, now)
	if err != nil {
		log.Warnw("webhook_verify_failed", "error", err)
		return nil, ErrWebhookInvalid
	}

	outcome := &WebhookOutcome{
		EventID:   event.EventID,
		EventType: event.EventType,
	}
	log = paymentLogger(
		"provider", "stripe",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"session_id", event.SessionID,
	)

	// 归属校验：appTag 不符说明事件发给了同一账号下的其他应用，确认但不处理。
	if event.Metadata.AppTag != s.appTag {
		log.Infow("webhook_ignored_foreign_app", "app_tag", event.Metadata.AppTag)
		outcome.Ignored = true
		return outcome, nil
	}
	if len(event.Metadata.OrderIDs) == 0 {
		log.Warnw("webhook_ignored_no_order_ids")
		outcome.Ignored = true
		return outcome, nil
	}

	switch event.Status {
	case stripe.StatusSuccess:
		return s.reconcilePaid(log, event, outcome)
	case stripe.StatusFailed, stripe.StatusExpired:
		return s.reconcileFailed(log, event, outcome)
	default:
		log.Infow("webhook_ignored_unhandled_status", "status", event.Status)
		outcome.Ignored = true
		return outcome, nil
	}
}

// reconcilePaid 支付成功：条件置已支付并清空购物车。
// 条件更新只命中未支付订单，重复事件第二次 RowsAffected=0，自然幂等。
func (s *PaymentService) reconcilePaid(log *zap.SugaredLogger, event *stripe.WebhookResult, outcome *WebhookOutcome) (*WebhookOutcome, error) {
	paidAt := time.Now()
	if event.PaidAt != nil {
		paidAt = *event.PaidAt
	}

	var marked int64
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		marked, txErr = s.orderRepo.WithTx(tx).MarkPaidByIDs(event.Metadata.OrderIDs, paidAt)
		if txErr != nil {
			return txErr
		}
		if marked > 0 {
			return s.cartRepo.WithTx(tx).ClearByUser(event.Metadata.UserID)
		}
		return nil
	})
	if err != nil {
		log.Errorw("webhook_mark_paid_failed", "order_ids", event.Metadata.OrderIDs, "error", err)
		return nil, err
	}

	outcome.OrdersMarked = marked
	outcome.Handled = marked > 0
	if marked == 0 {
		log.Infow("webhook_paid_duplicate", "order_ids", event.Metadata.OrderIDs)
		return outcome, nil
	}

	log.Infow("webhook_orders_paid", "order_ids", event.Metadata.OrderIDs, "marked", marked)
	if err := s.queueClient.EnqueueOrderPaidNotify(queue.OrderPaidNotifyPayload{
		OrderIDs: event.Metadata.OrderIDs,
		UserID:   event.Metadata.UserID,
	}); err != nil {
		log.Warnw("webhook_paid_notify_enqueue_failed", "error", err)
	}
	return outcome, nil
}

// reconcileFailed 支付失败或会话过期：删除仍处于待支付的订单。
// 已支付订单不受影响；订单已被删除时同样空操作确认。
func (s *PaymentService) reconcileFailed(log *zap.SugaredLogger, event *stripe.WebhookResult, outcome *WebhookOutcome) (*WebhookOutcome, error) {
	deleted, err := s.orderRepo.DeletePendingByIDs(event.Metadata.OrderIDs)
	if err != nil {
		log.Errorw("webhook_delete_pending_failed", "order_ids", event.Metadata.OrderIDs, "error", err)
		return nil, err
	}

	outcome.OrdersMarked = deleted
	outcome.Handled = deleted > 0
	if deleted == 0 {
		log.Infow("webhook_failed_noop", "order_ids", event.Metadata.OrderIDs)
	} else {
		log.Infow("webhook_pending_orders_deleted", "order_ids", event.Metadata.OrderIDs, "deleted", deleted)
	}
	return outcome, nil
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	return logger.SW(kv...)
}

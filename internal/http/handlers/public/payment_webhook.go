package public

import (
	"errors"
	"io"
	"time"

	"github.com/gocart-next/internal/http/response"
	"github.com/gocart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// StripeWebhook Stripe webhook 回调。
// 签名基于原始报文校验，body 必须原样读取，不能先过 JSON 绑定。
func (h *Handler) StripeWebhook(c *gin.Context) {
	log := requestLog(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnw("stripe_webhook_body_read_failed", "error", err)
		respondError(c, response.CodeBadRequest, "error.invalid_params", err)
		return
	}

	headers := make(map[string]string)
	for key, values := range c.Request.Header {
		if len(values) == 0 {
			continue
		}
		headers[key] = values[0]
	}

	log.Infow("stripe_webhook_received",
		"client_ip", c.ClientIP(),
		"body_size", len(body),
	)

	outcome, err := h.PaymentService.HandleStripeWebhook(headers, body, time.Now())
	if err != nil {
		log.Warnw("stripe_webhook_handle_failed", "error", err)
		if errors.Is(err, service.ErrWebhookInvalid) {
			respondError(c, response.CodeBadRequest, "error.invalid_params", nil)
			return
		}
		// 处理过程中的内部错误返回 500，让支付处理器按重试策略重投。
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}

	log.Infow("stripe_webhook_processed",
		"event_id", outcome.EventID,
		"event_type", outcome.EventType,
		"handled", outcome.Handled,
		"ignored", outcome.Ignored,
		"orders_marked", outcome.OrdersMarked,
	)
	response.Success(c, gin.H{
		"received": true,
		"handled":  outcome.Handled,
		"ignored":  outcome.Ignored,
	})
}

package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/gocart-next/internal/config"
	"github.com/gocart-next/internal/constants"
	"github.com/gocart-next/internal/models"
	"github.com/gocart-next/internal/payment/stripe"
	"github.com/gocart-next/internal/queue"
	"github.com/gocart-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupPaymentServiceTest(t *testing.T) (*PaymentService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	orderRepo := repository.NewOrderRepository(db)
	cartRepo := repository.NewCartRepository(db)
	queueClient, err := queue.NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("create queue client failed: %v", err)
	}
	cfg := &stripe.Config{WebhookSecret: "whsec_test", WebhookToleranceSeconds: 300}
	svc := NewPaymentService(orderRepo, cartRepo, queueClient, cfg, "GoCart")
	return svc, db
}

func seedPendingOrder(t *testing.T, db *gorm.DB, userID uint, orderNo string, amount string) *models.Order {
	t.Helper()
	total, err := models.NewMoneyFromString(amount)
	if err != nil {
		t.Fatalf("parse amount failed: %v", err)
	}
	order := &models.Order{
		OrderNo:       orderNo,
		UserID:        userID,
		SellerID:      1,
		AddressID:     1,
		Status:        constants.OrderStatusPending,
		PaymentMethod: constants.PaymentMethodStripe,
		Currency:      "usd",
		TotalAmount:   total,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func signedWebhook(t *testing.T, secret, eventType string, orderIDs []uint, userID uint, appTag string, ts time.Time) (map[string]string, []byte) {
	t.Helper()
	ids := ""
	for i, id := range orderIDs {
		if i > 0 {
			ids += ","
		}
		ids += strconv.FormatUint(uint64(id), 10)
	}
	body := []byte(fmt.Sprintf(`{
		"id": "evt_test_1",
		"type": %q,
		"data": {
			"object": {
				"id": "cs_test_1",
				"currency": "usd",
				"amount_total": 29000,
				"created": %d,
				"metadata": {"orderIds": %q, "userId": %q, "appTag": %q}
			}
		}
	}`, eventType, ts.Unix(), ids, strconv.FormatUint(uint64(userID), 10), appTag))

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts.Unix(), 10) + "." + string(body)))
	sig := hex.EncodeToString(mac.Sum(nil))
	headers := map[string]string{
		"Stripe-Signature": "t=" + strconv.FormatInt(ts.Unix(), 10) + ",v1=" + sig,
	}
	return headers, body
}

func TestHandleStripeWebhookPaidIsIdempotent(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	user := &models.User{Email: "webhook_paid@example.com", PasswordHash: "hash"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	o1 := seedPendingOrder(t, db, user.ID, "GCWEBHOOK001", "140.00")
	o2 := seedPendingOrder(t, db, user.ID, "GCWEBHOOK002", "150.00")
	if err := db.Create(&models.CartItem{UserID: user.ID, ProductID: 1, Quantity: 1}).Error; err != nil {
		t.Fatalf("seed cart failed: %v", err)
	}

	now := time.Now()
	headers, body := signedWebhook(t, "whsec_test", constants.StripeEventCheckoutCompleted, []uint{o1.ID, o2.ID}, user.ID, "GoCart", now)

	outcome, err := svc.HandleStripeWebhook(headers, body, now)
	if err != nil {
		t.Fatalf("first webhook failed: %v", err)
	}
	if !outcome.Handled || outcome.OrdersMarked != 2 {
		t.Fatalf("expected 2 orders marked, got %+v", outcome)
	}

	var paid models.Order
	if err := db.First(&paid, o1.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if !paid.IsPaid || paid.Status != constants.OrderStatusPaid || paid.PaidAt == nil {
		t.Fatalf("order not marked paid: %+v", paid)
	}
	var cartCount int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&cartCount).Error; err != nil {
		t.Fatalf("count cart failed: %v", err)
	}
	if cartCount != 0 {
		t.Fatalf("expected cart cleared, got %d items", cartCount)
	}

	// 重复投递同一事件：空操作确认
	outcome, err = svc.HandleStripeWebhook(headers, body, now)
	if err != nil {
		t.Fatalf("duplicate webhook failed: %v", err)
	}
	if outcome.Handled || outcome.OrdersMarked != 0 {
		t.Fatalf("expected duplicate to be a no-op, got %+v", outcome)
	}
}

func TestHandleStripeWebhookFailedDeletesPendingOnly(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	user := &models.User{Email: "webhook_failed@example.com", PasswordHash: "hash"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	pending := seedPendingOrder(t, db, user.ID, "GCWEBHOOK003", "140.00")
	paidOrder := seedPendingOrder(t, db, user.ID, "GCWEBHOOK004", "150.00")
	now := time.Now()
	if err := db.Model(paidOrder).Updates(map[string]interface{}{
		"is_paid": true,
		"status":  constants.OrderStatusPaid,
		"paid_at": now,
	}).Error; err != nil {
		t.Fatalf("mark order paid failed: %v", err)
	}

	headers, body := signedWebhook(t, "whsec_test", constants.StripeEventAsyncPaymentFailed, []uint{pending.ID, paidOrder.ID}, user.ID, "GoCart", now)

	outcome, err := svc.HandleStripeWebhook(headers, body, now)
	if err != nil {
		t.Fatalf("webhook failed: %v", err)
	}
	if outcome.OrdersMarked != 1 {
		t.Fatalf("expected only pending order deleted, got %+v", outcome)
	}

	var count int64
	if err := db.Model(&models.Order{}).Where("id = ?", pending.ID).Count(&count).Error; err != nil {
		t.Fatalf("count pending failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected pending order deleted")
	}
	if err := db.Model(&models.Order{}).Where("id = ?", paidOrder.ID).Count(&count).Error; err != nil {
		t.Fatalf("count paid failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("paid order must not be touched by failure webhook")
	}

	// 同一失败事件重放：空操作确认
	outcome, err = svc.HandleStripeWebhook(headers, body, now)
	if err != nil {
		t.Fatalf("duplicate webhook failed: %v", err)
	}
	if outcome.OrdersMarked != 0 {
		t.Fatalf("expected duplicate failure webhook to be a no-op, got %+v", outcome)
	}
}

func TestHandleStripeWebhookPaymentIntentFailedDeletesPending(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	user := &models.User{Email: "webhook_intent_failed@example.com", PasswordHash: "hash"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	pending := seedPendingOrder(t, db, user.ID, "GCWEBHOOK007", "140.00")

	now := time.Now()
	headers, body := signedWebhook(t, "whsec_test", constants.StripeEventPaymentIntentFailed, []uint{pending.ID}, user.ID, "GoCart", now)

	outcome, err := svc.HandleStripeWebhook(headers, body, now)
	if err != nil {
		t.Fatalf("webhook failed: %v", err)
	}
	if outcome.OrdersMarked != 1 {
		t.Fatalf("expected pending order deleted, got %+v", outcome)
	}

	var count int64
	if err := db.Model(&models.Order{}).Where("id = ?", pending.ID).Count(&count).Error; err != nil {
		t.Fatalf("count pending failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected pending order deleted after payment failure")
	}
}

func TestHandleStripeWebhookTamperedSignature(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	user := &models.User{Email: "webhook_tampered@example.com", PasswordHash: "hash"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	order := seedPendingOrder(t, db, user.ID, "GCWEBHOOK005", "140.00")

	now := time.Now()
	headers, body := signedWebhook(t, "whsec_wrong", constants.StripeEventCheckoutCompleted, []uint{order.ID}, user.ID, "GoCart", now)

	_, err := svc.HandleStripeWebhook(headers, body, now)
	if err != ErrWebhookInvalid {
		t.Fatalf("expected ErrWebhookInvalid, got %v", err)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.IsPaid {
		t.Fatalf("tampered webhook must not mutate orders")
	}
}

func TestHandleStripeWebhookForeignAppTagIgnored(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	user := &models.User{Email: "webhook_foreign@example.com", PasswordHash: "hash"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	order := seedPendingOrder(t, db, user.ID, "GCWEBHOOK006", "140.00")

	now := time.Now()
	headers, body := signedWebhook(t, "whsec_test", constants.StripeEventCheckoutCompleted, []uint{order.ID}, user.ID, "OtherApp", now)

	outcome, err := svc.HandleStripeWebhook(headers, body, now)
	if err != nil {
		t.Fatalf("foreign app webhook should be acknowledged, got %v", err)
	}
	if !outcome.Ignored {
		t.Fatalf("expected foreign app webhook to be ignored, got %+v", outcome)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.IsPaid {
		t.Fatalf("foreign app webhook must not mutate orders")
	}
}

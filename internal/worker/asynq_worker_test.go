package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gocart-next/internal/constants"
	"github.com/gocart-next/internal/models"
	"github.com/gocart-next/internal/provider"
	"github.com/gocart-next/internal/queue"
	"github.com/gocart-next/internal/repository"
	"github.com/gocart-next/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupConsumerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Seller{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	c := &provider.Container{}
	c.OrderService = service.NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewSellerRepository(db),
	)
	return NewConsumer(c), db
}

func TestHandleOrderTimeoutCancelDeletesOnlyPending(t *testing.T) {
	consumer, db := setupConsumerTest(t)

	total, err := models.NewMoneyFromString("100.00")
	if err != nil {
		t.Fatalf("parse amount failed: %v", err)
	}
	pending := &models.Order{
		OrderNo:       "GCWORKER001",
		UserID:        1,
		SellerID:      1,
		AddressID:     1,
		Status:        constants.OrderStatusPending,
		PaymentMethod: constants.PaymentMethodStripe,
		Currency:      "usd",
		TotalAmount:   total,
	}
	paidAt := time.Now()
	paid := &models.Order{
		OrderNo:       "GCWORKER002",
		UserID:        1,
		SellerID:      2,
		AddressID:     1,
		Status:        constants.OrderStatusPaid,
		PaymentMethod: constants.PaymentMethodStripe,
		Currency:      "usd",
		TotalAmount:   total,
		IsPaid:        true,
		PaidAt:        &paidAt,
	}
	if err := db.Create(pending).Error; err != nil {
		t.Fatalf("create pending order failed: %v", err)
	}
	if err := db.Create(paid).Error; err != nil {
		t.Fatalf("create paid order failed: %v", err)
	}

	task, err := queue.NewOrderTimeoutCancelTask(queue.OrderTimeoutCancelPayload{
		OrderIDs: []uint{pending.ID, paid.ID},
		UserID:   1,
	})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}

	if err := consumer.handleOrderTimeoutCancel(context.Background(), task); err != nil {
		t.Fatalf("handle timeout cancel failed: %v", err)
	}

	var count int64
	if err := db.Model(&models.Order{}).Where("id = ?", pending.ID).Count(&count).Error; err != nil {
		t.Fatalf("count pending failed: %v", err)
	}
	if count != 0 {
		t.Fatal("pending order should be deleted by the sweep")
	}
	if err := db.Model(&models.Order{}).Where("id = ?", paid.ID).Count(&count).Error; err != nil {
		t.Fatalf("count paid failed: %v", err)
	}
	if count != 1 {
		t.Fatal("paid order must survive the sweep")
	}

	// 重复投递同一任务应空操作成功
	if err := consumer.handleOrderTimeoutCancel(context.Background(), task); err != nil {
		t.Fatalf("replay should be a no-op, got %v", err)
	}
}

func TestHandleOrderTimeoutCancelBadPayload(t *testing.T) {
	consumer, _ := setupConsumerTest(t)
	task := asynq.NewTask(queue.TaskOrderTimeoutCancel, []byte("{not-json"))
	if err := consumer.handleOrderTimeoutCancel(context.Background(), task); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

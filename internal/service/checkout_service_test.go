package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
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

func setupCheckoutServiceTest(t *testing.T) (*CheckoutService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:checkout_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Seller{},
		&models.Product{},
		&models.CartItem{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	couponSvc := NewCouponService(couponRepo, orderRepo)
	queueClient, err := queue.NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("create queue client failed: %v", err)
	}

	shippingFee, err := models.NewMoneyFromString("40")
	if err != nil {
		t.Fatalf("parse shipping fee failed: %v", err)
	}
	svc := NewCheckoutService(userRepo, productRepo, cartRepo, orderRepo, couponSvc, queueClient, &stripe.Config{}, CheckoutOptions{
		Currency:             "usd",
		ShippingFee:          shippingFee,
		MemberRole:           constants.RolePlus,
		AppTag:               "GoCart",
		PendingExpireMinutes: 35,
	})
	return svc, db
}

func seedCheckoutUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("buyer_%d@example.com", time.Now().UnixNano()),
		PasswordHash: "hash",
		Role:         role,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func seedCheckoutProduct(t *testing.T, db *gorm.DB, sellerID uint, name, price string) *models.Product {
	t.Helper()
	amount, err := models.NewMoneyFromString(price)
	if err != nil {
		t.Fatalf("parse price failed: %v", err)
	}
	product := &models.Product{
		SellerID:    sellerID,
		Name:        name,
		PriceAmount: amount,
		IsActive:    true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestCheckoutSingleSellerWithShipping(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	user := seedCheckoutUser(t, db, constants.RoleUser)
	p1 := seedCheckoutProduct(t, db, 1, "键盘", "100.00")
	p2 := seedCheckoutProduct(t, db, 1, "鼠标", "50.00")

	result, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:    user.ID,
		AddressID: 1,
		Items: []CheckoutItemInput{
			{ProductID: p1.ID, Quantity: 2},
			{ProductID: p2.ID, Quantity: 1},
		},
		PaymentMethod: constants.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if len(result.OrderIDs) != 1 {
		t.Fatalf("expected 1 order, got %d", len(result.OrderIDs))
	}
	// 2*100 + 1*50 + 40 运费
	if result.GrandTotal.String() != "290.00" {
		t.Fatalf("expected grand total 290.00, got %s", result.GrandTotal.String())
	}
}

func TestCheckoutCouponAppliedBeforeShipping(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	user := seedCheckoutUser(t, db, constants.RoleUser)
	p1 := seedCheckoutProduct(t, db, 1, "键盘", "100.00")
	p2 := seedCheckoutProduct(t, db, 1, "鼠标", "50.00")

	percent, _ := models.NewMoneyFromString("10")
	coupon := &models.Coupon{Code: "SAVE10", DiscountPercent: percent, IsActive: true}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	result, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:    user.ID,
		AddressID: 1,
		Items: []CheckoutItemInput{
			{ProductID: p1.ID, Quantity: 2},
			{ProductID: p2.ID, Quantity: 1},
		},
		CouponCode:    "save10",
		PaymentMethod: constants.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	// (250 - 10%) + 40 = 265，折扣先于运费
	if result.GrandTotal.String() != "265.00" {
		t.Fatalf("expected grand total 265.00, got %s", result.GrandTotal.String())
	}

	var order models.Order
	if err := db.First(&order, result.OrderIDs[0]).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if !order.CouponApplied || order.CouponID == nil {
		t.Fatalf("expected coupon recorded on order: %+v", order)
	}
}

func TestCheckoutMultiSellerShippingChargedOnce(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	user := seedCheckoutUser(t, db, constants.RoleUser)
	pa := seedCheckoutProduct(t, db, 1, "显示器", "100.00")
	pb := seedCheckoutProduct(t, db, 2, "支架", "60.00")

	result, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:    user.ID,
		AddressID: 1,
		Items: []CheckoutItemInput{
			{ProductID: pa.ID, Quantity: 1},
			{ProductID: pb.ID, Quantity: 1},
		},
		PaymentMethod: constants.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if len(result.OrderIDs) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(result.OrderIDs))
	}
	// 运费由卖家 ID 最小的一单承担：140 + 60 = 200
	if result.GrandTotal.String() != "200.00" {
		t.Fatalf("expected grand total 200.00, got %s", result.GrandTotal.String())
	}

	var orders []models.Order
	if err := db.Where("user_id = ?", user.ID).Order("seller_id asc").Find(&orders).Error; err != nil {
		t.Fatalf("load orders failed: %v", err)
	}
	if orders[0].TotalAmount.String() != "140.00" {
		t.Fatalf("expected seller 1 total 140.00, got %s", orders[0].TotalAmount.String())
	}
	if orders[1].TotalAmount.String() != "60.00" {
		t.Fatalf("expected seller 2 total 60.00, got %s", orders[1].TotalAmount.String())
	}
	shippingCount := 0
	for _, order := range orders {
		if order.ShippingApplied {
			shippingCount++
		}
	}
	if shippingCount != 1 {
		t.Fatalf("expected exactly one order to carry shipping, got %d", shippingCount)
	}
	if !orders[0].ShippingApplied {
		t.Fatalf("expected the lowest seller id order to carry shipping")
	}
}

func TestCheckoutMemberPaysNoShipping(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	member := seedCheckoutUser(t, db, constants.RolePlus)
	pa := seedCheckoutProduct(t, db, 1, "显示器", "100.00")
	pb := seedCheckoutProduct(t, db, 2, "支架", "60.00")

	result, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:    member.ID,
		AddressID: 1,
		Items: []CheckoutItemInput{
			{ProductID: pa.ID, Quantity: 1},
			{ProductID: pb.ID, Quantity: 1},
		},
		PaymentMethod: constants.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if result.GrandTotal.String() != "160.00" {
		t.Fatalf("expected grand total 160.00 without shipping, got %s", result.GrandTotal.String())
	}

	var orders []models.Order
	if err := db.Where("user_id = ?", member.ID).Find(&orders).Error; err != nil {
		t.Fatalf("load orders failed: %v", err)
	}
	for _, order := range orders {
		if order.ShippingApplied {
			t.Fatalf("member order should not carry shipping: %+v", order)
		}
	}
}

func TestCheckoutCODClearsCartImmediately(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	user := seedCheckoutUser(t, db, constants.RoleUser)
	product := seedCheckoutProduct(t, db, 1, "键盘", "100.00")

	if err := db.Create(&models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 2}).Error; err != nil {
		t.Fatalf("seed cart failed: %v", err)
	}

	result, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:        user.ID,
		AddressID:     1,
		PaymentMethod: constants.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if !result.Finalized {
		t.Fatalf("cod checkout should be finalized immediately")
	}
	if result.GrandTotal.String() != "240.00" {
		t.Fatalf("expected 240.00, got %s", result.GrandTotal.String())
	}

	var count int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count cart failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected cart cleared after cod checkout, got %d items", count)
	}
}

func TestCheckoutStripeCreatesSessionAndKeepsCart(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	user := seedCheckoutUser(t, db, constants.RoleUser)
	product := seedCheckoutProduct(t, db, 1, "键盘", "100.00")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form failed: %v", err)
		}
		if got := r.PostForm.Get("metadata[appTag]"); got != "GoCart" {
			t.Errorf("unexpected appTag metadata: %s", got)
		}
		if got := r.PostForm.Get("metadata[orderIds]"); got == "" {
			t.Errorf("missing orderIds metadata")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_1","url":"https://checkout.stripe.test/pay/cs_test_1","status":"open"}`)
	}))
	defer server.Close()
	svc.stripeCfg = &stripe.Config{
		SecretKey:     "sk_test_1",
		WebhookSecret: "whsec_test",
		SuccessURL:    "https://shop.example.com/success",
		CancelURL:     "https://shop.example.com/cancel",
		APIBaseURL:    server.URL,
	}

	if err := db.Create(&models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 1}).Error; err != nil {
		t.Fatalf("seed cart failed: %v", err)
	}

	result, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:        user.ID,
		AddressID:     1,
		PaymentMethod: constants.PaymentMethodStripe,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if result.Finalized {
		t.Fatalf("stripe checkout should not be finalized before webhook")
	}
	if result.SessionID != "cs_test_1" || result.CheckoutURL == "" {
		t.Fatalf("unexpected session result: %+v", result)
	}

	// 在线支付场景购物车保留到支付成功回调再清空
	var count int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count cart failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected cart intact after stripe dispatch, got %d items", count)
	}
}

// stubCheckoutScheduler 记录入队的超时清理任务，便于断言补偿路径。
type stubCheckoutScheduler struct {
	payloads []queue.OrderTimeoutCancelPayload
	delays   []time.Duration
}

func (s *stubCheckoutScheduler) EnqueueOrderTimeoutCancel(payload queue.OrderTimeoutCancelPayload, delay time.Duration) error {
	s.payloads = append(s.payloads, payload)
	s.delays = append(s.delays, delay)
	return nil
}

func TestCheckoutStripeSchedulesSweepBeforeSessionCreate(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	scheduler := &stubCheckoutScheduler{}
	svc.queueClient = scheduler
	user := seedCheckoutUser(t, db, constants.RoleUser)
	product := seedCheckoutProduct(t, db, 1, "键盘", "100.00")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"api unavailable"}}`)
	}))
	defer server.Close()
	svc.stripeCfg = &stripe.Config{
		SecretKey:     "sk_test_1",
		WebhookSecret: "whsec_test",
		SuccessURL:    "https://shop.example.com/success",
		CancelURL:     "https://shop.example.com/cancel",
		APIBaseURL:    server.URL,
	}

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:        user.ID,
		AddressID:     1,
		Items:         []CheckoutItemInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod: constants.PaymentMethodStripe,
	})
	if !errors.Is(err, ErrCheckoutSessionFailed) {
		t.Fatalf("expected ErrCheckoutSessionFailed, got %v", err)
	}

	// 会话创建失败后已落库的 pending 订单收不到任何回调，
	// 必须已经挂上了超时清理任务兜底回收。
	var orders []models.Order
	if err := db.Where("user_id = ?", user.ID).Find(&orders).Error; err != nil {
		t.Fatalf("load orders failed: %v", err)
	}
	if len(orders) != 1 || orders[0].IsPaid {
		t.Fatalf("expected 1 pending order persisted, got %+v", orders)
	}
	if len(scheduler.payloads) != 1 {
		t.Fatalf("expected 1 timeout task enqueued, got %d", len(scheduler.payloads))
	}
	payload := scheduler.payloads[0]
	if payload.UserID != user.ID || len(payload.OrderIDs) != 1 || payload.OrderIDs[0] != orders[0].ID {
		t.Fatalf("timeout task does not cover persisted order: %+v", payload)
	}
	if scheduler.delays[0] != 35*time.Minute {
		t.Fatalf("expected 35m delay, got %v", scheduler.delays[0])
	}
}

func TestCheckoutPartialMaterializeFailureSchedulesSweep(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	scheduler := &stubCheckoutScheduler{}
	svc.queueClient = scheduler
	user := seedCheckoutUser(t, db, constants.RoleUser)
	pa := seedCheckoutProduct(t, db, 1, "显示器", "100.00")
	pb := seedCheckoutProduct(t, db, 2, "支架", "60.00")

	// 第二个卖家的订单写入失败，模拟跨卖家落库中断。
	err := db.Callback().Create().Before("gorm:create").Register("reject_second_seller", func(tx *gorm.DB) {
		if order, ok := tx.Statement.Dest.(*models.Order); ok && order.SellerID == pb.SellerID {
			tx.AddError(errors.New("write rejected"))
		}
	})
	if err != nil {
		t.Fatalf("register callback failed: %v", err)
	}

	_, err = svc.Checkout(context.Background(), CheckoutInput{
		UserID:    user.ID,
		AddressID: 1,
		Items: []CheckoutItemInput{
			{ProductID: pa.ID, Quantity: 1},
			{ProductID: pb.ID, Quantity: 1},
		},
		PaymentMethod: constants.PaymentMethodStripe,
	})
	if !errors.Is(err, ErrOrderCreateFailed) {
		t.Fatalf("expected ErrOrderCreateFailed, got %v", err)
	}

	// 第一个卖家的订单已经提交，清理任务必须覆盖它。
	var orders []models.Order
	if err := db.Where("user_id = ?", user.ID).Find(&orders).Error; err != nil {
		t.Fatalf("load orders failed: %v", err)
	}
	if len(orders) != 1 || orders[0].SellerID != pa.SellerID {
		t.Fatalf("expected only seller %d order committed, got %+v", pa.SellerID, orders)
	}
	if len(scheduler.payloads) != 1 {
		t.Fatalf("expected 1 timeout task enqueued, got %d", len(scheduler.payloads))
	}
	payload := scheduler.payloads[0]
	if len(payload.OrderIDs) != 1 || payload.OrderIDs[0] != orders[0].ID {
		t.Fatalf("timeout task does not cover committed order: %+v", payload)
	}
}

func TestCheckoutRequiresAddress(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	user := seedCheckoutUser(t, db, constants.RoleUser)
	product := seedCheckoutProduct(t, db, 1, "键盘", "100.00")

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:        user.ID,
		Items:         []CheckoutItemInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod: constants.PaymentMethodCOD,
	})
	if !errors.Is(err, ErrAddressRequired) {
		t.Fatalf("expected ErrAddressRequired, got %v", err)
	}
}

func TestCheckoutRejectsEmptyCartAndBadMethod(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	user := seedCheckoutUser(t, db, constants.RoleUser)

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:        user.ID,
		AddressID:     1,
		PaymentMethod: constants.PaymentMethodCOD,
	})
	if !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty, got %v", err)
	}

	_, err = svc.Checkout(context.Background(), CheckoutInput{
		UserID:        user.ID,
		AddressID:     1,
		Items:         []CheckoutItemInput{{ProductID: 1, Quantity: 1}},
		PaymentMethod: "alipay",
	})
	if !errors.Is(err, ErrPaymentMethodInvalid) {
		t.Fatalf("expected ErrPaymentMethodInvalid, got %v", err)
	}
}

func TestCheckoutRejectsInactiveProductAndBadQuantity(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	user := seedCheckoutUser(t, db, constants.RoleUser)
	product := seedCheckoutProduct(t, db, 1, "下架商品", "10.00")
	if err := db.Model(product).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product failed: %v", err)
	}

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:        user.ID,
		AddressID:     1,
		Items:         []CheckoutItemInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod: constants.PaymentMethodCOD,
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	_, err = svc.Checkout(context.Background(), CheckoutInput{
		UserID:        user.ID,
		AddressID:     1,
		Items:         []CheckoutItemInput{{ProductID: product.ID, Quantity: 0}},
		PaymentMethod: constants.PaymentMethodCOD,
	})
	if !errors.Is(err, ErrQuantityInvalid) {
		t.Fatalf("expected ErrQuantityInvalid, got %v", err)
	}
}

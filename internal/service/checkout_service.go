package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/gocart-next/internal/cache"
	"github.com/gocart-next/internal/constants"
	"github.com/gocart-next/internal/logger"
	"github.com/gocart-next/internal/models"
	"github.com/gocart-next/internal/payment/stripe"
	"github.com/gocart-next/internal/queue"
	"github.com/gocart-next/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const productCacheTTL = 5 * time.Minute

// CheckoutOptions 结算规则参数
type CheckoutOptions struct {
	Currency             string
	ShippingFee          models.Money
	MemberRole           string
	AppTag               string
	PendingExpireMinutes int
}

// checkoutScheduler 结算服务依赖的队列能力。
type checkoutScheduler interface {
	EnqueueOrderTimeoutCancel(payload queue.OrderTimeoutCancelPayload, delay time.Duration) error
}

// CheckoutService 结算服务：优惠券校验、按卖家拆单、计价、落库与支付分发。
type CheckoutService struct {
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
	orderRepo   repository.OrderRepository
	couponSvc   *CouponService
	queueClient checkoutScheduler
	stripeCfg   *stripe.Config
	opts        CheckoutOptions
}

// NewCheckoutService 创建结算服务
func NewCheckoutService(
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	couponSvc *CouponService,
	queueClient checkoutScheduler,
	stripeCfg *stripe.Config,
	opts CheckoutOptions,
) *CheckoutService {
	if opts.MemberRole == "" {
		opts.MemberRole = constants.MemberRoleDefault
	}
	if opts.AppTag == "" {
		opts.AppTag = constants.AppTagDefault
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	if opts.PendingExpireMinutes <= 0 {
		opts.PendingExpireMinutes = constants.PendingExpireMinutes
	}
	return &CheckoutService{
		userRepo:    userRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		orderRepo:   orderRepo,
		couponSvc:   couponSvc,
		queueClient: queueClient,
		stripeCfg:   stripeCfg,
		opts:        opts,
	}
}

// CheckoutItemInput 结算商品行输入；价格永远不采信客户端，只认商品表。
type CheckoutItemInput struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// CheckoutInput 结算输入
type CheckoutInput struct {
	UserID        uint
	AddressID     uint
	Items         []CheckoutItemInput
	CouponCode    string
	PaymentMethod string
}

// CheckoutResult 结算结果
type CheckoutResult struct {
	OrderIDs    []uint       `json:"order_ids"`
	OrderNos    []string     `json:"order_nos"`
	GrandTotal  models.Money `json:"grand_total"`
	CheckoutURL string       `json:"checkout_url,omitempty"`
	SessionID   string       `json:"session_id,omitempty"`
	Finalized   bool         `json:"finalized"`
}

// sellerGroup 单个卖家的商品组，保持购物车首次出现顺序。
type sellerGroup struct {
	SellerID uint
	Lines    []sellerLine
}

type sellerLine struct {
	Product   *models.Product
	Quantity  int
	UnitPrice models.Money
}

// groupPricing 单组计价结果
type groupPricing struct {
	Group           sellerGroup
	Total           models.Money
	ShippingApplied bool
}

// checkoutAccumulator 串行折叠的结算累计状态；运费在整个结算中最多收取一次，
// 由它显式承载，分组必须顺序计价，不能并发。
type checkoutAccumulator struct {
	shippingCharged bool
}

// Checkout 执行一次完整结算。
// 失败策略：任何一步失败整单结算视为失败；已提交的卖家订单保持 pending，
// 由超时清理任务或失败回调路径兜底删除。
func (s *CheckoutService) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	log := checkoutLogger("user_id", input.UserID, "payment_method", input.PaymentMethod)

	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	if method != constants.PaymentMethodStripe && method != constants.PaymentMethodCOD {
		return nil, ErrPaymentMethodInvalid
	}
	if input.AddressID == 0 {
		return nil, ErrAddressRequired
	}

	user, err := s.userRepo.GetByID(input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	isMember := user.IsMember(s.opts.MemberRole)

	items := input.Items
	if len(items) == 0 {
		items, err = s.loadCartItems(input.UserID)
		if err != nil {
			return nil, err
		}
	}
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}

	// 优惠券资格在整个结算中只评估一次，之后各卖家分组复用同一张券。
	var coupon *models.Coupon
	if strings.TrimSpace(input.CouponCode) != "" {
		coupon, err = s.couponSvc.Validate(input.CouponCode, input.UserID, isMember)
		if err != nil {
			return nil, err
		}
	}

	groups, err := s.partitionCart(ctx, items)
	if err != nil {
		return nil, err
	}

	pricings := s.priceSellerGroups(groups, coupon, isMember)

	result, err := s.materializeOrders(input, method, coupon, pricings)
	if err != nil {
		log.Errorw("checkout_materialize_failed", "error", err)
		return nil, err
	}

	// 在线支付的超时清理任务必须在会话创建之前挂上：会话创建失败时
	// 已落库的 pending 订单收不到任何回调，只有这条任务能回收它们。
	if method == constants.PaymentMethodStripe {
		s.scheduleTimeoutSweep(result.OrderIDs, input.UserID)
	}

	if err := s.dispatchPayment(ctx, user, method, result); err != nil {
		log.Errorw("checkout_dispatch_failed", "order_ids", result.OrderIDs, "error", err)
		return nil, err
	}

	log.Infow("checkout_completed",
		"order_ids", result.OrderIDs,
		"grand_total", result.GrandTotal.String(),
		"finalized", result.Finalized,
	)
	return result, nil
}

// loadCartItems 未显式传商品行时读取持久化购物车。
func (s *CheckoutService) loadCartItems(userID uint) ([]CheckoutItemInput, error) {
	cartItems, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	items := make([]CheckoutItemInput, 0, len(cartItems))
	for _, item := range cartItems {
		items = append(items, CheckoutItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return items, nil
}

// partitionCart 按卖家拆分商品行，保持卖家首次出现顺序。
// 任一商品解析失败整单中止，不允许部分成单。
func (s *CheckoutService) partitionCart(ctx context.Context, items []CheckoutItemInput) ([]sellerGroup, error) {
	groups := make([]sellerGroup, 0, 4)
	index := make(map[uint]int, 4)

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrQuantityInvalid
		}
		product, err := s.resolveProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil || !product.IsActive {
			return nil, fmt.Errorf("%w: product %d", ErrProductNotFound, item.ProductID)
		}

		line := sellerLine{
			Product:   product,
			Quantity:  item.Quantity,
			UnitPrice: product.PriceAmount,
		}
		if pos, ok := index[product.SellerID]; ok {
			groups[pos].Lines = append(groups[pos].Lines, line)
			continue
		}
		index[product.SellerID] = len(groups)
		groups = append(groups, sellerGroup{
			SellerID: product.SellerID,
			Lines:    []sellerLine{line},
		})
	}
	return groups, nil
}

// resolveProduct 读取权威商品信息，经 Redis 读穿缓存。
func (s *CheckoutService) resolveProduct(ctx context.Context, productID uint) (*models.Product, error) {
	cacheKey := fmt.Sprintf("product:%d", productID)
	var cached models.Product
	hit, err := cache.GetJSON(ctx, cacheKey, &cached)
	if err != nil {
		logger.Warnw("checkout_product_cache_read_failed", "product_id", productID, "error", err)
	}
	if hit && err == nil {
		return &cached, nil
	}

	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	if err := cache.SetJSON(ctx, cacheKey, product, productCacheTTL); err != nil {
		logger.Warnw("checkout_product_cache_write_failed", "product_id", productID, "error", err)
	}
	return product, nil
}

// priceSellerGroups 对全部卖家分组串行计价。
// 运费承担方规则：卖家 ID 最小的分组承担（计价按卖家 ID 升序折叠），
// 返回结果仍保持首次出现顺序。
func (s *CheckoutService) priceSellerGroups(groups []sellerGroup, coupon *models.Coupon, isMember bool) []groupPricing {
	ordered := make([]int, len(groups))
	for i := range groups {
		ordered[i] = i
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		return groups[ordered[a]].SellerID < groups[ordered[b]].SellerID
	})

	acc := &checkoutAccumulator{}
	pricings := make([]groupPricing, len(groups))
	for _, idx := range ordered {
		total, shippingApplied := s.priceSellerGroup(groups[idx], coupon, acc, isMember)
		pricings[idx] = groupPricing{
			Group:           groups[idx],
			Total:           total,
			ShippingApplied: shippingApplied,
		}
	}
	return pricings
}

// priceSellerGroup 单组计价：小计 → 折扣 → 运费（整个结算仅一次，且会员免收），
// 最终四舍五入到 2 位小数作为权威落库金额。
func (s *CheckoutService) priceSellerGroup(group sellerGroup, coupon *models.Coupon, acc *checkoutAccumulator, isMember bool) (models.Money, bool) {
	total := decimal.Zero
	for _, line := range group.Lines {
		lineTotal := line.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(lineTotal)
	}

	if coupon != nil {
		discount := total.Mul(coupon.DiscountPercent.Decimal).Div(decimal.NewFromInt(100))
		total = total.Sub(discount)
	}

	shippingApplied := false
	if !isMember && !acc.shippingCharged {
		total = total.Add(s.opts.ShippingFee.Decimal)
		acc.shippingCharged = true
		shippingApplied = true
	}

	return models.NewMoneyFromDecimal(total), shippingApplied
}

// materializeOrders 逐卖家落库：每个卖家订单连同订单项在一个事务内写入。
// 跨卖家不保证原子性：第 N 单失败时前面已提交的订单保留，由清理路径兜底。
func (s *CheckoutService) materializeOrders(input CheckoutInput, method string, coupon *models.Coupon, pricings []groupPricing) (*CheckoutResult, error) {
	result := &CheckoutResult{
		OrderIDs: make([]uint, 0, len(pricings)),
		OrderNos: make([]string, 0, len(pricings)),
	}
	grandTotal := decimal.Zero

	for _, pricing := range pricings {
		order := &models.Order{
			OrderNo:         generateOrderNo(),
			UserID:          input.UserID,
			SellerID:        pricing.Group.SellerID,
			AddressID:       input.AddressID,
			Status:          constants.OrderStatusPending,
			PaymentMethod:   method,
			Currency:        s.opts.Currency,
			TotalAmount:     pricing.Total,
			CouponApplied:   coupon != nil,
			ShippingApplied: pricing.ShippingApplied,
			IsPaid:          false,
		}
		if coupon != nil {
			couponID := coupon.ID
			order.CouponID = &couponID
		}

		items := make([]models.OrderItem, 0, len(pricing.Group.Lines))
		for _, line := range pricing.Group.Lines {
			lineTotal := line.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(line.Quantity)))
			items = append(items, models.OrderItem{
				ProductID:   line.Product.ID,
				ProductName: line.Product.Name,
				UnitPrice:   line.UnitPrice,
				Quantity:    line.Quantity,
				TotalPrice:  models.NewMoneyFromDecimal(lineTotal),
			})
		}

		err := models.DB.Transaction(func(tx *gorm.DB) error {
			return s.orderRepo.WithTx(tx).Create(order, items)
		})
		if err != nil {
			// 前面卖家的订单已经提交，在线支付场景下它们不会再有会话
			// 和回调，立即挂清理任务回收。
			if method == constants.PaymentMethodStripe {
				s.scheduleTimeoutSweep(result.OrderIDs, input.UserID)
			}
			return nil, fmt.Errorf("%w: seller %d: %v", ErrOrderCreateFailed, pricing.Group.SellerID, err)
		}

		result.OrderIDs = append(result.OrderIDs, order.ID)
		result.OrderNos = append(result.OrderNos, order.OrderNo)
		grandTotal = grandTotal.Add(pricing.Total.Decimal)
	}

	result.GrandTotal = models.NewMoneyFromDecimal(grandTotal)
	return result, nil
}

// dispatchPayment 分发支付：在线支付创建处理器结算会话；
// 货到付款立即清空购物车并视为已完成分发。
func (s *CheckoutService) dispatchPayment(ctx context.Context, user *models.User, method string, result *CheckoutResult) error {
	if method == constants.PaymentMethodCOD {
		if err := s.cartRepo.ClearByUser(user.ID); err != nil {
			logger.Warnw("checkout_cart_clear_failed", "user_id", user.ID, "error", err)
		}
		result.Finalized = true
		return nil
	}

	session, err := stripe.CreateCheckoutSession(ctx, s.stripeCfg, stripe.CreateInput{
		Amount:      result.GrandTotal.String(),
		Currency:    s.opts.Currency,
		Description: constants.CheckoutLineItemNameGC,
		Metadata: stripe.SessionMetadata{
			OrderIDs: result.OrderIDs,
			UserID:   user.ID,
			AppTag:   s.opts.AppTag,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCheckoutSessionFailed, err)
	}
	result.CheckoutURL = session.URL
	result.SessionID = session.SessionID
	return nil
}

// scheduleTimeoutSweep 挂起超时清理任务：期限内未支付的 pending 订单由
// 异步任务删除（与失败回调同一条补偿路径）。
func (s *CheckoutService) scheduleTimeoutSweep(orderIDs []uint, userID uint) {
	if len(orderIDs) == 0 {
		return
	}
	delay := time.Duration(s.opts.PendingExpireMinutes) * time.Minute
	if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{
		OrderIDs: orderIDs,
		UserID:   userID,
	}, delay); err != nil {
		logger.Warnw("checkout_timeout_task_enqueue_failed", "order_ids", orderIDs, "error", err)
	}
}

func checkoutLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("%s%s%s", constants.OrderNoPrefix, now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(n.String())
	}
	return b.String()
}

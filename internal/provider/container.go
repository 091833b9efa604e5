package provider

import (
	"github.com/gocart-next/internal/cache"
	"github.com/gocart-next/internal/config"
	"github.com/gocart-next/internal/logger"
	"github.com/gocart-next/internal/models"
	"github.com/gocart-next/internal/payment/stripe"
	"github.com/gocart-next/internal/queue"
	"github.com/gocart-next/internal/repository"
	"github.com/gocart-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	StripeCfg   *stripe.Config

	// Repositories
	UserRepo    repository.UserRepository
	SellerRepo  repository.SellerRepository
	ProductRepo repository.ProductRepository
	CartRepo    repository.CartRepository
	CouponRepo  repository.CouponRepository
	OrderRepo   repository.OrderRepository

	// Services
	UserAuthService *service.UserAuthService
	CartService     *service.CartService
	CouponService   *service.CouponService
	CheckoutService *service.CheckoutService
	OrderService    *service.OrderService
	PaymentService  *service.PaymentService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(&config.QueueConfig{Enabled: false})
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		StripeCfg:   buildStripeConfig(cfg),
	}

	c.initRepositories()
	c.initServices()

	return c
}

func buildStripeConfig(cfg *config.Config) *stripe.Config {
	stripeCfg := &stripe.Config{
		SecretKey:            cfg.Stripe.SecretKey,
		WebhookSecret:        cfg.Stripe.WebhookSecret,
		SuccessURL:           cfg.Stripe.SuccessURL,
		CancelURL:            cfg.Stripe.CancelURL,
		SessionExpireMinutes: cfg.Stripe.SessionExpireMinutes,
	}
	stripeCfg.Normalize()
	return stripeCfg
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.SellerRepo = repository.NewSellerRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
}

func (c *Container) initServices() {
	shippingFee, err := models.NewMoneyFromString(c.Config.Checkout.ShippingFee)
	if err != nil {
		logger.Errorw("provider_parse_shipping_fee_failed", "value", c.Config.Checkout.ShippingFee, "error", err)
		panic(err)
	}

	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo)
	c.CouponService = service.NewCouponService(c.CouponRepo, c.OrderRepo)
	c.CheckoutService = service.NewCheckoutService(
		c.UserRepo, c.ProductRepo, c.CartRepo, c.OrderRepo,
		c.CouponService, c.QueueClient, c.StripeCfg,
		service.CheckoutOptions{
			Currency:             c.Config.Stripe.Currency,
			ShippingFee:          shippingFee,
			MemberRole:           c.Config.Checkout.MemberRole,
			AppTag:               c.Config.Checkout.AppTag,
			PendingExpireMinutes: c.Config.Checkout.PendingExpireMinutes,
		},
	)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.SellerRepo)
	c.PaymentService = service.NewPaymentService(c.OrderRepo, c.CartRepo, c.QueueClient, c.StripeCfg, c.Config.Checkout.AppTag)
}

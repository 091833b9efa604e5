package constants

// 订单状态常量
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
)

// 支付方式常量
const (
	PaymentMethodStripe = "stripe"
	PaymentMethodCOD    = "cod"
)

// 支付处理器回调事件常量
const (
	StripeEventCheckoutCompleted     = "checkout.session.completed"
	StripeEventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	StripeEventCheckoutExpired       = "checkout.session.expired"
	StripeEventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	StripeEventPaymentIntentFailed   = "payment_intent.payment_failed"
)

// 用户角色常量
const (
	RoleUser = "user"
	RolePlus = "plus"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 队列常量
const (
	QueueDefault           = "default"
	QueueCritical          = "critical"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
	TaskOrderPaidNotify    = "order:paid_notify"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "gc"
)

// 结算默认规则常量
const (
	ShippingFeeDefault     = "40"
	MemberRoleDefault      = RolePlus
	AppTagDefault          = "GoCart"
	SessionExpireMinutes   = 30
	PendingExpireMinutes   = 35
	OrderNoPrefix          = "GC"
	CheckoutLineItemNameGC = "GoCart Order"
)

// 站点语言常量
const (
	LocaleZhCN = "zh-CN"
	LocaleEnUS = "en-US"
)

// 支持的站点语言顺序（含回退顺序）
var SupportedLocales = []string{LocaleZhCN, LocaleEnUS}

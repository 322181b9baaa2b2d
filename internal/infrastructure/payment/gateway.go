package payment

import (
	"context"
	"errors"
)

var (
	ErrInvalidSignature = errors.New("回调签名校验失败")
	ErrMalformedPayload = errors.New("回调报文格式错误")
)

// CheckoutRequest 创建外部支付会话的入参
// user_id 和 order_no 作为 metadata 带给支付方，回调时原样带回用于关联
type CheckoutRequest struct {
	UserID      int64
	OrderNo     string
	AmountCents int64
}

// CheckoutSession 外部托管支付页
type CheckoutSession struct {
	ID  string
	URL string
}

// Event 支付方异步通知解析后的结果
type Event struct {
	EventID     string // 支付方事件 ID，幂等去重的键
	Type        string
	UserID      int64
	OrderNo     string
	AmountCents int64
}

// PaymentCompleted 是否为支付完成类事件，其余类型确认收到但不入账
func (e *Event) PaymentCompleted() bool {
	switch e.Type {
	case "checkout.session.completed", "payment_intent.succeeded", "charge.succeeded":
		return true
	}
	return false
}

// Gateway 外部支付处理器
// 服务层只依赖本接口，线上实现是 Stripe，测试里换成桩实现
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, req *CheckoutRequest) (clientSecret string, err error)
	ParseNotification(payload []byte, sigHeader string) (*Event, error)
}

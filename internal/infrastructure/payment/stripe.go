package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"fantasyrally/internal/config"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway Stripe 实现
type StripeGateway struct {
	cfg *config.StripeConfig
}

func NewStripeGateway(cfg *config.StripeConfig) *StripeGateway {
	stripe.Key = cfg.SecretKey
	return &StripeGateway{cfg: cfg}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Deposit sweepcoins"),
					},
					UnitAmount: stripe.Int64(req.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.cfg.SuccessURL),
		CancelURL:  stripe.String(g.cfg.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.FormatInt(req.UserID, 10))
	params.AddMetadata("order_no", req.OrderNo)

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("创建 checkout session 失败: %w", err)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req *CheckoutRequest) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.FormatInt(req.UserID, 10))

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("创建 payment intent 失败: %w", err)
	}

	return pi.ClientSecret, nil
}

// ParseNotification 校验并解析 Stripe 回调
// 配置了 webhook_secret 时签名校验是强制的；未配置时直接解析报文（仅限开发环境）
func (g *StripeGateway) ParseNotification(payload []byte, sigHeader string) (*Event, error) {
	var event stripe.Event
	if g.cfg.WebhookSecret != "" {
		verified, err := webhook.ConstructEvent(payload, sigHeader, g.cfg.WebhookSecret)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		event = verified
	} else if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	out := &Event{EventID: event.ID, Type: string(event.Type)}

	var metadata map[string]string
	switch out.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		out.AmountCents = cs.AmountTotal
		metadata = cs.Metadata
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		out.AmountCents = pi.Amount
		metadata = pi.Metadata
	case "charge.succeeded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		out.AmountCents = ch.Amount
		metadata = ch.Metadata
	default:
		return out, nil
	}

	if v, ok := metadata["user_id"]; ok {
		userID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: user_id=%q", ErrMalformedPayload, v)
		}
		out.UserID = userID
	}
	out.OrderNo = metadata["order_no"]

	return out, nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"fantasyrally/internal/config"
	"fantasyrally/internal/infrastructure/lock"
	"fantasyrally/internal/infrastructure/payment"
	"fantasyrally/internal/model"
	"fantasyrally/internal/repository"
	"fantasyrally/pkg/idgen"

	"gorm.io/gorm"
)

var ErrInvalidAmount = errors.New("充值金额必须大于0")

type DepositService struct {
	db              *gorm.DB
	cfg             *config.Config
	gateway         payment.Gateway
	newLock         lock.Factory
	userRepo        *repository.UserRepository
	depositRepo     *repository.DepositRepository
	eventRepo       *repository.WebhookEventRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewDepositService(db *gorm.DB, gateway payment.Gateway, newLock lock.Factory, cfg *config.Config) *DepositService {
	return &DepositService{
		db:              db,
		cfg:             cfg,
		gateway:         gateway,
		newLock:         newLock,
		userRepo:        repository.NewUserRepository(db),
		depositRepo:     repository.NewDepositRepository(db),
		eventRepo:       repository.NewWebhookEventRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

// CreateCheckoutSession 创建充值单和外部支付会话，返回托管支付页 URL
// 金额校验在任何外部调用之前
func (s *DepositService) CreateCheckoutSession(ctx context.Context, userID, amountCents int64) (string, error) {
	if amountCents <= 0 {
		return "", ErrInvalidAmount
	}

	orderNo := idgen.GenerateOrderNo()
	expiredAt := time.Now().Add(time.Duration(s.cfg.Business.SessionTimeoutMinutes) * time.Minute)

	order := &model.DepositOrder{
		OrderNo:     orderNo,
		UserID:      userID,
		AmountCents: amountCents,
		Status:      model.DepositStatusCreated,
		ExpiredAt:   expiredAt,
	}

	if err := s.depositRepo.Create(ctx, nil, order); err != nil {
		return "", fmt.Errorf("创建充值单失败: %w", err)
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, &payment.CheckoutRequest{
		UserID:      userID,
		OrderNo:     orderNo,
		AmountCents: amountCents,
	})
	if err != nil {
		if updateErr := s.depositRepo.UpdateStatus(ctx, nil, orderNo,
			model.DepositStatusCreated, model.DepositStatusFailed); updateErr != nil {
			log.Printf("[Deposit] 标记充值单失败状态失败: orderNo=%s, err=%v", orderNo, updateErr)
		}
		return "", fmt.Errorf("创建支付会话失败: %w", err)
	}

	if err := s.depositRepo.MarkSessionIssued(ctx, orderNo, sess.ID); err != nil {
		// 回调可能抢在这里之前把单子确认掉了，流转失败只记录不报错
		log.Printf("[Deposit] 充值单流转 SESSION_ISSUED 失败: orderNo=%s, err=%v", orderNo, err)
	}

	return sess.URL, nil
}

// CreatePaymentIntent 嵌入式支付流程，没有本地充值单，回调只按 user_id 关联
func (s *DepositService) CreatePaymentIntent(ctx context.Context, userID, amountCents int64) (string, error) {
	if amountCents <= 0 {
		return "", ErrInvalidAmount
	}

	clientSecret, err := s.gateway.CreatePaymentIntent(ctx, &payment.CheckoutRequest{
		UserID:      userID,
		AmountCents: amountCents,
	})
	if err != nil {
		return "", fmt.Errorf("创建支付意向失败: %w", err)
	}

	return clientSecret, nil
}

// HandleNotification 处理支付方回调
// 签名校验失败或报文损坏返回错误（调用方回 400）；
// 重复投递、未知用户、缺字段的通知确认收到但不入账；
// 数据库错误原样返回（调用方回 500，让支付方重试），绝不静默吞掉
func (s *DepositService) HandleNotification(ctx context.Context, payload []byte, sigHeader string) error {
	ev, err := s.gateway.ParseNotification(payload, sigHeader)
	if err != nil {
		return err
	}

	if !ev.PaymentCompleted() {
		log.Printf("[Webhook] 忽略事件: type=%s, id=%s", ev.Type, ev.EventID)
		return nil
	}

	return s.credit(ctx, ev)
}

// credit 按外部事件幂等入账，1 美分 = 1 个币
//
// 【关键点】入账必须保证：
// 1. 幂等性：同一 event_id 只入账一次，靠 webhook_event 唯一索引
// 2. 原子性：事件登记、余额增加、流水记录、充值单确认同生共死
// 3. 并发安全：同一用户的并发回调靠按用户维度的锁串行化
func (s *DepositService) credit(ctx context.Context, ev *payment.Event) error {
	if ev.EventID == "" || ev.UserID == 0 || ev.AmountCents <= 0 {
		log.Printf("[Webhook] 通知缺少必要字段，确认但不入账: eventID=%q, userID=%d, amount=%d",
			ev.EventID, ev.UserID, ev.AmountCents)
		return nil
	}

	// 加锁前先判重，重复投递不必竞争锁
	exists, err := s.eventRepo.Exists(ctx, ev.EventID)
	if err != nil {
		return fmt.Errorf("查询事件失败: %w", err)
	}
	if exists {
		log.Printf("[Webhook] 重复投递，跳过: eventID=%s", ev.EventID)
		return nil
	}

	creditLock := s.newLock(ev.UserID, ev.EventID)
	if err := creditLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return fmt.Errorf("获取入账锁失败: %w", err)
	}
	defer creditLock.Unlock(ctx)

	coins := ev.AmountCents
	duplicate := false

	err = s.db.Transaction(func(tx *gorm.DB) error {
		inserted, err := s.eventRepo.Record(ctx, tx, &model.WebhookEvent{
			EventID:     ev.EventID,
			Type:        ev.Type,
			UserID:      ev.UserID,
			AmountCents: ev.AmountCents,
		})
		if err != nil {
			return fmt.Errorf("登记事件失败: %w", err)
		}
		if !inserted {
			duplicate = true
			return nil
		}

		user, err := s.userRepo.GetByIDTx(ctx, tx, ev.UserID)
		if err != nil {
			return err
		}

		if err := s.userRepo.Credit(ctx, tx, ev.UserID, coins); err != nil {
			return fmt.Errorf("入账失败: %w", err)
		}

		trans := &model.SweepcoinTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        ev.UserID,
			OrderNo:       ev.OrderNo,
			EventID:       ev.EventID,
			Amount:        coins,
			Type:          model.TransactionTypeDeposit,
			BalanceBefore: user.Sweepcoins,
			BalanceAfter:  user.Sweepcoins + coins,
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		if ev.OrderNo != "" {
			if err := s.depositRepo.Confirm(ctx, tx, ev.OrderNo); err != nil {
				// 单子不存在或已过期也照常入账——钱已经付了，状态差异只记录
				log.Printf("[Webhook] 充值单确认失败: orderNo=%s, err=%v", ev.OrderNo, err)
			}
		}

		if s.cfg.Kafka.Enabled {
			msgPayload := map[string]interface{}{
				"event_id":    ev.EventID,
				"user_id":     ev.UserID,
				"order_no":    ev.OrderNo,
				"amount":      coins,
				"credited_at": time.Now().Format(time.RFC3339),
			}
			payloadBytes, _ := json.Marshal(msgPayload)

			outboxMsg := &model.OutboxMessage{
				MessageKey: ev.EventID,
				Topic:      s.cfg.Kafka.Topic.DepositCredited,
				Payload:    string(payloadBytes),
				Status:     model.OutboxStatusPending,
			}
			if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
				return fmt.Errorf("写入消息失败: %w", err)
			}
		}

		return nil
	})

	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("[Webhook] 用户不存在，确认但不入账: userID=%d, eventID=%s", ev.UserID, ev.EventID)
			return nil
		}
		return err
	}

	if duplicate {
		log.Printf("[Webhook] 重复投递，跳过: eventID=%s", ev.EventID)
		return nil
	}

	log.Printf("[Webhook] 入账成功: userID=%d, coins=%d, eventID=%s", ev.UserID, coins, ev.EventID)
	return nil
}

func (s *DepositService) ListDeposits(ctx context.Context, userID int64, page, pageSize int) ([]*model.DepositOrder, int64, error) {
	return s.depositRepo.ListByUserID(ctx, userID, page, pageSize)
}

func (s *DepositService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.SweepcoinTransaction, int64, error) {
	return s.transactionRepo.ListByUserID(ctx, userID, page, pageSize)
}

// ExpireOverdueOrders 把超时未完成的充值单收尾：
// SESSION_ISSUED 过期为 EXPIRED；CREATED（会话都没建出来）标记 FAILED
func (s *DepositService) ExpireOverdueOrders(ctx context.Context, limit int) (int, error) {
	orders, err := s.depositRepo.GetExpiredOrders(ctx, limit)
	if err != nil {
		return 0, err
	}

	closedCount := 0
	for _, order := range orders {
		target := model.DepositStatusExpired
		if order.Status == model.DepositStatusCreated {
			target = model.DepositStatusFailed
		}
		if err := s.depositRepo.UpdateStatus(ctx, nil, order.OrderNo, order.Status, target); err != nil {
			log.Printf("[Deposit] 关闭超时充值单失败: orderNo=%s, err=%v", order.OrderNo, err)
			continue
		}
		closedCount++
	}

	return closedCount, nil
}

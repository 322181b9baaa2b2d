package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"fantasyrally/internal/config"
	"fantasyrally/internal/infrastructure/lock"
	"fantasyrally/internal/infrastructure/payment"
	"fantasyrally/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeGateway 支付网关桩实现，不出网
type fakeGateway struct {
	mu           sync.Mutex
	sessionCalls int
	intentCalls  int
	lastCheckout *payment.CheckoutRequest
	parseResult  *payment.Event
	parseErr     error
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, req *payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionCalls++
	f.lastCheckout = req
	return &payment.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

func (f *fakeGateway) CreatePaymentIntent(ctx context.Context, req *payment.CheckoutRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intentCalls++
	return "pi_test_secret", nil
}

func (f *fakeGateway) ParseNotification(payload []byte, sigHeader string) (*payment.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.parseResult, nil
}

func newDepositService(t *testing.T) (*DepositService, *fakeGateway, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	gw := &fakeGateway{}
	cfg := &config.Config{
		Kafka: config.KafkaConfig{
			Enabled: true,
			Topic:   config.KafkaTopicConfig{DepositCredited: "test.deposit.credited"},
		},
		Business: config.BusinessConfig{SessionTimeoutMinutes: 30, MaxRetryCount: 3},
	}
	return NewDepositService(db, gw, lock.NewLocalFactory(), cfg), gw, db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func userBalance(t *testing.T, db *gorm.DB, userID int64) int64 {
	t.Helper()
	var user model.User
	require.NoError(t, db.First(&user, userID).Error)
	return user.Sweepcoins
}

func TestCreateCheckoutSessionInvalidAmount(t *testing.T) {
	s, gw, _ := newDepositService(t)

	for _, amount := range []int64{0, -1, -500} {
		_, err := s.CreateCheckoutSession(context.Background(), 1, amount)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}

	// 校验失败时不能有任何外部调用
	assert.Equal(t, 0, gw.sessionCalls)
}

func TestCreateCheckoutSession(t *testing.T) {
	s, gw, db := newDepositService(t)
	user := seedUser(t, db, "alice@example.com")

	url, err := s.CreateCheckoutSession(context.Background(), user.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/cs_test_1", url)

	// metadata 带回 user_id 和 order_no，回调才能关联
	require.NotNil(t, gw.lastCheckout)
	assert.Equal(t, user.ID, gw.lastCheckout.UserID)
	assert.NotEmpty(t, gw.lastCheckout.OrderNo)

	var order model.DepositOrder
	require.NoError(t, db.Where("order_no = ?", gw.lastCheckout.OrderNo).First(&order).Error)
	assert.Equal(t, model.DepositStatusSessionIssued, order.Status)
	assert.Equal(t, "cs_test_1", order.SessionID)
	assert.EqualValues(t, 500, order.AmountCents)
}

func TestCreatePaymentIntentInvalidAmount(t *testing.T) {
	s, gw, _ := newDepositService(t)

	_, err := s.CreatePaymentIntent(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, 0, gw.intentCalls)
}

func TestCreditIdempotent(t *testing.T) {
	s, _, db := newDepositService(t)
	user := seedUser(t, db, "alice@example.com")

	ev := &payment.Event{
		EventID:     "evt_1",
		Type:        "payment_intent.succeeded",
		UserID:      user.ID,
		AmountCents: 500,
	}

	// 同一事件投递两次，只能入账一次：充 $5 两次回调，余额是 500 不是 1000
	require.NoError(t, s.credit(context.Background(), ev))
	require.NoError(t, s.credit(context.Background(), ev))

	assert.EqualValues(t, 500, userBalance(t, db, user.ID))

	var eventCount, transCount int64
	require.NoError(t, db.Model(&model.WebhookEvent{}).Count(&eventCount).Error)
	require.NoError(t, db.Model(&model.SweepcoinTransaction{}).Count(&transCount).Error)
	assert.EqualValues(t, 1, eventCount)
	assert.EqualValues(t, 1, transCount)
}

func TestCreditConcurrentNoLostUpdate(t *testing.T) {
	s, _, db := newDepositService(t)
	user := seedUser(t, db, "alice@example.com")

	events := []*payment.Event{
		{EventID: "evt_a", Type: "charge.succeeded", UserID: user.ID, AmountCents: 300},
		{EventID: "evt_b", Type: "charge.succeeded", UserID: user.ID, AmountCents: 200},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(events))
	for i, ev := range events {
		wg.Add(1)
		go func(i int, ev *payment.Event) {
			defer wg.Done()
			errs[i] = s.credit(context.Background(), ev)
		}(i, ev)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 500, userBalance(t, db, user.ID))
}

func TestCreditConfirmsDepositOrder(t *testing.T) {
	s, gw, db := newDepositService(t)
	user := seedUser(t, db, "alice@example.com")

	_, err := s.CreateCheckoutSession(context.Background(), user.ID, 500)
	require.NoError(t, err)
	orderNo := gw.lastCheckout.OrderNo

	ev := &payment.Event{
		EventID:     "evt_cs",
		Type:        "checkout.session.completed",
		UserID:      user.ID,
		OrderNo:     orderNo,
		AmountCents: 500,
	}
	require.NoError(t, s.credit(context.Background(), ev))

	var order model.DepositOrder
	require.NoError(t, db.Where("order_no = ?", orderNo).First(&order).Error)
	assert.Equal(t, model.DepositStatusConfirmed, order.Status)
	require.NotNil(t, order.ConfirmedAt)

	// 入账流水和发件箱消息同事务落库
	var trans model.SweepcoinTransaction
	require.NoError(t, db.Where("event_id = ?", "evt_cs").First(&trans).Error)
	assert.EqualValues(t, 500, trans.Amount)
	assert.EqualValues(t, 0, trans.BalanceBefore)
	assert.EqualValues(t, 500, trans.BalanceAfter)

	var outbox model.OutboxMessage
	require.NoError(t, db.Where("message_key = ?", "evt_cs").First(&outbox).Error)
	assert.Equal(t, model.OutboxStatusPending, outbox.Status)
	assert.Equal(t, "test.deposit.credited", outbox.Topic)
}

func TestHandleNotificationInvalidSignature(t *testing.T) {
	s, gw, db := newDepositService(t)
	user := seedUser(t, db, "alice@example.com")

	gw.parseErr = payment.ErrInvalidSignature

	err := s.HandleNotification(context.Background(), []byte("{}"), "t=1,v1=bad")
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	assert.EqualValues(t, 0, userBalance(t, db, user.ID))
}

func TestHandleNotificationIgnoresOtherEvents(t *testing.T) {
	s, gw, db := newDepositService(t)
	user := seedUser(t, db, "alice@example.com")

	gw.parseResult = &payment.Event{
		EventID:     "evt_other",
		Type:        "invoice.paid",
		UserID:      user.ID,
		AmountCents: 500,
	}

	require.NoError(t, s.HandleNotification(context.Background(), []byte("{}"), ""))
	assert.EqualValues(t, 0, userBalance(t, db, user.ID))
}

func TestCreditMissingFieldsAcknowledgedWithoutCredit(t *testing.T) {
	s, _, db := newDepositService(t)
	user := seedUser(t, db, "alice@example.com")

	for _, ev := range []*payment.Event{
		{EventID: "", Type: "charge.succeeded", UserID: user.ID, AmountCents: 500},
		{EventID: "evt_x", Type: "charge.succeeded", UserID: 0, AmountCents: 500},
		{EventID: "evt_y", Type: "charge.succeeded", UserID: user.ID, AmountCents: 0},
	} {
		require.NoError(t, s.credit(context.Background(), ev))
	}

	assert.EqualValues(t, 0, userBalance(t, db, user.ID))
}

func TestCreditUnknownUserAcknowledgedWithoutCredit(t *testing.T) {
	s, _, db := newDepositService(t)

	ev := &payment.Event{EventID: "evt_ghost", Type: "charge.succeeded", UserID: 999, AmountCents: 500}
	require.NoError(t, s.credit(context.Background(), ev))

	var eventCount int64
	require.NoError(t, db.Model(&model.WebhookEvent{}).Count(&eventCount).Error)
	assert.EqualValues(t, 0, eventCount)
}

func TestExpireOverdueOrders(t *testing.T) {
	s, _, db := newDepositService(t)
	user := seedUser(t, db, "alice@example.com")

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	overdue := &model.DepositOrder{OrderNo: "DEP_overdue", UserID: user.ID, AmountCents: 100,
		Status: model.DepositStatusSessionIssued, ExpiredAt: past}
	stuck := &model.DepositOrder{OrderNo: "DEP_stuck", UserID: user.ID, AmountCents: 100,
		Status: model.DepositStatusCreated, ExpiredAt: past}
	fresh := &model.DepositOrder{OrderNo: "DEP_fresh", UserID: user.ID, AmountCents: 100,
		Status: model.DepositStatusSessionIssued, ExpiredAt: future}
	require.NoError(t, db.Create([]*model.DepositOrder{overdue, stuck, fresh}).Error)

	closed, err := s.ExpireOverdueOrders(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 2, closed)

	var got model.DepositOrder
	require.NoError(t, db.Where("order_no = ?", "DEP_overdue").First(&got).Error)
	assert.Equal(t, model.DepositStatusExpired, got.Status)
	require.NoError(t, db.Where("order_no = ?", "DEP_stuck").First(&got).Error)
	assert.Equal(t, model.DepositStatusFailed, got.Status)
	require.NoError(t, db.Where("order_no = ?", "DEP_fresh").First(&got).Error)
	assert.Equal(t, model.DepositStatusSessionIssued, got.Status)
}

package repository

import (
	"context"
	"errors"
	"time"

	"fantasyrally/internal/model"

	"gorm.io/gorm"
)

var (
	ErrDepositNotFound      = errors.New("充值单不存在")
	ErrDepositStatusInvalid = errors.New("充值单状态不合法")
)

type DepositRepository struct {
	db *gorm.DB
}

func NewDepositRepository(db *gorm.DB) *DepositRepository {
	return &DepositRepository{db: db}
}

func (r *DepositRepository) Create(ctx context.Context, tx *gorm.DB, order *model.DepositOrder) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(order).Error
}

func (r *DepositRepository) GetByOrderNo(ctx context.Context, orderNo string) (*model.DepositOrder, error) {
	var order model.DepositOrder
	err := r.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepositNotFound
		}
		return nil, err
	}
	return &order, nil
}

// UpdateStatus 带条件的状态流转，WHERE status = from 保证并发下不会把终态改回去
func (r *DepositRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, orderNo string, fromStatus, toStatus string) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrDepositStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"status": toStatus,
	}

	if toStatus == model.DepositStatusConfirmed {
		now := time.Now()
		updates["confirmed_at"] = &now
	}

	result := tx.WithContext(ctx).
		Model(&model.DepositOrder{}).
		Where("order_no = ? AND status = ?", orderNo, fromStatus).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrDepositStatusInvalid
	}

	return nil
}

// MarkSessionIssued 记录外部会话 ID 并流转到 SESSION_ISSUED
func (r *DepositRepository) MarkSessionIssued(ctx context.Context, orderNo, sessionID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.DepositOrder{}).
		Where("order_no = ? AND status = ?", orderNo, model.DepositStatusCreated).
		Updates(map[string]interface{}{
			"status":     model.DepositStatusSessionIssued,
			"session_id": sessionID,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrDepositStatusInvalid
	}

	return nil
}

// Confirm 把还未终结的充值单流转到 CONFIRMED
// 回调可能早于 MarkSessionIssued 到达，所以 CREATED 和 SESSION_ISSUED 都接受
func (r *DepositRepository) Confirm(ctx context.Context, tx *gorm.DB, orderNo string) error {
	if tx == nil {
		tx = r.db
	}

	now := time.Now()
	result := tx.WithContext(ctx).
		Model(&model.DepositOrder{}).
		Where("order_no = ? AND status IN ?", orderNo,
			[]string{model.DepositStatusCreated, model.DepositStatusSessionIssued}).
		Updates(map[string]interface{}{
			"status":       model.DepositStatusConfirmed,
			"confirmed_at": &now,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrDepositStatusInvalid
	}

	return nil
}

func (r *DepositRepository) GetExpiredOrders(ctx context.Context, limit int) ([]*model.DepositOrder, error) {
	var orders []*model.DepositOrder
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expired_at < ?",
			[]string{model.DepositStatusCreated, model.DepositStatusSessionIssued},
			time.Now()).
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *DepositRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.DepositOrder, int64, error) {
	var orders []*model.DepositOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&model.DepositOrder{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error

	return orders, total, err
}

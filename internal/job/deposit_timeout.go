package job

import (
	"context"
	"log"
	"time"

	"fantasyrally/internal/config"
	"fantasyrally/internal/infrastructure/lock"
	"fantasyrally/internal/infrastructure/payment"
	"fantasyrally/internal/service"

	"gorm.io/gorm"
)

// DepositTimeoutJob 定期把超时未支付的充值单流转到终态
type DepositTimeoutJob struct {
	depositService *service.DepositService
	stopCh         chan struct{}
	interval       time.Duration
	batchSize      int
}

func NewDepositTimeoutJob(db *gorm.DB, gateway payment.Gateway, newLock lock.Factory, cfg *config.Config) *DepositTimeoutJob {
	return &DepositTimeoutJob{
		depositService: service.NewDepositService(db, gateway, newLock, cfg),
		stopCh:         make(chan struct{}),
		interval:       time.Minute,
		batchSize:      100,
	}
}

func (j *DepositTimeoutJob) Start(ctx context.Context) {
	log.Println("[DepositTimeoutJob] 充值单超时任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[DepositTimeoutJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[DepositTimeoutJob] 任务停止")
			return
		case <-ticker.C:
			j.expireOnce(ctx)
		}
	}
}

func (j *DepositTimeoutJob) Stop() {
	close(j.stopCh)
}

func (j *DepositTimeoutJob) expireOnce(ctx context.Context) {
	closed, err := j.depositService.ExpireOverdueOrders(ctx, j.batchSize)
	if err != nil {
		log.Printf("[DepositTimeoutJob] 查询超时充值单失败: %v", err)
		return
	}
	if closed > 0 {
		log.Printf("[DepositTimeoutJob] 本次关闭 %d 个超时充值单", closed)
	}
}

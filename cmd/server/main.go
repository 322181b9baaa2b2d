package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fantasyrally/internal/config"
	"fantasyrally/internal/handler"
	"fantasyrally/internal/infrastructure/cache"
	"fantasyrally/internal/infrastructure/database"
	"fantasyrally/internal/infrastructure/lock"
	"fantasyrally/internal/infrastructure/mq"
	"fantasyrally/internal/infrastructure/payment"
	"fantasyrally/internal/job"
	"fantasyrally/pkg/idgen"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig("config/config.yaml")

	// 初始化 ID 生成器
	idgen.Init(1)

	// 内容目录
	if err := os.MkdirAll(cfg.Content.Dir, 0o755); err != nil {
		log.Fatalf("创建内容目录失败: %v", err)
	}

	// 初始化 SQLite
	db := database.InitSQLite(&cfg.SQLite)

	// 入账锁：启用 Redis 时用分布式锁，否则进程内锁
	var newLock lock.Factory
	if cfg.Redis.Enabled {
		redisClient := cache.InitRedis(&cfg.Redis)
		newLock = lock.NewRedisFactory(redisClient)
	} else {
		newLock = lock.NewLocalFactory()
	}

	// 支付网关
	gateway := payment.NewStripeGateway(&cfg.Stripe)

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动后台任务
	if cfg.Kafka.Enabled {
		mq.InitKafka(&cfg.Kafka)
		defer mq.CloseKafka()

		outboxSender := job.NewOutboxSender(db, cfg)
		go outboxSender.Start(ctx)
	}

	depositTimeoutJob := job.NewDepositTimeoutJob(db, gateway, newLock, cfg)
	go depositTimeoutJob.Start(ctx)

	// 设置路由
	router := handler.SetupRouter(db, gateway, newLock, cfg)

	// 启动 HTTP 服务
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("服务启动，监听端口: %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 取消上下文，停止后台任务
	cancel()

	// 关闭 HTTP 服务（等待最多5秒）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("服务关闭异常: %v", err)
	}

	log.Println("服务已关闭")
}

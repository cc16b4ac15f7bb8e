package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"TraffixSync/internal/adapter/github"
	"TraffixSync/internal/api"
	"TraffixSync/internal/cache"
	"TraffixSync/internal/config"
	"TraffixSync/internal/repository"
	"TraffixSync/internal/service"
)

// jobTimeout 单次定时任务的超时上限，网络卡死时任务以超时失败而不是挂住调度器
const jobTimeout = 5 * time.Minute

func main() {
	// 1. 加载配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 2. 初始化日志
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if cfg.Server.Mode == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.Info("配置文件加载成功")

	// 3. 初始化缓存后端（按连接串 scheme 选择 Redis / PostgreSQL）
	cacheStore, err := cache.NewStore(cfg.Cache.URL, logger)
	if err != nil {
		logger.Fatalf("初始化缓存失败: %v", err)
	}

	// 4. 组装各服务
	tracker := github.NewClient(&cfg.Tracker, logger)
	datastore := repository.NewDatastore(cfg.Datastore.Dir, logger)
	ingestService := service.NewIngestService(tracker, datastore, cfg, logger)
	syncService := service.NewSyncService(tracker, cacheStore, cfg, logger)
	notifyService := service.NewNotifyService(cacheStore, cfg, logger)

	// 5. 定时任务：同步、通知、摄取各走各的节奏，禁止同一任务重叠执行
	cronLogger := cron.PrintfLogger(logger)
	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	syncJob := func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		syncService.SyncAll(ctx)
	}
	notifyJob := func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := notifyService.SendDigest(ctx); err != nil {
			logger.WithError(err).Error("发送摘要失败")
		}
	}
	ingestJob := func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		ingestService.IngestAll(ctx)
	}

	if _, err := scheduler.AddFunc(cfg.Sync.Cron, syncJob); err != nil {
		logger.Fatalf("注册同步任务失败: %v", err)
	}
	if _, err := scheduler.AddFunc(cfg.Notify.Cron, notifyJob); err != nil {
		logger.Fatalf("注册通知任务失败: %v", err)
	}
	if cfg.Ingest.Cron != "" {
		if _, err := scheduler.AddFunc(cfg.Ingest.Cron, ingestJob); err != nil {
			logger.Fatalf("注册摄取任务失败: %v", err)
		}
	}
	scheduler.Start()

	if cfg.Sync.RunNow {
		logger.Info("RUN_NOW 已开启，启动时立即执行一次同步与通知")
		go func() {
			syncJob()
			notifyJob()
		}()
	}

	// 6. 配置Gin运行模式（从配置读取：debug/release）
	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()

	// 注册pprof 方便调试和监测性能问题
	pprof.Register(r)
	logger.Infof("Gin运行模式: %s", cfg.Server.Mode)

	// 7. 注册API路由
	eventHandler := api.NewEventHandler(cacheStore, cfg, logger)
	r.GET("/api/health", eventHandler.Health)
	r.GET("/api/events/:kind", eventHandler.ListEvents)
	r.GET("/api/events/:kind/upcoming", eventHandler.UpcomingEvents)
	r.GET("/api/activity", eventHandler.Activity)

	syncHandler := api.NewSyncHandler(syncService, ingestService, cfg, logger)
	r.POST("/sync/run", syncHandler.SyncAllHandler)
	r.POST("/sync/dataset/:kind", syncHandler.SyncDatasetHandler)
	r.POST("/ingest/dataset/:kind", syncHandler.IngestDatasetHandler)

	// 8. 启动服务（从配置读取端口）
	port := cfg.Server.Port
	logger.Infof("服务启动成功，端口：%d", port)
	if err := r.Run(fmt.Sprintf(":%d", port)); err != nil {
		logger.Fatalf("启动服务失败: %v", err)
	}
}

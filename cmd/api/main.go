package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/handler"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/history"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/localcache"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/remote"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/store"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/syncer"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 连接数据库（远程文档存储）
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	/**********************************************
	 * 连接 rabbitmq（变更通知总线）
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		return
	}
	defer ch.Close()

	// 声明变更通知交换机，路由键为集合名
	if err := ch.ExchangeDeclare(
		cfg.RabbitMQ.Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		logger.Error("无法声明交换机", "error", err)
		return
	}

	/**********************************************
	 * 创建本地缓存
	 **********************************************/
	var cache localcache.Cache
	switch cfg.Cache.Backend {
	case "disk":
		cache = localcache.NewDiskCache(cfg.Cache.DiskPath)
	default:
		redisCache := localcache.NewRedisCache(cfg)
		defer redisCache.Close()
		cache = redisCache
	}

	/**********************************************
	 * 创建远程存储和同步引擎
	 **********************************************/
	remoteStore := remote.NewPostgresStore(cfg, dbpool, ch)
	if err := remoteStore.EnsureSchema(context.Background()); err != nil {
		logger.Error("无法初始化文档表", "error", err)
		return
	}

	st := store.NewStore()
	engine := syncer.NewEngine(cfg, st, cache, remoteStore)

	// 先用本地缓存立即恢复数据，再用远程数据覆盖
	engine.LoadFromCache(context.Background())
	if err := engine.Hydrate(context.Background()); err != nil {
		// 远程不可用时继续用缓存数据工作（本地优先）
		logger.Error("无法从远程存储拉取数据", "error", err)
	}

	listener := syncer.NewListener(engine)
	if err := listener.Start(context.Background()); err != nil {
		logger.Error("无法订阅远程变更通知", "error", err)
		return
	}
	defer listener.Stop()

	/**********************************************
	 * 创建历史管理器和 handler
	 **********************************************/
	hist := history.NewManager(st, engine.SheetsChanged)

	handler, err := handler.NewHandler(cfg, st, engine, hist, cache)
	if err != nil {
		logger.Error("无法创建 handler", "error", err)
		return
	}
	handler.RegisterRoutes()

	/**********************************************
	 * 启动 HTTP 服务器
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      handler.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("正在启动服务器...", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("无法启动服务器", slog.String("error", err.Error()))
			return
		}
	}()

	<-quit
	logger.Info("正在关闭服务器...")

	ctx, cancel = context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("关闭服务器失败", slog.String("error", err.Error()))
	}

	// 浏览器里关掉标签页会丢掉防抖窗口内的改动，
	// 服务端优雅退出时有机会补一次最终刷新
	engine.Scheduler().Cancel()
	engine.Flush(ctx)

	logger.Info("服务器已成功关闭")
}

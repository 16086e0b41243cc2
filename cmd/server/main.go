package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"sudooom.im.campus/internal/auth"
	"sudooom.im.campus/internal/config"
	"sudooom.im.campus/internal/erp"
	"sudooom.im.campus/internal/health"
	"sudooom.im.campus/internal/hub"
	"sudooom.im.campus/internal/presence"
	"sudooom.im.campus/internal/server"
	"sudooom.im.campus/internal/snowflake"
	"sudooom.im.campus/internal/store"
)

func main() {
	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// 加载配置
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接数据库：连不上不是致命错误，进程切换到兜底模式继续服务
	var durable store.Store
	db := connectDatabase(ctx, cfg.Database, logger)
	if db != nil {
		pg := store.NewPostgres(db)
		initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := pg.InitSchema(initCtx); err != nil {
			logger.Warn("Schema init failed, running in fallback mode", "error", err)
			db.Close()
			db = nil
		} else {
			durable = pg
			logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)
		}
		initCancel()
	}
	if db != nil {
		defer db.Close()
	}

	// 进程内镜像：持久后端缺席时用快照文件接续上一次的状态
	mirror := store.NewMemory(cfg.Storage.SnapshotFile)
	if durable == nil {
		logger.Warn("Durable store unreachable, running in fallback mode")
		if err := mirror.LoadSnapshot(); err != nil {
			logger.Error("Failed to load snapshot", "path", cfg.Storage.SnapshotFile, "error", err)
		}
	}
	adapter := store.NewFallback(durable, mirror, cfg.Database.QueryTimeout)

	// Redis 在线状态：同样可选
	redisClient := connectRedis(ctx, cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	tracker := presence.NewTracker(redisClient)

	// 装配核心组件
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.AccessExpire)
	authority := auth.NewAuthority(adapter)
	groupIDs := snowflake.NewNode(1)
	chatHub := hub.New(adapter, authority, tracker, groupIDs)
	erpClient := erp.NewClient(cfg.ERP)

	gateway := server.NewGateway(chatHub, tokens, cfg.Server.AllowedOrigins)
	authHandler := server.NewAuthHandler(erpClient, adapter, chatHub, tokens)
	userHandler := server.NewUserHandler(adapter, tracker)
	groupHandler := server.NewGroupHandler(adapter, chatHub)
	messageHandler := server.NewMessageHandler(adapter, authority)
	imageHandler := server.NewImageHandler(erpClient)
	healthChecker := health.NewChecker(db, redisClient)

	r := server.SetupRouter(cfg, tokens, gateway,
		authHandler, userHandler, groupHandler, messageHandler, imageHandler, healthChecker)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		logger.Info("Server started", "name", cfg.App.Name, "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	cancel()
	logger.Info("Server stopped")
}

// connectDatabase 连接 PostgreSQL，失败返回 nil
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) *pgxpool.Pool {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Warn("Invalid database config", "error", err)
		return nil
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Warn("Failed to create database pool", "error", err)
		return nil
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := db.Ping(pingCtx); err != nil {
		logger.Warn("Database unreachable", "host", cfg.Host, "error", err)
		db.Close()
		return nil
	}

	return db
}

// connectRedis 连接 Redis，失败返回 nil（在线状态跟踪随之禁用）
func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) *redis.Client {
	if cfg.Host == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unreachable, presence tracking disabled", "host", cfg.Host, "error", err)
		client.Close()
		return nil
	}

	logger.Info("Connected to Redis", "host", cfg.Host)
	return client
}

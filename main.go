package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/streamverse/realtime-gateway/global"
	"github.com/streamverse/realtime-gateway/logger"
	"github.com/streamverse/realtime-gateway/middleware"
	"github.com/streamverse/realtime-gateway/service/chat"
	"github.com/streamverse/realtime-gateway/service/kafka"
	"github.com/streamverse/realtime-gateway/service/natsx"
	"github.com/streamverse/realtime-gateway/service/storage"
	storageredis "github.com/streamverse/realtime-gateway/service/storage/redis"
	"github.com/streamverse/realtime-gateway/tools/ids"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Infof("no .env file, using process environment")
	}
	cfg := global.Load()
	logger.SetLevel(cfg.Logging.Level)
	defer logger.Sync()

	ids.SetNodeID(1)

	// ---- 外部 sink，每个都可按配置缺席 ----

	var presence *storage.PresenceStore
	if cfg.Redis.Addr != "" {
		if err := storageredis.Init(storageredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}); err != nil {
			logger.Errorf("[redis] init failed: %v", err)
			os.Exit(1)
		}
		presence = storage.NewPresenceStore(storageredis.Client(), cfg.GatewayID, cfg.Redis.TTL)
		defer func() { _ = storageredis.Close() }()
	}

	var archiver *kafka.Archiver
	if len(cfg.Kafka.Brokers) > 0 {
		a, err := kafka.NewArchiver(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Errorf("[kafka] init failed: %v", err)
			os.Exit(1)
		}
		archiver = a
		defer func() { _ = archiver.Close() }()
	}

	var notifier *natsx.Notifier
	if cfg.Nats.URL != "" {
		n, err := natsx.NewNotifier(natsx.Config{
			URL:           cfg.Nats.URL,
			Name:          cfg.GatewayID,
			SubjectPrefix: cfg.Nats.SubjectPrefix,
		})
		if err != nil {
			logger.Errorf("[nats] init failed: %v", err)
			os.Exit(1)
		}
		notifier = n
		defer func() { _ = notifier.Close() }()
	}

	sink := chat.NewSinkDispatcher(4, 1024, nilArchiver(archiver), nilNotifier(notifier), nilPresence(presence))
	defer sink.Close()

	// ---- 网关 ----

	gw := chat.NewServer(chat.Options{
		GatewayID:      cfg.GatewayID,
		JWTSecret:      []byte(cfg.JWT.SecretKey),
		AllowedOrigins: cfg.WS.AllowedOrigins,
		AuthTimeout:    cfg.WS.AuthTimeout,
		PingInterval:   cfg.WS.PingInterval,
		IdleTimeout:    cfg.WS.IdleTimeout,
		WriteTimeout:   cfg.WS.WriteTimeout,
		SendQueueSize:  cfg.WS.SendQueueSize,
		MaxBodyBytes:   cfg.Limits.MaxBodyBytes,
		RateBurst:      cfg.Limits.RateBurst,
		RateInterval:   cfg.Limits.RateInterval,
		MaxViolations:  cfg.Limits.MaxViolations,
		MaxQueueDrops:  cfg.Limits.MaxQueueDrops,
	}, sink)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ws", middleware.Origin(cfg.WS.AllowedOrigins), gw.HandleWS)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/stats", func(c *gin.Context) {
		conns, rooms, members := gw.Stats()
		c.JSON(http.StatusOK, gin.H{"connections": conns, "rooms": rooms, "members": members})
	})

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  0, // websocket 长连接不能套用普通读超时
		WriteTimeout: 0,
	}

	go func() {
		logger.Infof("[http] gateway %s listening on %s", cfg.GatewayID, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("[http] server failed: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("[http] shutting down")
	if err := gw.Shutdown(10 * time.Second); err != nil {
		logger.Warnf("[ws] shutdown timed out: %v", err)
	}
	_ = srv.Close()
}

// 接口断言要避开 typed-nil：只有实例真的存在才交给 dispatcher

func nilArchiver(a *kafka.Archiver) chat.MessageArchiver {
	if a == nil {
		return nil
	}
	return a
}

func nilNotifier(n *natsx.Notifier) chat.PresenceNotifier {
	if n == nil {
		return nil
	}
	return n
}

func nilPresence(p *storage.PresenceStore) chat.PresenceStore {
	if p == nil {
		return nil
	}
	return p
}

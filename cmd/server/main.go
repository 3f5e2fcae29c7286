package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"flashfeed/internal/auth"
	"flashfeed/internal/config"
	"flashfeed/internal/db"
	"flashfeed/internal/middleware"
	"flashfeed/internal/router"
	"flashfeed/internal/services"
	"flashfeed/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}
	cfg := config.Load()
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Database
	conn := db.Init(cfg.DatabaseURL)

	cache, err := utils.NewCache[string, uint](cfg.LookupCacheSize, cfg.LookupCacheTTL)
	if err != nil {
		log.Fatalf("Failed to create lookup cache: %v", err)
	}

	// 活动事件：配置了 Kafka 就投递，开发环境打日志，否则丢弃
	var dispatcher *services.Dispatcher
	switch {
	case len(cfg.KafkaBrokers) > 0:
		dispatcher = services.NewDispatcher(services.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic), 1000)
		log.Printf("Publishing activity to kafka topic %s", cfg.KafkaTopic)
	case cfg.IsDevelopment():
		dispatcher = services.NewDispatcher(services.LogSink{}, 1000)
	}
	var events services.Publisher
	if dispatcher != nil {
		events = dispatcher
	}

	lookup := services.NewLookup(conn, cache)
	toggler := services.NewToggler(conn, lookup, events)
	if cfg.ForbidSelfEdges {
		toggler.Guard = services.ForbidSelfEdges
	}
	feed := services.NewFeed(conn, lookup, cfg.PageSize)

	// 限流依赖 Redis，未配置或连不上时不限流
	var limiter middleware.Limiter
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Printf("⚠️ Redis unavailable at %s, rate limiting disabled: %v", cfg.RedisAddr, err)
		} else {
			limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimit, cfg.RateWindow)
		}
	}

	// Initialize Gin
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	router.RegisterRoutes(r, router.Deps{
		Tokens:         auth.NewTokenManager(cfg.SecretKey, cfg.TokenTTL),
		Users:          services.NewUsers(conn, lookup, cfg.BcryptCost),
		Posts:          services.NewPosts(conn, lookup, feed, events),
		Comments:       services.NewComments(conn, lookup, events),
		Feed:           feed,
		Toggles:        toggler,
		Limiter:        limiter,
		PageSize:       cfg.PageSize,
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSOrigins,
		Ready: func() error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return sqlDB.PingContext(ctx)
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("flashfeed server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
	if dispatcher != nil {
		if err := dispatcher.Close(); err != nil {
			log.Printf("Failed to close event sink: %v", err)
		}
	}
	if rdb != nil {
		rdb.Close()
	}
	if sqlDB, err := conn.DB(); err == nil {
		sqlDB.Close()
	}
}

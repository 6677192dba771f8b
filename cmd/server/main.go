package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Anselwang99/mateFinder/internal/cache"
	"github.com/Anselwang99/mateFinder/internal/config"
	"github.com/Anselwang99/mateFinder/internal/events"
	"github.com/Anselwang99/mateFinder/internal/handler"
	"github.com/Anselwang99/mateFinder/internal/hub"
	"github.com/Anselwang99/mateFinder/internal/media"
	"github.com/Anselwang99/mateFinder/internal/presence"
	"github.com/Anselwang99/mateFinder/internal/service"
	"github.com/Anselwang99/mateFinder/internal/store"
	"github.com/Anselwang99/mateFinder/pkg/database"
	"github.com/Anselwang99/mateFinder/pkg/jwt"
	"github.com/Anselwang99/mateFinder/pkg/log"
	"github.com/Anselwang99/mateFinder/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log.Init(cfg.Log)
	l := log.L()

	// run owns the boot sequence so its defers release the redis and
	// kafka clients on every exit path; l.Fatal here would skip them.
	if err := run(cfg, l); err != nil {
		l.Fatal().Err(err).Msg("server exited with error")
	}
	l.Info().Msg("server exited")
}

func run(cfg *config.Config, l zerolog.Logger) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	chatStore := store.NewGormChatStore(db)
	if err := chatStore.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// The presence registry is empty after a restart, so every user is
	// presumed offline until they reconnect.
	if err := chatStore.MarkAllOffline(context.Background()); err != nil {
		return fmt.Errorf("reset presence flags: %w", err)
	}

	var userCache cache.UserCache = cache.NewNoopUserCache()
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisUserCache(cfg.Redis.RedisConfig, "matefinder:user")
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		userCache = redisCache
	}
	defer userCache.Close()

	var producer events.MessageProducer = events.NewNoopProducer()
	if cfg.Kafka.Enabled {
		kafkaProducer, err := events.NewConfluentProducer(cfg.Kafka)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		producer = kafkaProducer
	}
	defer producer.Close()

	var mediaStorage storage.Storage
	switch cfg.Storage.Driver {
	case "s3":
		mediaStorage, err = storage.NewS3Storage(context.Background(), cfg.Storage.S3)
		if err != nil {
			return fmt.Errorf("initialize s3 storage: %w", err)
		}
	default:
		mediaStorage, err = storage.NewLocalStorage(cfg.Storage.Local)
		if err != nil {
			return fmt.Errorf("initialize local storage: %w", err)
		}
	}

	tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Duration, cfg.JWT.Issuer)
	if err != nil {
		return fmt.Errorf("create token manager: %w", err)
	}

	wsOpts := hub.Options{
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingInterval:   cfg.WebSocket.PingInterval,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
	}
	h := hub.NewHub(wsOpts)
	go h.Run()

	registry := presence.NewRegistry()
	mediaService := media.NewService(mediaStorage, cfg.Media)
	chatService := service.NewChatService(chatStore, userCache, tokens, registry, h, producer, cfg.Cache.UserTTL)
	userService := service.NewUserService(chatStore, userCache, tokens, cfg.Cache.UserTTL)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.CORS())
	router.Use(log.GinMiddleware(l))

	authMiddleware := handler.NewAuthMiddleware(tokens)
	handler.NewHandler(userService, chatService, mediaService, authMiddleware).RegisterRoutes(router)
	handler.NewWSHandler(h, chatService, wsOpts).RegisterRoutes(router)

	// Local storage has no CDN in front of it, so serve uploads directly.
	if cfg.Storage.Driver != "s3" {
		router.Static("/media", cfg.Storage.Local.BaseDir)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info().Str("addr", addr).Msg("starting matefinder server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		l.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

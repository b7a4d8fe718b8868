package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/cache"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/config"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/domain"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/handler"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/hub"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/identity"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/repository"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/internal/service"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/database"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/jwt"
	"github.com/Yessine-BenHamroun/SmartCampus-sub000/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{
		Level:       cfg.Log.Level,
		ServiceName: "chat-core",
	})
	logger := log.L()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("auth.jwt_secret is required")
	}

	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.AutoMigrate(db,
		&domain.RoomModel{},
		&domain.ParticipantModel{},
		&domain.MessageModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Redis backs the presence projection and the history page cache. Both
	// are rebuildable, so a missing redis degrades to store-only operation
	// instead of refusing to start.
	var presenceCache cache.PresenceCache
	var historyCache cache.HistoryCache

	if pc, err := cache.NewRedisPresenceCache(cfg.Redis); err != nil {
		logger.Warn().Err(err).Msg("presence projection disabled, redis unavailable")
	} else {
		presenceCache = pc
		defer pc.Close()
	}
	if hc, err := cache.NewRedisHistoryCache(cfg.Redis); err != nil {
		logger.Warn().Err(err).Msg("history cache disabled, redis unavailable")
	} else {
		historyCache = hc
		defer hc.Close()
	}

	h := hub.NewHub()
	go h.Run()

	roomRepo := repository.NewGormRoomRepository(db)
	participantRepo := repository.NewGormParticipantRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)

	presenceSvc := service.NewPresenceService(participantRepo, h, presenceCache)
	chatSvc := service.NewChatService(h, presenceSvc, messageRepo, roomRepo, historyCache)
	historySvc := service.NewHistoryService(messageRepo, historyCache, cfg.Cache.HistoryTTL)
	roomSvc := service.NewRoomService(roomRepo, participantRepo)

	jwtManager := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	provider := identity.NewJWTProvider(jwtManager)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(log.GinMiddleware(logger))

	handler.NewHTTPHandler(roomSvc, historySvc, presenceSvc, provider).RegisterRoutes(router)
	handler.NewWSHandler(h, chatSvc, provider, roomRepo, cfg.WebSocket).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("chat core listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("stopped")
}

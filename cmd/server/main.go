package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/agrolink/agrolink-backend/internal/config"
	"github.com/agrolink/agrolink-backend/internal/db"
	"github.com/agrolink/agrolink-backend/internal/gateway"
	httpHandlers "github.com/agrolink/agrolink-backend/internal/http/handlers"
	httpRouter "github.com/agrolink/agrolink-backend/internal/http/router"
	"github.com/agrolink/agrolink-backend/internal/logger"
	"github.com/agrolink/agrolink-backend/internal/repository"
	"github.com/agrolink/agrolink-backend/internal/service"
	"github.com/agrolink/agrolink-backend/internal/storage"
	"github.com/agrolink/agrolink-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Вспомогательные сервисы.
	tokens := service.NewTokenVerifier(cfg.JWTSecret)
	stripeClient := gateway.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	diskStorage, err := storage.NewDiskStorage(cfg.MediaStoragePath)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	contractRepo := repository.NewContractRepository(dbConn)
	escrowRepo := repository.NewEscrowRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	profileRepo := repository.NewProfileRepository(dbConn)
	conversationRepo := repository.NewConversationRepository(dbConn)
	mediaRepo := repository.NewMediaRepository(dbConn)
	logisticsRepo := repository.NewLogisticsRepository(dbConn)
	ratingRepo := repository.NewRatingRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()

	// Сервисы.
	notificationService := service.NewNotificationService(notificationRepo, hub)
	contractService := service.NewContractService(contractRepo, escrowRepo, profileRepo, notificationService, cfg.CommissionRate)
	bidService := service.NewBidService(contractRepo, profileRepo, conversationRepo, notificationService, cfg.CommissionRate)
	escrowService := service.NewEscrowService(escrowRepo, contractRepo, stripeClient, notificationService, cfg.CommissionRate)
	conversationService := service.NewConversationService(conversationRepo, hub, notificationService)
	profileService := service.NewProfileService(profileRepo)
	mediaService := service.NewMediaService(mediaRepo, contractRepo, diskStorage, cfg.MaxUploadSizeMB)
	logisticsService := service.NewLogisticsService(logisticsRepo, contractRepo, notificationService)
	ratingService := service.NewRatingService(ratingRepo, contractRepo, profileRepo)

	// HTTP хэндлеры.
	contractHandler := httpHandlers.NewContractHandler(contractService)
	bidHandler := httpHandlers.NewBidHandler(bidService)
	escrowHandler := httpHandlers.NewEscrowHandler(escrowService)
	webhookHandler := httpHandlers.NewWebhookHandler(escrowService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	profileHandler := httpHandlers.NewProfileHandler(profileService)
	conversationHandler := httpHandlers.NewConversationHandler(conversationService)
	mediaHandler := httpHandlers.NewMediaHandler(mediaService, diskStorage)
	logisticsHandler := httpHandlers.NewLogisticsHandler(logisticsService)
	ratingHandler := httpHandlers.NewRatingHandler(ratingService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokens)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(
		cfg,
		contractHandler,
		bidHandler,
		escrowHandler,
		webhookHandler,
		notificationHandler,
		profileHandler,
		conversationHandler,
		mediaHandler,
		logisticsHandler,
		ratingHandler,
		wsHandler,
		healthHandler,
		tokens,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/brickrate-api/internal/cache"
	"github.com/cleberrangel/brickrate-api/internal/config"
	"github.com/cleberrangel/brickrate-api/internal/database"
	"github.com/cleberrangel/brickrate-api/internal/handler"
	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/middleware"
	"github.com/cleberrangel/brickrate-api/internal/migration"
	"github.com/cleberrangel/brickrate-api/internal/repository"
	"github.com/cleberrangel/brickrate-api/internal/service"
	"github.com/cleberrangel/brickrate-api/internal/websocket"
)

const Version = "1.0.0"

// store é o backend de chave-valor com suporte a health check
type store interface {
	repository.KeyValueStore
	repository.Pinger
}

func main() {
	// Carrega configurações
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Erro ao carregar configurações: %v", err)
	}

	// Inicializa logger estruturado
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	log := logger.Global()
	log.Info().
		Str("version", Version).
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("log_json", cfg.LogJSON).
		Str("store", cfg.StoreBackend).
		Msg("BrickRate API iniciando")

	kv, db, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Erro ao inicializar armazenamento")
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositórios e serviços
	quotes := repository.NewQuoteStore(kv)
	users := repository.NewUserRepository(kv)
	sessions := repository.NewSessionRepository(kv)

	state := cache.NewCache(service.DefaultStateTTL)
	defer state.Stop()

	authService := service.NewAuthService(users, sessions, cfg.SessionTTL)
	authService.StartSessionCleanup(ctx, time.Hour)

	estimateService := service.NewEstimateService(quotes, state, cfg.EstimateDelay)

	sessionMiddleware := middleware.NewSessionMiddleware(authService, middleware.SessionConfig{
		CookieHTTPOnly: true,
		CookieSecure:   cfg.GinMode == gin.ReleaseMode,
		Duration:       cfg.SessionTTL,
	})
	limiter := middleware.NewRateLimiter(cfg.CommandRatePerMinute)

	hub := websocket.NewHub(handler.NewCommandHandler(estimateService, authService, limiter))
	go hub.Run(ctx)

	queueConfig := service.DefaultQueueConfig()
	queueConfig.Workers = cfg.WebhookWorkers
	queueConfig.MaxAttempts = cfg.WebhookMaxAttempts
	deliveries := service.NewDeliveryQueue(service.NewWebhookService(cfg.WebhookAllowPrivate), handler.NewDeliveryNotifier(hub), queueConfig)
	deliveries.Start(ctx)

	// Configura modo do Gin
	gin.SetMode(cfg.GinMode)

	router := handler.NewRouter(handler.RouterDeps{
		Version:    Version,
		Store:      kv,
		DB:         db,
		Auth:       authService,
		Estimates:  estimateService,
		Deliveries: deliveries,
		Sessions:   sessionMiddleware,
		Limiter:    limiter,
		Hub:        hub,
		AdminToken: cfg.AdminToken,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Servidor iniciando")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Erro ao iniciar servidor")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Encerrando servidor")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Erro no shutdown do servidor")
	}
	deliveries.Wait()
}

// openStore escolhe o backend conforme STORE_BACKEND; db só é não-nil para postgres
func openStore(ctx context.Context, cfg *config.Config) (store, *sql.DB, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return repository.NewMemoryStore(), nil, nil

	case config.StorePostgres:
		db, err := database.Connect(ctx, database.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := migration.NewMigrator(db).Run(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("erro ao executar migrations: %w", err)
		}
		return repository.NewPostgresStore(db), db, nil

	default:
		fs, err := repository.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	}
}

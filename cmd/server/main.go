package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"riskguard/internal/api"
	"riskguard/internal/config"
	"riskguard/internal/engine"
	"riskguard/internal/platform"
	"riskguard/internal/repository"
	"riskguard/internal/service"
	"riskguard/internal/websocket"
)

func main() {
	// .env удобен для локальной разработки; в production переменные
	// приходят из окружения и файл просто отсутствует
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env file")
	}

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	// Инициализация репозиториев
	limitRepo := repository.NewLimitRepository(db)
	eventRepo := repository.NewEventRepository(db)
	sourceRepo := repository.NewSourceRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	accountRepo := repository.NewAccountRepository(db)

	// Мост торговой платформы: снимки счёта, закрытие позиций,
	// отключение источников
	bridge := platform.NewBridge(platform.BridgeConfig{
		BaseURL:   cfg.Bridge.BaseURL,
		RateLimit: cfg.Bridge.RateLimit,
		Burst:     cfg.Bridge.Burst,
		HTTP:      platform.DefaultHTTPClientConfig(),
	}, accountRepo, []byte(cfg.Security.EncryptionKey))

	// Telegram уведомления (пустой токен отключает доставку)
	telegram := platform.NewTelegramNotifier(platform.TelegramConfig{
		BotToken: cfg.Telegram.BotToken,
		HTTP:     platform.DefaultHTTPClientConfig(),
	}, accountRepo)

	// WebSocket hub для real-time обновлений дашборда
	hub := websocket.NewHub()
	go hub.Run()

	// Канал уведомлений: исполнитель пишет неблокирующе, диспетчер доставляет
	notifications := make(chan *engine.Notification, 128)

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	dispatcher := engine.NewDispatcher(notifications, telegram, hub)
	go dispatcher.Run(dispatcherCtx)

	// Движок лимитов: исполнитель и периодический монитор
	executor := engine.NewExecutor(
		limitRepo,
		eventRepo,
		sourceRepo,
		positionRepo,
		bridge,
		bridge,
		notifications,
		hub,
		engine.ExecutorConfig{
			CloseTimeout:   cfg.Monitor.CloseTimeout,
			DisableTimeout: cfg.Monitor.DisableTimeout,
		},
	)

	monitor := engine.NewMonitor(limitRepo, bridge, executor, engine.NewLockArena(), engine.MonitorConfig{
		Interval:        cfg.Monitor.Interval,
		SnapshotTimeout: cfg.Monitor.SnapshotTimeout,
	})

	monitorCtx, stopMonitorCtx := context.WithCancel(context.Background())
	go monitor.Start(monitorCtx)

	// Инициализация сервисов
	limitService := service.NewLimitService(limitRepo, eventRepo)
	eventService := service.NewEventService(eventRepo)
	checkService := service.NewCheckService(limitRepo)
	sourceService := service.NewSourceService(sourceRepo)

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		LimitService:   limitService,
		EventService:   eventService,
		CheckService:   checkService,
		SourceService:  sourceService,
		Hub:            hub,
		AdminTokenHash: cfg.Security.AdminTokenHash,
	}

	// Настройка HTTP роутера
	router := api.SetupRoutes(deps)

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server failed: %v", err)
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server failed: %v", err)
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Сначала останавливается монитор: Stop дожидается завершения
	// enforcement текущего цикла, уже отправленные команды закрытия
	// не бросаются на полпути
	monitor.Stop()
	stopMonitorCtx()
	stopDispatcher()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

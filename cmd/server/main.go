package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"

	"github.com/srivastava-utkarsh/ticket-booking/internal/activities"
	"github.com/srivastava-utkarsh/ticket-booking/internal/booking"
	"github.com/srivastava-utkarsh/ticket-booking/internal/config"
	"github.com/srivastava-utkarsh/ticket-booking/internal/database"
	"github.com/srivastava-utkarsh/ticket-booking/internal/events"
	"github.com/srivastava-utkarsh/ticket-booking/internal/handlers"
	"github.com/srivastava-utkarsh/ticket-booking/internal/middleware"
	"github.com/srivastava-utkarsh/ticket-booking/internal/router"
	"github.com/srivastava-utkarsh/ticket-booking/internal/service"
	"github.com/srivastava-utkarsh/ticket-booking/internal/websocket"
	"github.com/srivastava-utkarsh/ticket-booking/internal/workflows"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Seats and wallets
	registry := booking.Bootstrap(booking.DefaultSections, cfg.SeatsPerSection, cfg.UserCount, cfg.WalletBalance)
	engine := booking.NewEngine(registry, cfg.TicketPrice,
		booking.WithLockWait(cfg.LockWait),
		booking.WithTimeout(cfg.BookingTimeout),
		booking.WithLogger(logger),
	)

	// Ledger
	var ledger database.Ledger = database.NewMemoryLedger()
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		repo := database.NewRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
		ledger = repo
		logger.Info("Connected to database")
	}

	// Ticket events
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, logger)
		if err != nil {
			logger.Error("Failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
		logger.Info("Publishing ticket events", "queue", events.QueueName)
	}

	// Seat updates over WebSocket
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	svc := service.NewService(registry, engine,
		service.WithLedger(ledger),
		service.WithPublisher(publisher),
		service.WithNotifier(hub),
		service.WithLogger(logger),
		service.WithRoute(cfg.From, cfg.To),
	)

	// Seat changes through Temporal when a server is configured
	if cfg.TemporalHost != "" {
		temporalClient, err := client.Dial(client.Options{
			HostPort: cfg.TemporalHost,
			Logger:   logger,
		})
		if err != nil {
			logger.Error("Failed to connect to Temporal", "host", cfg.TemporalHost, "error", err)
			os.Exit(1)
		}
		defer temporalClient.Close()

		w := workflows.NewWorker(temporalClient, cfg.TemporalTaskQueue, activities.NewActivities(svc))
		if err := w.Start(); err != nil {
			logger.Error("Failed to start Temporal worker", "error", err)
			os.Exit(1)
		}
		defer w.Stop()

		svc.SetSeatChanger(workflows.NewChanger(temporalClient, cfg.TemporalTaskQueue))
		logger.Info("Seat changes run on Temporal", "host", cfg.TemporalHost, "taskQueue", cfg.TemporalTaskQueue)
	}

	// Rate limiting
	var scripter redis.Scripter
	if cfg.RedisAddr != "" {
		rdb, err := middleware.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("Redis unavailable, rate limiting disabled", "error", err)
		} else {
			defer rdb.Close()
			scripter = rdb
		}
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimit, scripter, logger)

	h := handlers.NewHandler(svc)
	r := router.SetupRouter(h, hub, limiter)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Ticket booking server starting",
			"port", cfg.Port,
			"seats", len(registry.Seats()),
			"users", cfg.UserCount,
			"price", cfg.TicketPrice,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

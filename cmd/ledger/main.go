package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"finledger/internal/app/auth"
	app_ledger "finledger/internal/app/ledger"
	app_users "finledger/internal/app/users"
	"finledger/internal/config"
	ledger_http "finledger/internal/handler/http/ledger"
	auth_middleware "finledger/internal/handler/http/middleware"
	users_http "finledger/internal/handler/http/users"
	"finledger/internal/infrastructure/database"
	kafka_infra "finledger/internal/infrastructure/kafka"
	"finledger/internal/jwtutil"
	"finledger/internal/outbox"
	outbox_postgres "finledger/internal/repository/outbox_repo/postgres"
	statements_postgres "finledger/internal/repository/statements_repo/postgres"
	users_postgres "finledger/internal/repository/users_repo/postgres"
	"finledger/internal/storage"
)

func ensureKafkaTopic(ctx context.Context, brokerURLs []string, topic string, logger *zap.Logger) error {
	conn, err := kafka.DialContext(ctx, "tcp", brokerURLs[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka broker for admin operations: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to get kafka controller: %w", err)
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		if err == kafka.TopicAlreadyExists {
			logger.Info("Kafka topic already exists, skipping creation", zap.String("topic", topic))
			return nil
		}
		return fmt.Errorf("failed to create kafka topic: %w", err)
	}
	logger.Info("Kafka topic ensured", zap.String("topic", topic))
	return nil
}

func connectWithRetry(cfg database.DBConfig, logger *zap.Logger) (*sql.DB, error) {
	const maxRetries = 10
	const retryDelay = 5 * time.Second

	var db *sql.DB
	var err error
	for i := 0; i < maxRetries; i++ {
		db, err = database.NewPostgresDB(cfg)
		if err == nil {
			return db, nil
		}
		logger.Warn("Failed to connect to database, retrying",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, err
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	logger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("Ledger service starting...")

	db, err := connectWithRetry(database.DBConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.Name,
		SSLMode:  cfg.DBConfig.SSLMode,
	}, logger)
	if err != nil {
		logger.Fatal("Could not connect to database after multiple retries", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL database")

	m, err := migrate.New(cfg.MigrationsPath, cfg.GetDBMigrationConnectionString())
	if err != nil {
		logger.Fatal("Failed to create migrate instance", zap.Error(err))
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.Info("Database migrations completed")

	topicCtx, topicCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer topicCancel()
	if err := ensureKafkaTopic(topicCtx, cfg.GetKafkaBrokers(), cfg.KafkaStatementEventsTopic, logger); err != nil {
		logger.Fatal("Failed to ensure Kafka topic", zap.Error(err))
	}

	txManager := storage.NewTxManager(db)
	userRepository := users_postgres.NewUserRepository()
	statementRepository := statements_postgres.NewStatementRepository()
	outboxRepository := outbox_postgres.NewOutboxRepository()

	tokenManager := jwtutil.NewManager(cfg.JWTSecret, cfg.JWTTokenTTL)

	ledgerService := app_ledger.NewLedgerService(
		txManager,
		userRepository,
		statementRepository,
		outboxRepository,
		logger.With(zap.String("component", "LedgerService")),
	)
	userService := app_users.NewUserService(
		txManager,
		userRepository,
		logger.With(zap.String("component", "UserService")),
	)
	authService := auth.NewAuthService(
		txManager,
		userRepository,
		tokenManager,
		logger.With(zap.String("component", "AuthService")),
	)

	authenticator := auth_middleware.Authenticator(tokenManager)

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ledger service is healthy!"))
	})
	users_http.RegisterRoutes(router, userService, authService, authenticator, logger)
	ledger_http.RegisterRoutes(router, ledgerService, authenticator, logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}

	producer := kafka_infra.NewProducer(
		cfg.GetKafkaBrokers(),
		cfg.KafkaStatementEventsTopic,
		logger.With(zap.String("component", "KafkaProducer")),
	)
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}()

	outboxProcessor := outbox.NewProcessor(
		db,
		outboxRepository,
		producer,
		cfg.OutboxPollInterval,
		cfg.OutboxPollTimeout,
		logger.With(zap.String("component", "OutboxProcessor")),
	)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		logger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go outboxProcessor.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down application...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("HTTP server gracefully shut down")
	}

	logger.Info("Application gracefully shut down")
}

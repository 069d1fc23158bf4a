package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gartstein/timetrack/internal/timesheet/auth"
	"github.com/gartstein/timetrack/internal/timesheet/db"
	"github.com/gartstein/timetrack/internal/timesheet/events"
	"github.com/gartstein/timetrack/internal/timesheet/handlers"
	"github.com/gartstein/timetrack/internal/timesheet/workflow"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config struct for YAML configuration
type Config struct {
	HTTPPort      int      `yaml:"HTTP_PORT"`
	DBHost        string   `yaml:"DB_HOST"`
	DBPort        int      `yaml:"DB_PORT"`
	DBUser        string   `yaml:"DB_USER"`
	DBPassword    string   `yaml:"DB_PASSWORD"`
	DBName        string   `yaml:"DB_NAME"`
	DBSSLMode     string   `yaml:"DB_SSLMODE"`
	KafkaBrokers  []string `yaml:"KAFKA_BROKERS"`
	JWTSecret     string   `yaml:"JWT_SECRET"`
	Topic         string   `yaml:"TOPIC"`
	AdminPassword string   `yaml:"ADMIN_PASSWORD"`
}

func main() {
	logger := initLogger()
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {
			logger.Error("failed to sync logger", zap.Error(err))
		}
	}(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	repo, err := db.NewRepository(initDatabase(cfg))
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}()

	if _, err := repo.EnsureSeedData(context.Background(), cfg.AdminPassword); err != nil {
		logger.Fatal("failed to seed default data", zap.Error(err))
	}

	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	if err != nil {
		logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer := startNotifier(ctx, cfg, logger)
	defer consumer.Close()

	workflowSvc := workflow.NewService(repo, producer, logger)
	authSvc := auth.NewService(repo, cfg.JWTSecret, 24*time.Hour)

	handler := handlers.NewHandler(workflowSvc, authSvc, logger)
	server := handlers.NewServer(cfg.HTTPPort, handler, cfg.JWTSecret, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// loadConfig loads configuration from config.yaml, or from the path in
// CONFIG_PATH if set.
func loadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = filepath.Join("config", "config.yaml")
	}
	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg Config
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, err
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "change-me"
	}
	return &cfg, nil
}

// startNotifier consumes entry events and surfaces rejections to the
// owner. Notification delivery is just a log line for now; the consumer
// group keeps its offset so a real sender can replace it in place.
func startNotifier(ctx context.Context, cfg *Config, logger *zap.Logger) *events.Consumer {
	consumer := events.NewConsumer(cfg.KafkaBrokers, "timetrack-notifications", cfg.Topic, logger)
	consumer.RegisterHandler(func(_ context.Context, event events.Event) error {
		if event.Type != events.EntryRejected {
			return nil
		}
		logger.Info("entry rejected, notifying owner",
			zap.String("entry_id", event.Entry.ID.String()),
			zap.String("user_id", event.Entry.UserID.String()),
			zap.String("reason", event.Entry.ManagerNotes),
		)
		return nil
	})
	consumer.Start(ctx)
	return consumer
}

// initDatabase builds the database connection settings.
func initDatabase(cfg *Config) *db.Config {
	return &db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}
}

// waitForShutdown blocks until an interrupt or SIGTERM is received,
// then drains the server.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down server", zap.Error(err))
	}
	logger.Info("server stopped properly")
}

package app

import (
	"os"
	"time"

	"go-expense/internal/approval"
	"go-expense/internal/approvalrule"
	"go-expense/internal/expense"
	"go-expense/internal/notification"
	"go-expense/internal/shared/connection"
	"go-expense/internal/user"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Config struct {
	Port         string
	DBHost       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBPort       string
	DBSSLMode    string
	RedisAddr    string
	KafkaBroker  string
	KafkaGroupID string
}

func LoadConfig() Config {
	return Config{
		Port:         envOr("PORT", "8080"),
		DBHost:       envOr("DB_HOST", "localhost"),
		DBUser:       envOr("DB_USER", "postgres"),
		DBPassword:   envOr("DB_PASSWORD", "postgres"),
		DBName:       envOr("DB_NAME", "expense"),
		DBPort:       envOr("DB_PORT", "5432"),
		DBSSLMode:    envOr("DB_SSLMODE", "disable"),
		RedisAddr:    envOr("REDIS_ADDR", "localhost:6379"),
		KafkaBroker:  envOr("KAFKA_BROKER", "localhost:9092"),
		KafkaGroupID: envOr("KAFKA_GROUP_ID", "expense-notifications"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// App bundles the process-wide connections shared by the api, worker and
// consumer entrypoints.
type App struct {
	Cfg    Config
	DB     *gorm.DB
	Redis  *redis.Client
	Kafka  *kafkago.Writer
	Logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*App, error) {
	db, err := connection.ConnectGORMWithRetry(
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
		5,
	)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&user.User{},
		&expense.Expense{},
		&approvalrule.ApprovalRule{},
		&approvalrule.RuleApprover{},
		&approval.ChainApprover{},
		&approval.ApprovalDecision{},
		&notification.Notification{},
	); err != nil {
		return nil, err
	}

	rdb, err := connection.ConnectRedisWithRetry(cfg.RedisAddr, 5)
	if err != nil {
		return nil, err
	}

	writer, err := connection.ConnectKafkaWithRetry(cfg.KafkaBroker, 5)
	if err != nil {
		return nil, err
	}
	writer.WriteTimeout = 10 * time.Second

	return &App{
		Cfg:    cfg,
		DB:     db,
		Redis:  rdb,
		Kafka:  writer,
		Logger: logger,
	}, nil
}

func (a *App) Close() {
	if a.Kafka != nil {
		a.Kafka.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

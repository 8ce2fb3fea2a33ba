package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/vladislavdragonenkov/rms/internal/messaging/kafka"
)

// envPrefix — префикс переменных окружения: RMS_HTTP_ADDR, RMS_STORAGE_DRIVER и т.д.
const envPrefix = "RMS"

// StorageDriver выбирает реализацию хранилища.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
	StorageDriverSQLite   StorageDriver = "sqlite"
	StorageDriverMongo    StorageDriver = "mongo"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string `mapstructure:"http_addr"`
	GRPCAddr    string `mapstructure:"grpc_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	LogLevel    string `mapstructure:"log_level"`

	StorageDriver       StorageDriver `mapstructure:"storage_driver"`
	PostgresDSN         string        `mapstructure:"postgres_dsn"`
	PostgresAutoMigrate bool          `mapstructure:"postgres_auto_migrate"`
	SQLitePath          string        `mapstructure:"sqlite_path"`
	MongoURI            string        `mapstructure:"mongo_uri"`
	MongoDatabase       string        `mapstructure:"mongo_database"`

	// KafkaBrokers пустой — события не публикуются.
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`

	// ReportLookupConcurrency ограничивает параллельные запросы блюд; 0 — без ограничения.
	ReportLookupConcurrency int           `mapstructure:"report_lookup_concurrency"`
	ReportTimeout           time.Duration `mapstructure:"report_timeout"`
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                ":8080",
		GRPCAddr:                ":50051",
		MetricsAddr:             ":9090",
		LogLevel:                "info",
		StorageDriver:           StorageDriverMemory,
		PostgresAutoMigrate:     true,
		SQLitePath:              "data/rms.db",
		MongoDatabase:           "rms",
		KafkaTopic:              kafka.TopicEntityEvents,
		ReportLookupConcurrency: 0,
		ReportTimeout:           30 * time.Second,
	}
}

// LoadConfig читает YAML-файл path (если задан) и переменные окружения RMS_*.
// Незаданные ключи берутся из DefaultConfig.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.KafkaBrokers = normalizeBrokers(cfg.KafkaBrokers)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("http_addr", cfg.HTTPAddr)
	v.SetDefault("grpc_addr", cfg.GRPCAddr)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("storage_driver", string(cfg.StorageDriver))
	v.SetDefault("postgres_dsn", cfg.PostgresDSN)
	v.SetDefault("postgres_auto_migrate", cfg.PostgresAutoMigrate)
	v.SetDefault("sqlite_path", cfg.SQLitePath)
	v.SetDefault("mongo_uri", cfg.MongoURI)
	v.SetDefault("mongo_database", cfg.MongoDatabase)
	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("kafka_topic", cfg.KafkaTopic)
	v.SetDefault("report_lookup_concurrency", cfg.ReportLookupConcurrency)
	v.SetDefault("report_timeout", cfg.ReportTimeout)
}

// Validate проверяет адреса и настройки выбранного хранилища.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if strings.TrimSpace(c.GRPCAddr) == "" {
		errs = append(errs, errors.New("grpc_addr is required"))
	}
	if strings.TrimSpace(c.MetricsAddr) == "" {
		errs = append(errs, errors.New("metrics_addr is required"))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres_dsn is required for postgres storage"))
		}
	case StorageDriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("sqlite_path is required for sqlite storage"))
		}
	case StorageDriverMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			errs = append(errs, errors.New("mongo_uri is required for mongo storage"))
		}
		if strings.TrimSpace(c.MongoDatabase) == "" {
			errs = append(errs, errors.New("mongo_database is required for mongo storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver: %q", c.StorageDriver))
	}

	if len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.KafkaTopic) == "" {
		errs = append(errs, errors.New("kafka_topic is required when kafka_brokers are set"))
	}
	if c.ReportLookupConcurrency < 0 {
		errs = append(errs, errors.New("report_lookup_concurrency must be >= 0"))
	}
	if c.ReportTimeout < 0 {
		errs = append(errs, errors.New("report_timeout must be >= 0"))
	}
	return errors.Join(errs...)
}

func normalizeBrokers(brokers []string) []string {
	out := make([]string, 0, len(brokers))
	for _, broker := range brokers {
		// Значение из окружения может прийти одной строкой через запятую.
		for _, part := range strings.Split(broker, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

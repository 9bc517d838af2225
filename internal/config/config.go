package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Log      Log
	HTTP     HTTPServer
	Postgres Postgres
	Mongo    Mongo `envPrefix:"MONGO_"`
	Kafka    Kafka `envPrefix:"KAFKA_"`
	Auth     Auth
	Otel     Otel `envPrefix:"OTEL_"`

	LowStockThreshold int    `env:"LOW_STOCK_THRESHOLD" envDefault:"5"`
	MigrationsPath    string `env:"MIGRATIONS_PATH" envDefault:"file://migrations"`
	SeedFile          string `env:"SEED_FILE" envDefault:"seed/catalog.yaml"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

func (h HTTPServer) Addr() string {
	return h.Host + ":" + h.Port
}

type Postgres struct {
	URL             string        `env:"POSTGRES_URL,notEmpty"`
	MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
}

type Mongo struct {
	URL      string `env:"URL" envDefault:"mongodb://localhost:27017"`
	Database string `env:"DATABASE" envDefault:"dormdeals"`
}

type Kafka struct {
	Brokers         []string `env:"BROKERS" envSeparator:","`
	OrderTopic      string   `env:"ORDER_TOPIC" envDefault:"order.placed"`
	StockTopic      string   `env:"STOCK_TOPIC" envDefault:"product.stock_low"`
	ConsumerGroupID string   `env:"GROUP_ID" envDefault:"notification-worker"`

	BatchTimeout time.Duration `env:"BATCH_TIMEOUT" envDefault:"20ms"`
	MaxAttempts  int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	RetryBackoff time.Duration `env:"RETRY_BACKOFF" envDefault:"500ms"`
}

// Enabled reports whether events are routed through Kafka instead of the
// in-process notifier.
func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

type Auth struct {
	JWTSecret  string        `env:"JWT_SECRET"`
	JWTTTL     time.Duration `env:"JWT_TTL" envDefault:"720h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`
}

type Otel struct {
	Endpoint    string  `env:"EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure    bool    `env:"EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio float64 `env:"TRACES_SAMPLER_ARG" envDefault:"1"`
	Environment string  `env:"DEPLOYMENT_ENVIRONMENT" envDefault:"development"`
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func NewLogger(w io.Writer, cfg Log) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

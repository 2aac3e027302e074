package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is read from the environment.
type Config struct {
	Port            int           `envconfig:"PORT" default:"3000"`
	CORSOrigin      string        `envconfig:"CORS_ORIGIN" default:"*"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"INFO"`
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"1h"`
	PingInterval    time.Duration `envconfig:"PING_INTERVAL" default:"25s"`
	PongTimeout     time.Duration `envconfig:"PONG_TIMEOUT" default:"60s"`
	MaxMessageBytes int64         `envconfig:"MAX_MESSAGE_BYTES" default:"1000000"`
	SendBuffer      int           `envconfig:"SEND_BUFFER" default:"64"`
	StaticDir       string        `envconfig:"STATIC_DIR"`
	AMQPURL         string        `envconfig:"AMQP_URL"`
	AMQPExchange    string        `envconfig:"AMQP_EXCHANGE" default:"presence.events"`
	AuditRoutingKey string        `envconfig:"AUDIT_ROUTING_KEY" default:"audit.logs"`
	OTLPEndpoint    string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName     string        `envconfig:"SERVICE_NAME" default:"presence-relay"`
	Environment     string        `envconfig:"ENVIRONMENT" default:"development"`
	DebugRoutes     bool          `envconfig:"DEBUG_ROUTES" default:"false"`
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load(files...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges envconfig cannot express.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, errors.New("CLEANUP_INTERVAL must be positive"))
	}
	if c.PingInterval <= 0 || c.PongTimeout <= c.PingInterval {
		errs = append(errs, errors.New("PONG_TIMEOUT must exceed a positive PING_INTERVAL"))
	}
	if c.MaxMessageBytes <= 0 {
		errs = append(errs, errors.New("MAX_MESSAGE_BYTES must be positive"))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("SEND_BUFFER must be positive"))
	}
	return errors.Join(errs...)
}

// Origins splits CORS_ORIGIN on commas.
func (c Config) Origins() []string {
	parts := strings.Split(c.CORSOrigin, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

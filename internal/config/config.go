package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "helpdesk-dev-secret"

type Config struct {
	AppHost  string
	HTTPPort string
	GRPCPort string
	AppEnv   string
	LogLevel string

	CORSOrigins []string

	DB struct {
		Driver     string
		Host       string
		Port       string
		User       string
		Password   string
		Database   string
		SSLMode    string
		SQLitePath string
	}

	Auth struct {
		JWTSecret       string
		TokenTTL        time.Duration
		LoginRateLimit  int
		LoginRateWindow time.Duration
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	KafkaBrokers     []string
	KafkaTopicTicket string

	MQTT struct {
		BrokerURL string
		ClientID  string
	}

	// Chatbot: webhook (POST /chat) takes precedence over the OpenAI-compatible model.
	Chatbot struct {
		WebhookURL       string
		Timeout          time.Duration
		OpenAIAPIKey     string
		OpenAIBaseURL    string
		OpenAIModel      string
		TicketOfferDelay time.Duration
	}

	Google struct {
		ClientID     string
		ClientSecret string
		RedirectURL  string
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:          getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:         firstEnv("APP_PORT", "HTTP_PORT", "8098"),
		GRPCPort:         firstEnv("GRPC_PORT", "METRICS_PORT", "9098"),
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		KafkaBrokers:     splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicTicket: getEnv("KAFKA_TOPIC_TICKET", "helpdesk.tickets"),
	}
	cfg.DB.Driver = getEnv("DB_DRIVER", "postgres")
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "helpdesk")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.DB.SQLitePath = getEnv("DB_SQLITE_PATH", "helpdesk.db")

	var err error
	cfg.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", defaultJWTSecret)
	if cfg.Auth.TokenTTL, err = getDuration("AUTH_TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Auth.LoginRateLimit, err = getInt("LOGIN_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.Auth.LoginRateWindow, err = getDuration("LOGIN_RATE_WINDOW", time.Minute); err != nil {
		return nil, err
	}

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	cfg.MQTT.BrokerURL = getEnv("MQTT_BROKER_URL", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "helpdesk-service")

	cfg.Chatbot.WebhookURL = getEnv("CHATBOT_WEBHOOK_URL", "")
	if cfg.Chatbot.Timeout, err = getDuration("CHATBOT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.Chatbot.OpenAIAPIKey = getEnv("CHATBOT_OPENAI_API_KEY", "")
	cfg.Chatbot.OpenAIBaseURL = getEnv("CHATBOT_OPENAI_BASE_URL", "")
	cfg.Chatbot.OpenAIModel = getEnv("CHATBOT_OPENAI_MODEL", "gpt-4o-mini")
	if cfg.Chatbot.TicketOfferDelay, err = getDuration("TICKET_OFFER_DELAY", 1500*time.Millisecond); err != nil {
		return nil, err
	}

	cfg.Google.ClientID = getEnv("GOOGLE_CLIENT_ID", "")
	cfg.Google.ClientSecret = getEnv("GOOGLE_CLIENT_SECRET", "")
	cfg.Google.RedirectURL = getEnv("GOOGLE_REDIRECT_URL", "postmessage")
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "mysql":
		if c.DB.Host == "" || c.DB.Database == "" {
			return errors.New("config: DB_HOST and DB_DATABASE are required")
		}
	case "sqlite":
		if c.DB.SQLitePath == "" {
			return errors.New("config: DB_SQLITE_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.AppEnv == "production" && c.DB.Driver != "sqlite" && c.DB.Password == "" {
		return errors.New("config: in production DB_PASSWORD is required")
	}
	if c.AppEnv == "production" && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == defaultJWTSecret) {
		return errors.New("config: in production AUTH_JWT_SECRET must be set")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: AUTH_TOKEN_TTL must be positive")
	}
	if c.Chatbot.Timeout <= 0 {
		return errors.New("config: CHATBOT_TIMEOUT must be positive")
	}
	return nil
}

// DSN returns the gorm DSN for the configured driver.
func (c *Config) DSN() string {
	switch c.DB.Driver {
	case "sqlite":
		return c.DB.SQLitePath
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Database)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

// splitList разбивает "a,b,c" на слайс без пустых элементов.
func splitList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

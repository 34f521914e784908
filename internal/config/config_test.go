package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("AUTH_TOKEN_TTL", "")
	t.Setenv("CHATBOT_TIMEOUT", "")
	t.Setenv("TICKET_OFFER_DELAY", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Fatalf("token ttl: want 24h got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Chatbot.Timeout != 10*time.Second {
		t.Fatalf("chatbot timeout: want 10s got %s", cfg.Chatbot.Timeout)
	}
	if cfg.Chatbot.TicketOfferDelay != 1500*time.Millisecond {
		t.Fatalf("offer delay: want 1.5s got %s", cfg.Chatbot.TicketOfferDelay)
	}
	if cfg.DB.Driver != "postgres" {
		t.Fatalf("driver: want postgres got %s", cfg.DB.Driver)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("CHATBOT_TIMEOUT", "soon")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "CHATBOT_TIMEOUT") {
		t.Fatalf("expected CHATBOT_TIMEOUT error, got %v", err)
	}
}

func TestValidateProductionSecret(t *testing.T) {
	cfg := &Config{AppEnv: "production"}
	cfg.DB.Driver = "sqlite"
	cfg.DB.SQLitePath = ":memory:"
	cfg.Auth.JWTSecret = defaultJWTSecret
	cfg.Auth.TokenTTL = time.Hour
	cfg.Chatbot.Timeout = time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for default secret in production")
	}
	cfg.Auth.JWTSecret = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
}

func TestDSNPerDriver(t *testing.T) {
	cfg := &Config{}
	cfg.DB.Driver = "mysql"
	cfg.DB.User = "u"
	cfg.DB.Password = "p"
	cfg.DB.Host = "db"
	cfg.DB.Port = "3306"
	cfg.DB.Database = "helpdesk"
	if got := cfg.DSN(); !strings.HasPrefix(got, "u:p@tcp(db:3306)/helpdesk?") {
		t.Fatalf("mysql dsn: %s", got)
	}
	cfg.DB.Driver = "sqlite"
	cfg.DB.SQLitePath = "file.db"
	if got := cfg.DSN(); got != "file.db" {
		t.Fatalf("sqlite dsn: %s", got)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a:1, ,b:2,")
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Fatalf("splitList: %v", got)
	}
}

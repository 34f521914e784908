package cmd

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/database"
)

// stubDatabase makes cliManager use an in-memory sqlite database and
// returns a pointer to the handle it opened.
func stubDatabase(t *testing.T) **gorm.DB {
	t.Helper()
	var opened *gorm.DB
	orig := openDatabase
	openDatabase = func(*config.Config) (*gorm.DB, error) {
		db, err := database.Open("sqlite", ":memory:")
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
		opened = db
		return db, nil
	}
	t.Cleanup(func() { openDatabase = orig })
	return &opened
}

func testCLIConfig() *config.Config {
	cfg := &config.Config{}
	cfg.DB.Driver = "sqlite"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTL = time.Hour
	return cfg
}

func assertClosed(t *testing.T, db *gorm.DB) {
	t.Helper()
	if db == nil {
		t.Fatalf("database was never opened")
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if err := sqlDB.Ping(); err == nil {
		t.Fatalf("database left open")
	}
}

func TestCLIManagerClosesDatabaseWhenStoreFails(t *testing.T) {
	opened := stubDatabase(t)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "")

	if _, _, err := cliManager(testCLIConfig()); err == nil {
		t.Fatalf("expected an error without a config directory")
	}
	assertClosed(t, *opened)
}

func TestCLIManagerCleanupClosesDatabase(t *testing.T) {
	opened := stubDatabase(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	m, cleanup, err := cliManager(testCLIConfig())
	if err != nil {
		t.Fatalf("cli manager: %v", err)
	}
	if m == nil {
		t.Fatalf("nil manager")
	}
	if err := (*opened).Exec("SELECT 1").Error; err != nil {
		t.Fatalf("database should be usable before cleanup: %v", err)
	}
	cleanup()
	assertClosed(t, *opened)
}

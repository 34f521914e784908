package database

import (
	"fmt"
	"log/slog"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/psds-microservice/helpdesk-service/internal/model"
)

// Open opens a gorm connection for driver ("postgres", "sqlite" or "mysql").
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// single writer, and ":memory:" must not fan out to separate databases
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// AutoMigrate creates the schema from the model structs. Used for sqlite and
// mysql; postgres goes through the goose migrations in MigrateUp.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	slog.Info("automigrate: ok", "component", "database")
	return nil
}

// Connect opens the database and brings the schema up to date: goose
// migrations for postgres, AutoMigrate for the other drivers.
func Connect(driver, dsn, databaseURL string) (*gorm.DB, error) {
	if driver == "postgres" || driver == "" {
		if err := MigrateUp(databaseURL); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return Open(driver, dsn)
	}
	db, err := Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

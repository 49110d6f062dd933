package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"clinic-call-backend/config"
	"clinic-call-backend/internal/model"
)

// Init opens the database named by cfg.DSN and runs migrations.
// The default DSN is an in-memory sqlite database, so nothing survives a restart.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	logMode := logger.Warn
	if cfg.LogQueries {
		logMode = logger.Info
	}

	db, err := gorm.Open(dialector(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if isInMemory(cfg.DSN) {
		if err := pinConnection(sqlDB, cfg.MaxOpenConns); err != nil {
			return nil, err
		}
	} else if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Println("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates the tables used by the queue and push layers.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Patient{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// pinned holds one open connection per in-memory database. sqlite drops an
// in-memory database when its last connection closes.
var pinned sync.Map // *sql.DB -> *sql.Conn

func isInMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func pinConnection(sqlDB *sql.DB, maxOpen int) error {
	if maxOpen == 1 {
		log.Println("max_open_conns raised to 2: one connection keeps the in-memory database alive")
		sqlDB.SetMaxOpenConns(2)
	}
	conn, err := sqlDB.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("failed to pin in-memory database connection: %w", err)
	}
	pinned.Store(sqlDB, conn)
	return nil
}

// Close releases the pinned connection, if any, and closes the pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if conn, ok := pinned.LoadAndDelete(sqlDB); ok {
		conn.(*sql.Conn).Close()
	}
	return sqlDB.Close()
}

func dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

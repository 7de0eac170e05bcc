package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// logLevel keeps SQL tracing for local development only.
func logLevel(environment string) logger.LogLevel {
	switch environment {
	case "production":
		return logger.Warn
	case "test":
		return logger.Silent
	default:
		return logger.Info
	}
}

func getLogger(environment string) logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond, // refresh-run writes are small
			LogLevel:                  logLevel(environment),
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  environment != "production",
		},
	)
}

func configureConnectionPool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	// Only refresh runs and chat events go through the pool.
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return nil
}

// NewGormDBFromDSN opens the postgres store for refresh runs and chat events.
// environment is GO_ENV and picks the SQL log level.
func NewGormDBFromDSN(dsn, environment string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: getLogger(environment),
	})
	if err != nil {
		return nil, err
	}

	if err := configureConnectionPool(db); err != nil {
		return nil, err
	}

	return db, nil
}

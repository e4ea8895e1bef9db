package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type options struct {
	maxIdleConns    int
	maxOpenConns    int
	connMaxLifetime time.Duration
	logLevel        logger.LogLevel
}

type Option func(*options)

// WithPool overrides the connection pool limits. Zero values keep the defaults.
func WithPool(maxOpen, maxIdle int, lifetime time.Duration) Option {
	return func(o *options) {
		if maxOpen > 0 {
			o.maxOpenConns = maxOpen
		}
		if maxIdle > 0 {
			o.maxIdleConns = maxIdle
		}
		if lifetime > 0 {
			o.connMaxLifetime = lifetime
		}
	}
}

// WithSQLLogging logs every statement instead of only slow ones and errors.
func WithSQLLogging(enabled bool) Option {
	return func(o *options) {
		if enabled {
			o.logLevel = logger.Info
		}
	}
}

func newLogger(level logger.LogLevel) logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			// chunk contents and questions stay out of the SQL log
			ParameterizedQueries: true,
			Colorful:             false,
		},
	)
}

// NewGormDBFromDSN opens a postgres connection. The pgvector and pgcrypto
// extensions are created by cmd/migrate, not here.
func NewGormDBFromDSN(dsn string, opts ...Option) (*gorm.DB, error) {
	o := options{
		maxIdleConns:    10,
		maxOpenConns:    50,
		connMaxLifetime: time.Hour,
		logLevel:        logger.Warn,
	}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger(o.logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(o.maxIdleConns)
	sqlDB.SetMaxOpenConns(o.maxOpenConns)
	sqlDB.SetConnMaxLifetime(o.connMaxLifetime)

	return db, nil
}

// Package repository contains the repository layer for the Finance API
package repository

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/nsvirk/financeapi/internal/config"
	"github.com/nsvirk/financeapi/internal/models"
	"github.com/nsvirk/financeapi/pkg/utils/zaplogger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDatabase opens the configured database and migrates the schema
func ConnectDatabase(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return ConnectSQLite(cfg.SQLitePath, cfg.PostgresLogLevel)
	default:
		return ConnectPostgres(cfg)
	}
}

// ConnectPostgres connects to a Postgres database and returns a GORM database object
func ConnectPostgres(cfg *config.Config) (*gorm.DB, error) {
	zaplogger.Info(config.SingleLine)
	zaplogger.Info("Initializing Postgres")
	zaplogger.Info(config.SingleLine)

	schema := cfg.PostgresSchema
	postgresDSN := fmt.Sprintf("%s search_path=%s,public", cfg.PostgresDsn, schema)
	db, err := gorm.Open(postgres.Open(postgresDSN), gormConfig(cfg.PostgresLogLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %v", err)
	}
	zaplogger.Info("  * connected")

	if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
		return nil, fmt.Errorf("failed to create schema: %v", err)
	}
	zaplogger.Info("  * migrating schema: \"" + schema + "\"")

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %v", err)
	}

	return db, nil
}

// ConnectSQLite opens a SQLite database file, ":memory:" for a private in-memory database
func ConnectSQLite(path, logLevel string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig(logLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite %s: %v", path, err)
	}

	// SQLite allows a single writer
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %v", err)
	}
	return db, nil
}

// AutoMigrate creates tables and adds/modifies columns
func AutoMigrate(db *gorm.DB) error {
	tables := []struct {
		name  string
		model interface{}
	}{
		{models.UsersTableName, &models.User{}},
		{models.TransactionsTableName, &models.Transaction{}},
		{models.BudgetBucketsTableName, &models.BudgetBucket{}},
		{models.MccCodesTableName, &models.MccCode{}},
		{models.AccountBudgetsTableName, &models.AccountBudget{}},
	}

	zaplogger.Debug("  * migrating tables")
	for _, table := range tables {
		if err := db.AutoMigrate(table.model); err != nil {
			return fmt.Errorf("failed to auto migrate table: %s, err:%v", table.name, err)
		}
		zaplogger.Debug("    - \"" + table.name + "\"")
	}

	return nil
}

func gormConfig(level string) *gorm.Config {
	var logLevel logger.LogLevel
	switch level {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	default:
		logLevel = logger.Warn
	}

	return &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}
}

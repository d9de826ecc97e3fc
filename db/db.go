/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/nethesis/audit-tracker-web/configuration"
	"github.com/nethesis/audit-tracker-web/logs"
)

var (
	DB               *sql.DB
	sqlOpenFunc      = sql.Open
	createSchemaFunc = loadCreateSchema
)

//go:embed create.sql
var createSchema string

// DSN builds the MariaDB connection string from the configuration.
func DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = configuration.Config.MariaDBUser
	cfg.Passwd = configuration.Config.MariaDBPassword
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%s", configuration.Config.MariaDBHost, configuration.Config.MariaDBPort)
	cfg.DBName = configuration.Config.MariaDBDatabase
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.Timeout = 5 * time.Second
	return cfg.FormatDSN()
}

// Init opens the submission journal database and creates its schema.
func Init() error {
	if !configuration.IsJournalConfigured() {
		return errors.New("journal database not configured")
	}

	var err error
	DB, err = sqlOpenFunc("mysql", DSN())
	if err != nil {
		logs.Log("[CRITICAL][DB] Failed to open database connection: " + err.Error())
		return err
	}

	// Configure connection pool
	DB.SetMaxOpenConns(10)
	DB.SetMaxIdleConns(2)
	DB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = DB.PingContext(ctx)
	if err != nil {
		logs.Log("[CRITICAL][DB] Failed to ping database: " + err.Error())
		DB.Close()
		DB = nil
		return err
	}

	logs.Log("[DB] Database connection established successfully")

	err = createSchemaFunc()
	if err != nil {
		logs.Log("[CRITICAL][DB] Failed to create schema: " + err.Error())
		DB.Close()
		DB = nil
		return err
	}

	return nil
}

// GetDB returns the journal database, or nil when it is not initialized.
func GetDB() *sql.DB {
	return DB
}

// Close gracefully closes the database connection pool.
func Close() error {
	if DB != nil {
		err := DB.Close()
		DB = nil
		return err
	}
	return nil
}

func loadCreateSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := DB.ExecContext(ctx, createSchema)
	if err != nil {
		return err
	}

	logs.Log("[DB] Schema created/verified successfully")
	return nil
}

// HealthCheck performs a health check on the database connection.
func HealthCheck() error {
	if DB == nil {
		return errors.New("database not initialized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return DB.PingContext(ctx)
}

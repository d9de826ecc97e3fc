/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nethesis/audit-tracker-web/configuration"
	"github.com/nethesis/audit-tracker-web/logs"
)

func TestMain(m *testing.M) {
	logs.Init("db-tests")
	os.Exit(m.Run())
}

func setJournalConfig() {
	configuration.Config.MariaDBHost = "127.0.0.1"
	configuration.Config.MariaDBPort = "1"
	configuration.Config.MariaDBUser = "tracker"
	configuration.Config.MariaDBPassword = "s3cret"
	configuration.Config.MariaDBDatabase = "audit_tracker"
}

func TestDSN(t *testing.T) {
	setJournalConfig()

	dsn := DSN()

	assert.Contains(t, dsn, "tracker:s3cret@tcp(127.0.0.1:1)/audit_tracker")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "multiStatements=true")
}

func TestInitWithoutConfiguration(t *testing.T) {
	configuration.Config.MariaDBHost = ""

	err := Init()

	assert.Error(t, err)
	assert.Nil(t, GetDB())
}

func TestInitOpenFailure(t *testing.T) {
	setJournalConfig()
	original := sqlOpenFunc
	defer func() { sqlOpenFunc = original }()
	sqlOpenFunc = func(string, string) (*sql.DB, error) {
		return nil, errors.New("driver missing")
	}

	assert.EqualError(t, Init(), "driver missing")
}

func TestInitUnreachableServer(t *testing.T) {
	setJournalConfig()

	err := Init()

	assert.Error(t, err)
	assert.Nil(t, GetDB())
	assert.Error(t, HealthCheck())
	assert.NoError(t, Close())
}

func TestInitSchemaFailureLeavesJournalDisabled(t *testing.T) {
	setJournalConfig()
	originalOpen := sqlOpenFunc
	originalSchema := createSchemaFunc
	defer func() {
		sqlOpenFunc = originalOpen
		createSchemaFunc = originalSchema
	}()

	// a pool whose ping succeeds without a server
	sqlOpenFunc = func(string, string) (*sql.DB, error) {
		return sql.OpenDB(pingOnlyConnector{}), nil
	}
	createSchemaFunc = func() error {
		return errors.New("CREATE command denied")
	}

	err := Init()

	assert.EqualError(t, err, "CREATE command denied")
	assert.Nil(t, GetDB())
	assert.Error(t, HealthCheck())
}

type pingOnlyConnector struct{}

func (pingOnlyConnector) Connect(context.Context) (driver.Conn, error) { return pingOnlyConn{}, nil }
func (pingOnlyConnector) Driver() driver.Driver                        { return nil }

type pingOnlyConn struct{}

func (pingOnlyConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (pingOnlyConn) Close() error                        { return nil }
func (pingOnlyConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }

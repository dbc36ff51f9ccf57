// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestNewStoreFromDSN_UnsupportedType(t *testing.T) {
	if _, err := NewStoreFromDSN("oracle", "whatever"); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func TestNewStoreFromDSN_OpenError(t *testing.T) {
	prev := sqlOpenFunc
	defer func() { sqlOpenFunc = prev }()
	sqlOpenFunc = func(string, string) (*sql.DB, error) { return nil, errors.New("boom") }

	if _, err := NewStoreFromDSN("sqlite", ":memory:"); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestNewStoreFromDSN_PlainMemory(t *testing.T) {
	s, err := NewStoreFromDSN("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("NewStoreFromDSN: %v", err)
	}
	defer func() { _ = s.Close() }()
	if s.Type() != "sqlite" {
		t.Fatalf("unexpected type %q", s.Type())
	}
	if _, err := s.CreateDownload(context.Background(), 1, "t", "u"); err != nil {
		t.Fatalf("CreateDownload on :memory: failed: %v", err)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "history.db")
	s, err := NewStoreFromDSN("sqlite", dsn)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := s.CreateDownload(context.Background(), 1, "kept", "u"); err != nil {
		t.Fatalf("CreateDownload: %v", err)
	}
	_ = s.Close()

	s2, err := NewStoreFromDSN("sqlite", dsn)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer func() { _ = s2.Close() }()

	rows, err := s2.AllDownloads(context.Background())
	if err != nil {
		t.Fatalf("AllDownloads: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "kept" {
		t.Fatalf("expected data to survive reopen, got %+v", rows)
	}

	var n int
	if err := QueryRawInto(context.Background(), s2.bun, &n, "SELECT COUNT(*) FROM schema_migrations"); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 recorded migration, got %d", n)
	}
}

func TestRunDBMaintenance_Sqlite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "maint.db")
	s, err := NewStoreFromDSN("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = s.Close()

	if err := RunDBMaintenance(context.Background(), "sqlite", dsn); err != nil {
		t.Fatalf("RunDBMaintenance: %v", err)
	}
	if err := RunDBMaintenance(context.Background(), "oracle", dsn); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x INT);\n\nCREATE INDEX i ON a (x);\n")
	if len(got) != 2 || got[1] != "CREATE INDEX i ON a (x)" {
		t.Fatalf("unexpected split: %q", got)
	}
}

func TestDriverFor(t *testing.T) {
	if driverFor("postgres") != "pgx" || driverFor("mysql") != "mysql" || driverFor("sqlite") != "sqlite" {
		t.Fatalf("unexpected driver mapping")
	}
}

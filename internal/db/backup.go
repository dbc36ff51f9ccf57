// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/mediabot/mediabot/internal/model"
)

// BackupSchemaVersion is written into every backup.
const BackupSchemaVersion = 1

// ExportDataForBackup collects every history row.
func (s *Store) ExportDataForBackup(ctx context.Context) (*model.BackupData, error) {
	rows, err := s.AllDownloads(ctx)
	if err != nil {
		return nil, fmt.Errorf("export downloads: %w", err)
	}
	return &model.BackupData{
		SchemaVersion: BackupSchemaVersion,
		CreatedAt:     s.clockNow(),
		Downloads:     rows,
	}, nil
}

// ImportDataFromBackup replaces the history with the backup contents.
func (s *Store) ImportDataFromBackup(ctx context.Context, data *model.BackupData) error {
	if data == nil {
		return fmt.Errorf("nil backup")
	}
	if data.SchemaVersion > BackupSchemaVersion {
		return fmt.Errorf("backup schema version %d is newer than supported %d", data.SchemaVersion, BackupSchemaVersion)
	}

	tx, err := s.bun.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Bun refuses an unqualified DELETE.
	if _, err := ExecRaw(ctx, tx, "DELETE FROM downloads"); err != nil {
		return fmt.Errorf("clear downloads: %w", err)
	}
	if len(data.Downloads) > 0 {
		rows := make([]DownloadModel, 0, len(data.Downloads))
		for _, d := range data.Downloads {
			rows = append(rows, modelToDownloadModel(d))
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return MapDBError(fmt.Errorf("insert downloads: %w", err))
		}
	}
	if s.dbType == "postgres" {
		if _, err := ExecRaw(ctx, tx, "SELECT setval(pg_get_serial_sequence('downloads', 'id'), COALESCE(MAX(id), 1)) FROM downloads"); err != nil {
			return fmt.Errorf("reset id sequence: %w", err)
		}
	}
	return tx.Commit()
}

// WriteBackup encodes data as zstd-compressed JSON.
func WriteBackup(w io.Writer, data *model.BackupData) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}
	return zw.Close()
}

// ReadBackup decodes a zstd-compressed JSON backup.
func ReadBackup(r io.Reader) (*model.BackupData, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zr.Close()

	var data model.BackupData
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	return &data, nil
}

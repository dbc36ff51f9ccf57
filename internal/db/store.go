// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/mediabot/mediabot/internal/model"
	"github.com/uptrace/bun"
)

// DownloadModel maps the downloads table for Bun queries.
type DownloadModel struct {
	bun.BaseModel `bun:"table:downloads"`
	ID            int64      `bun:"id,pk,autoincrement"`
	ChatID        int64      `bun:"chat_id,notnull"`
	Title         string     `bun:"title,notnull"`
	PageURL       string     `bun:"page_url,notnull"`
	FileName      string     `bun:"file_name,notnull"`
	SizeBytes     int64      `bun:"size_bytes,notnull"`
	Status        string     `bun:"status,notnull"`
	Error         string     `bun:"error,notnull"`
	CreatedAt     time.Time  `bun:"created_at,notnull"`
	FinishedAt    *time.Time `bun:"finished_at,nullzero"`
}

func downloadModelToModel(m DownloadModel) model.Download {
	return model.Download{
		ID:         m.ID,
		ChatID:     m.ChatID,
		Title:      m.Title,
		PageURL:    m.PageURL,
		FileName:   m.FileName,
		SizeBytes:  m.SizeBytes,
		Status:     model.Status(m.Status),
		Error:      m.Error,
		CreatedAt:  m.CreatedAt,
		FinishedAt: m.FinishedAt,
	}
}

func modelToDownloadModel(d model.Download) DownloadModel {
	return DownloadModel{
		ID:         d.ID,
		ChatID:     d.ChatID,
		Title:      d.Title,
		PageURL:    d.PageURL,
		FileName:   d.FileName,
		SizeBytes:  d.SizeBytes,
		Status:     string(d.Status),
		Error:      d.Error,
		CreatedAt:  d.CreatedAt,
		FinishedAt: d.FinishedAt,
	}
}

// Store is the bun-backed download history.
type Store struct {
	bun    *bun.DB
	dbType string
	now    func() time.Time
}

// Type returns the database type the store was opened with.
func (s *Store) Type() string { return s.dbType }

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.bun.Close() }

func (s *Store) clockNow() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// CreateDownload records a pending attempt and returns its id.
func (s *Store) CreateDownload(ctx context.Context, chatID int64, title, pageURL string) (int64, error) {
	m := DownloadModel{
		ChatID:    chatID,
		Title:     title,
		PageURL:   pageURL,
		Status:    string(model.StatusPending),
		CreatedAt: s.clockNow(),
	}
	q := s.bun.NewInsert().Model(&m)
	// MySQL has no RETURNING; bun reads LastInsertId into the pk instead.
	if s.dbType != "mysql" {
		q = q.Returning("id")
	}
	if _, err := q.Exec(ctx); err != nil {
		return 0, MapDBError(fmt.Errorf("insert download: %w", err))
	}
	return m.ID, nil
}

// FinishDownload stores the outcome of attempt id.
func (s *Store) FinishDownload(ctx context.Context, id int64, status model.Status, fileName string, size int64, errText string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	finished := s.clockNow()
	res, err := s.bun.NewUpdate().
		Model((*DownloadModel)(nil)).
		Set("status = ?", string(status)).
		Set("file_name = ?", fileName).
		Set("size_bytes = ?", size).
		Set("error = ?", errText).
		Set("finished_at = ?", finished).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return MapDBError(fmt.Errorf("update download %d: %w", id, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("download %d: %w", id, ErrNotFound)
	}
	return nil
}

// RecentDownloads returns up to limit rows, newest first.
func (s *Store) RecentDownloads(ctx context.Context, limit int) ([]model.Download, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []DownloadModel
	err := s.bun.NewSelect().Model(&rows).
		OrderExpr("created_at DESC").
		OrderExpr("id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

// AllDownloads returns every row, oldest first.
func (s *Store) AllDownloads(ctx context.Context) ([]model.Download, error) {
	var rows []DownloadModel
	if err := s.bun.NewSelect().Model(&rows).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

// Stats counts rows per status.
func (s *Store) Stats(ctx context.Context) (model.Stats, error) {
	var rows []struct {
		Status string `bun:"status"`
		N      int    `bun:"n"`
	}
	err := s.bun.NewSelect().
		Model((*DownloadModel)(nil)).
		Column("status").
		ColumnExpr("COUNT(*) AS n").
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := model.Stats{}
	for _, r := range rows {
		out[model.Status(r.Status)] = r.N
	}
	return out, nil
}

func toModels(rows []DownloadModel) []model.Download {
	out := make([]model.Download, 0, len(rows))
	for _, r := range rows {
		out = append(out, downloadModelToModel(r))
	}
	return out
}

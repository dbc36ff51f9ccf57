// Copyright (c) 2026 Mediabot Team
// Mediabot - Telegram media relay bot
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"fmt"
	"time"
)

// Status is the outcome of a /random attempt.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSent     Status = "sent"
	StatusTooLarge Status = "too_large"
	StatusFailed   Status = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusTooLarge, StatusFailed:
		return true
	}
	return false
}

// Download is one row of the download history.
type Download struct {
	ID         int64      `json:"id"`
	ChatID     int64      `json:"chat_id"`
	Title      string     `json:"title"`
	PageURL    string     `json:"page_url"`
	FileName   string     `json:"file_name"`
	SizeBytes  int64      `json:"size_bytes"`
	Status     Status     `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// String returns a one-line summary used by the CLI.
func (d Download) String() string {
	name := d.FileName
	if name == "" {
		name = d.Title
	}
	return fmt.Sprintf("#%d %s [%s]", d.ID, name, d.Status)
}

// SizeMB returns the size in mebibytes.
func (d Download) SizeMB() float64 {
	return float64(d.SizeBytes) / 1024 / 1024
}

// Stats counts history rows per status.
type Stats map[Status]int

// Total is the number of rows counted.
func (s Stats) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// BackupData is the payload of a history backup.
type BackupData struct {
	SchemaVersion int        `json:"schema_version"`
	CreatedAt     time.Time  `json:"created_at"`
	Downloads     []Download `json:"downloads"`
}

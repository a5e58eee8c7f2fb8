// Package store persists viewer history, model loads and saved
// screenshots, in a local sqlite database. Persistence is optional: the
// server runs without a store when no database path is configured.
package store

import (
	"fmt"
	"time"

	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/backend"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/screenshot"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ModelLoad records one model handled by the dispatcher.
type ModelLoad struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Parts     int       `json:"parts"`
	Entities  int       `json:"entities"`
	Failures  int       `json:"failures"`
	Splash    bool      `json:"splash"` // true when this load displaced the splash screen
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Screenshot records one screenshot written to disk.
type Screenshot struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Filename  string    `gorm:"size:255;not null;index" json:"filename"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Store wraps a GORM connection to the history database.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the sqlite history database at path and runs
// migrations. Pass ":memory:" for a throwaway in-process database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&ModelLoad{}, &Screenshot{}); err != nil {
		return nil, fmt.Errorf("store: auto-migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordLoad appends a history row for one handled model load. The
// splash flag marks loads that displaced the splash screen.
func (s *Store) RecordLoad(report *backend.LoadReport, splash bool) error {
	row := ModelLoad{
		Parts:    report.PartCount(),
		Entities: report.Entities,
		Failures: len(report.Failed()),
		Splash:   splash,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("store: record load: %w", err)
	}
	return nil
}

// RecordScreenshot appends a history row for one saved screenshot.
func (s *Store) RecordScreenshot(meta screenshot.Meta) error {
	row := Screenshot{
		Filename:  meta.Filename,
		Width:     meta.Width,
		Height:    meta.Height,
		SizeBytes: meta.SizeBytes,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("store: record screenshot: %w", err)
	}
	return nil
}

// RecentLoads returns the n most recent load rows, newest first.
func (s *Store) RecentLoads(n int) ([]ModelLoad, error) {
	if n <= 0 {
		n = 20
	}
	var rows []ModelLoad
	if err := s.db.Order("created_at DESC, id DESC").Limit(n).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: recent loads: %w", err)
	}
	return rows, nil
}

// RecentScreenshots returns the n most recent screenshot rows, newest first.
func (s *Store) RecentScreenshots(n int) ([]Screenshot, error) {
	if n <= 0 {
		n = 20
	}
	var rows []Screenshot
	if err := s.db.Order("created_at DESC, id DESC").Limit(n).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: recent screenshots: %w", err)
	}
	return rows, nil
}

// PruneScreenshots deletes screenshot rows created before the cutoff
// and returns how many were removed.
func (s *Store) PruneScreenshots(olderThan time.Time) (int64, error) {
	res := s.db.Where("created_at < ?", olderThan).Delete(&Screenshot{})
	if res.Error != nil {
		return 0, fmt.Errorf("store: prune screenshots: %w", res.Error)
	}
	return res.RowsAffected, nil
}

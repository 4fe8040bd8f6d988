// Copyright (c) 2025 Formplay
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package store persists form sessions in a local SQLite database so an
// interrupted fill can be resumed with CURRENT instead of starting over.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"formplay/cli/internal/xdg"
)

// DefaultFile is the database file created in the XDG data directory.
const DefaultFile = "sessions.db"

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("session not found")

// Record is one resumable session.
type Record struct {
	Key       string `gorm:"primaryKey"`
	SessionID string `gorm:"not null"`
	FormName  string
	Domain    string `gorm:"index"`
	Username  string
	Lang      string
	State     string
	UpdatedAt time.Time `gorm:"index"`
}

// TableName pins the table name independently of the type name.
func (Record) TableName() string { return "sessions" }

// Key identifies the session of one user filling one form.
func Key(domain, username, form string) string {
	return strings.Join([]string{domain, username, form}, "/")
}

// Store is a session record database.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the database at path. An empty path uses the XDG
// data directory; ":memory:" gives a private in-memory database.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if path == "" {
		dir, err := xdg.DataDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, DefaultFile)
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: newGormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate session store: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts or replaces r, stamping UpdatedAt.
func (s *Store) Save(ctx context.Context, r Record) error {
	r.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&r).Error
}

// Get returns the record for key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (Record, error) {
	var r Record
	if key == "" {
		return r, ErrNotFound
	}
	err := s.db.WithContext(ctx).Where(&Record{Key: key}).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r, ErrNotFound
	}
	return r, err
}

// List returns every record, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	var out []Record
	err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&out).Error
	return out, err
}

// Delete removes the record for key. Unknown keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Where(&Record{Key: key}).Delete(&Record{}).Error
}

// Prune removes submitted sessions and those untouched since before
// cutoff, returning how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time, submittedState string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("updated_at < ? OR state = ?", cutoff.UTC(), submittedState).
		Delete(&Record{})
	return res.RowsAffected, res.Error
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionEntry is one keyed slot in the local database.
type SessionEntry struct {
	Slot      string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName pins the table name.
func (SessionEntry) TableName() string { return "session_entries" }

// SQLiteBackend persists session slots through gorm, normally on a local
// SQLite file.
type SQLiteBackend struct {
	db *gorm.DB
}

// NewSQLiteBackend migrates the session table and returns the backend.
func NewSQLiteBackend(db *gorm.DB) (*SQLiteBackend, error) {
	if err := db.AutoMigrate(&SessionEntry{}); err != nil {
		return nil, fmt.Errorf("migrate session entries: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Get returns the value stored at key or ErrNotFound.
func (b *SQLiteBackend) Get(ctx context.Context, key string) (string, error) {
	var entry SessionEntry
	err := b.db.WithContext(ctx).Where("slot = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

// Set upserts the value at key.
func (b *SQLiteBackend) Set(ctx context.Context, key, value string) error {
	entry := SessionEntry{Slot: key, Value: value, UpdatedAt: time.Now().UTC()}
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// Delete removes key.
func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	return b.db.WithContext(ctx).Where("slot = ?", key).Delete(&SessionEntry{}).Error
}

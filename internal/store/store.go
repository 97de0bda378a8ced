// Package store implements the Event Store: durable state for
// currently-known events keyed by (vtn_id, event_id), backed by SQLite via
// GORM (spec.md §4.2). Mutations are transactional; a failed batch leaves
// prior state intact.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// EventRow is the single-table schema named in spec.md §6:
// (id integer primary key, vtn_id, event_id, mod_num integer default 0,
// raw_xml text not null), unique index over (vtn_id, event_id).
type EventRow struct {
	ID      uint   `gorm:"primaryKey"`
	VtnID   string `gorm:"column:vtn_id;uniqueIndex:idx_event_vtn_event;not null"`
	EventID string `gorm:"column:event_id;uniqueIndex:idx_event_vtn_event;not null"`
	ModNum  int    `gorm:"column:mod_num;not null;default:0"`
	RawXML  string `gorm:"column:raw_xml;not null"`
}

// TableName pins the GORM table name regardless of pluralization rules.
func (EventRow) TableName() string { return "event" }

// Store is the Event Store.
type Store struct {
	db *gorm.DB
}

// Record is a (vtn_id, event_id, mod_num, raw_bytes) tuple used by ReplaceAll.
type Record struct {
	VtnID   string
	EventID string
	ModNum  int
	RawXML  []byte
}

// Open creates or opens the SQLite-backed event store at path and ensures
// the schema exists via AutoMigrate.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	if err := db.AutoMigrate(&EventRow{}); err != nil {
		return nil, fmt.Errorf("migrate store schema: %w", err)
	}

	return &Store{db: db}, nil
}

// GetActiveEvents returns every stored event record.
func (s *Store) GetActiveEvents(ctx context.Context) ([]Record, error) {
	var rows []EventRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query active events: %w", err)
	}
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = Record{VtnID: r.VtnID, EventID: r.EventID, ModNum: r.ModNum, RawXML: []byte(r.RawXML)}
	}
	return out, nil
}

// Get returns the stored row for (vtnID, eventID), or (nil, nil) if absent.
func (s *Store) Get(ctx context.Context, vtnID, eventID string) (*Record, error) {
	var row EventRow
	err := s.db.WithContext(ctx).
		Where("vtn_id = ? AND event_id = ?", vtnID, eventID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &Record{VtnID: row.VtnID, EventID: row.EventID, ModNum: row.ModNum, RawXML: []byte(row.RawXML)}, nil
}

// Upsert inserts or replaces the row for (vtnID, eventID).
func (s *Store) Upsert(ctx context.Context, vtnID, eventID string, modNum int, rawXML []byte) error {
	row := EventRow{VtnID: vtnID, EventID: eventID, ModNum: modNum, RawXML: string(rawXML)}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing EventRow
		err := tx.Where("vtn_id = ? AND event_id = ?", vtnID, eventID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&row).Error
		case err != nil:
			return err
		default:
			row.ID = existing.ID
			return tx.Save(&row).Error
		}
	})
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}

// ReplaceAll atomically wipes the store and inserts records. A failed batch
// leaves prior state intact (spec.md §4.2).
func (s *Store) ReplaceAll(ctx context.Context, records []Record) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM event").Error; err != nil {
			return err
		}
		for _, r := range records {
			row := EventRow{VtnID: r.VtnID, EventID: r.EventID, ModNum: r.ModNum, RawXML: string(r.RawXML)}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace all events: %w", err)
	}
	return nil
}

// Remove batch-deletes events by id, scoped to vtnID. Idempotent; returns
// the number of rows actually removed.
func (s *Store) Remove(ctx context.Context, vtnID string, eventIDs []string) (int64, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("vtn_id = ? AND event_id IN ?", vtnID, eventIDs).
		Delete(&EventRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("remove events: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

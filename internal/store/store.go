// Package store persists medicines, intakes, and the profile in SQLite and
// keeps reminder slot marks in BadgerDB. In-memory tracker state stays the
// source of truth; the store is a write-through collaborator.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shriniketh555/medcare/internal/config"
	"github.com/shriniketh555/medcare/internal/tracker"
)

// profileID keys the singleton profile row.
const profileID = "main"

// Store provides unified access to SQLite and BadgerDB.
type Store struct {
	db     *gorm.DB
	badger *badger.DB
}

// New opens both databases and migrates the record schema.
func New(cfg *config.Config) (*Store, error) {
	sqliteDB, err := sql.Open("sqlite", cfg.Storage.SQLitePath+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	badgerOpts := badger.DefaultOptions(cfg.Storage.BadgerPath).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	store := &Store{db: db, badger: badgerDB}
	if err := store.migrate(); err != nil {
		badgerDB.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wires a store over an existing gorm connection and an in-memory
// badger instance. Used by tests.
func NewWithDB(db *gorm.DB) (*Store, error) {
	badgerDB, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	store := &Store{db: db, badger: badgerDB}
	if err := store.migrate(); err != nil {
		badgerDB.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(
		&tracker.Medicine{},
		&tracker.Intake{},
		&tracker.Profile{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Close closes the badger database. The sqlite handle is pooled and closed by
// process exit.
func (s *Store) Close() error {
	return s.badger.Close()
}

// DB returns the GORM database instance.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ==================== Medicine Methods ====================

func (s *Store) ListMedicines(ctx context.Context) ([]tracker.Medicine, error) {
	var medicines []tracker.Medicine
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&medicines).Error; err != nil {
		return nil, err
	}
	for i := range medicines {
		if medicines[i].TimesJSON != "" {
			json.Unmarshal([]byte(medicines[i].TimesJSON), &medicines[i].Times)
		}
	}
	return medicines, nil
}

func (s *Store) PutMedicine(ctx context.Context, med tracker.Medicine) error {
	if len(med.Times) > 0 {
		timesJSON, _ := json.Marshal(med.Times)
		med.TimesJSON = string(timesJSON)
	}
	return s.db.WithContext(ctx).Save(&med).Error
}

func (s *Store) DeleteMedicine(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&tracker.Medicine{}).Error
}

// ==================== Intake Methods ====================

func (s *Store) ListIntakes(ctx context.Context) ([]tracker.Intake, error) {
	var intakes []tracker.Intake
	err := s.db.WithContext(ctx).Order("date ASC, time ASC").Find(&intakes).Error
	return intakes, err
}

func (s *Store) PutIntake(ctx context.Context, intake tracker.Intake) error {
	return s.db.WithContext(ctx).Save(&intake).Error
}

func (s *Store) DeleteIntakesFor(ctx context.Context, medicineID string) error {
	return s.db.WithContext(ctx).Where("medicine_id = ?", medicineID).Delete(&tracker.Intake{}).Error
}

// ==================== Profile Methods ====================

func (s *Store) GetProfile(ctx context.Context) (*tracker.Profile, error) {
	var profile tracker.Profile
	err := s.db.WithContext(ctx).Where("id = ?", profileID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Store) PutProfile(ctx context.Context, p tracker.Profile) error {
	p.ID = profileID
	return s.db.WithContext(ctx).Save(&p).Error
}

// ==================== Slot Mark Methods (BadgerDB) ====================

// MarkSlot records that a reminder fired for the slot. The TTL lets marks
// expire on their own instead of needing a cleanup pass, and a restart inside
// the reminder window cannot re-fire the slot.
func (s *Store) MarkSlot(key string, ttl time.Duration) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte("slot:"+key), []byte{1}).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// SlotMarked reports whether a reminder already fired for the slot.
func (s *Store) SlotMarked(key string) (bool, error) {
	err := s.badger.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("slot:" + key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clothesline-control-backend/internal/model"
)

// Store is the persistence gateway: append-only sensor readings plus a
// durable key/value settings table.
type Store interface {
	InsertReading(ctx context.Context, reading *model.SensorReading) error
	LatestReading(ctx context.Context) (*model.SensorReading, error)
	CountReadings(ctx context.Context) (int64, error)
	// RecentReadings returns up to n of the newest readings, ordered
	// oldest to newest as the classifier expects its window.
	RecentReadings(ctx context.Context, n int) ([]model.SensorReading, error)
	// AllReadings returns every reading, newest first.
	AllReadings(ctx context.Context) ([]model.SensorReading, error)
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
	DB() *gorm.DB
}

// writeRetries bounds the retry loop for transient lock contention.
const writeRetries = 3

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// InsertReading appends a reading. Lock contention is retried with
// exponential backoff before the write is surfaced as failed.
func (s *gormStore) InsertReading(ctx context.Context, reading *model.SensorReading) error {
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now().UTC()
	}
	err := withWriteRetry(func() error {
		return s.db.WithContext(ctx).Create(reading).Error
	})
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (s *gormStore) LatestReading(ctx context.Context) (*model.SensorReading, error) {
	var reading model.SensorReading
	err := s.db.WithContext(ctx).Order("id DESC").First(&reading).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest reading: %w", err)
	}
	return &reading, nil
}

func (s *gormStore) CountReadings(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.SensorReading{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return count, nil
}

func (s *gormStore) RecentReadings(ctx context.Context, n int) ([]model.SensorReading, error) {
	var readings []model.SensorReading
	err := s.db.WithContext(ctx).Order("id DESC").Limit(n).Find(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("recent readings: %w", err)
	}
	// Reverse into oldest-first order.
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}

func (s *gormStore) AllReadings(ctx context.Context) ([]model.SensorReading, error) {
	var readings []model.SensorReading
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&readings).Error; err != nil {
		return nil, fmt.Errorf("all readings: %w", err)
	}
	return readings, nil
}

func (s *gormStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var setting model.Setting
	err := s.db.WithContext(ctx).First(&setting, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return setting.Value, true, nil
}

func (s *gormStore) PutSetting(ctx context.Context, key, value string) error {
	err := withWriteRetry(func() error {
		return s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&model.Setting{Key: key, Value: value}).Error
	})
	if err != nil {
		return fmt.Errorf("put setting %q: %w", key, err)
	}
	return nil
}

// withWriteRetry retries a write a bounded number of times when the error
// looks like transient lock contention.
func withWriteRetry(write func() error) error {
	backoff := 10 * time.Millisecond
	var err error
	for attempt := 0; attempt < writeRetries; attempt++ {
		if err = write(); err == nil {
			return nil
		}
		if !isTransientLockError(err) {
			return err
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return err
}

func isTransientLockError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "table is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "deadlock")
}

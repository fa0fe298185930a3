// Package gormstore keeps serial watermarks in a SQL table next to the invoices.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samatributa/invoicegen/internal/counter/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Watermark is one row of counter_watermarks.
type Watermark struct {
	Key       string    `gorm:"column:counter_key;primaryKey;size:128"`
	Value     int64     `gorm:"column:counter_value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Watermark) TableName() string { return "counter_watermarks" }

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var (
	_ domain.Store    = (*Store)(nil)
	_ domain.Advancer = (*Store)(nil)
)

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Get(ctx context.Context, key string) (int64, bool, error) {
	if err := s.check(key); err != nil {
		return 0, false, err
	}
	var row Watermark
	err := s.db.WithContext(ctx).Where("counter_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read watermark %s: %w", key, err)
	}
	return row.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value int64) error {
	if err := s.check(key); err != nil {
		return err
	}
	row := Watermark{Key: key, Value: value, UpdatedAt: s.now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "counter_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"counter_value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("write watermark %s: %w", key, err)
	}
	return nil
}

// Advance inserts the row when missing, otherwise issues a guarded UPDATE.
// Both statements are single-row atomic in every supported dialect.
func (s *Store) Advance(ctx context.Context, key string, value int64) (int64, bool, error) {
	if err := s.check(key); err != nil {
		return 0, false, err
	}
	db := s.db.WithContext(ctx)
	now := s.now()

	insert := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Watermark{Key: key, Value: value, UpdatedAt: now})
	if insert.Error != nil {
		return 0, false, fmt.Errorf("advance watermark %s: %w", key, insert.Error)
	}
	if insert.RowsAffected == 1 {
		return value, true, nil
	}

	update := db.Model(&Watermark{}).
		Where("counter_key = ? AND counter_value < ?", key, value).
		Updates(map[string]any{"counter_value": value, "updated_at": now})
	if update.Error != nil {
		return 0, false, fmt.Errorf("advance watermark %s: %w", key, update.Error)
	}
	if update.RowsAffected == 1 {
		return value, true, nil
	}

	current, _, err := s.Get(ctx, key)
	if err != nil {
		return 0, false, err
	}
	return current, false, nil
}

func (s *Store) check(key string) error {
	if s == nil || s.db == nil {
		return domain.ErrNotConfigured
	}
	if key == "" {
		return domain.ErrEmptyKey
	}
	return nil
}

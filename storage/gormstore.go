package storage

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chowtrack/models"
)

// GormStore implements Store on a single kv_records table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&models.KVRecord{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) Get(key string) (string, bool, error) {
	var rec models.KVRecord
	err := s.db.Where("key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.Value, true, nil
}

func (s *GormStore) Put(key, value string) error {
	rec := models.KVRecord{Key: key, Value: value}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rec).Error
}

func (s *GormStore) Has(key string) (bool, error) {
	var n int64
	err := s.db.Model(&models.KVRecord{}).Where("key = ?", key).Count(&n).Error
	return n > 0, err
}

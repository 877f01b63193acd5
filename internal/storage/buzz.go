package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// BuzzSnapshot 一次 buzz 指数计算中某位艺人的结果
type BuzzSnapshot struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	RunDate       string            `gorm:"size:10;index" json:"runDate"` // YYYY-MM-DD
	Rank          int               `json:"rank"`
	Artist        string            `gorm:"size:256;index" json:"artist"`
	YTViewsSum    float64           `json:"ytViewsSum"`
	WikiViewsMean float64           `json:"wikiViewsMean"`
	LFMListeners  float64           `json:"lfmListeners"`
	LFMPlaycount  float64           `json:"lfmPlaycount"`
	Index         float64           `gorm:"column:kbuzz_index;index" json:"kbuzzIndex"`
	Signals       datatypes.JSONMap `gorm:"type:jsonb" json:"signals"`

	CreatedAt time.Time `json:"createdAt"`
}

// BuzzStore 保存 buzz 指数的历史结果，可选组件
type BuzzStore struct {
	DB *gorm.DB
}

func OpenBuzzStore(dsn string) (*BuzzStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&BuzzSnapshot{}); err != nil {
		return nil, err
	}
	return NewBuzzStore(db), nil
}

func NewBuzzStore(db *gorm.DB) *BuzzStore {
	return &BuzzStore{DB: db}
}

// SaveRun 以 runDate 为幂等键：先删当天旧结果再整批写入
func (s *BuzzStore) SaveRun(ctx context.Context, runDate string, rows []BuzzSnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].RunDate = runDate
		rows[i].Artist = toValidUTF8(rows[i].Artist)
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_date = ?", runDate).Delete(&BuzzSnapshot{}).Error; err != nil {
			return err
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("save buzz run %s: %w", runDate, err)
	}
	return nil
}

// ListRun 按名次返回某次计算的结果
func (s *BuzzStore) ListRun(ctx context.Context, runDate string, limit int) ([]BuzzSnapshot, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var list []BuzzSnapshot
	err := s.DB.WithContext(ctx).
		Where("run_date = ?", runDate).
		Order("rank ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list buzz run %s: %w", runDate, err)
	}
	return list, nil
}

// LatestRunDate 没有任何记录时返回空字符串
func (s *BuzzStore) LatestRunDate(ctx context.Context) (string, error) {
	var dates []string
	err := s.DB.WithContext(ctx).
		Model(&BuzzSnapshot{}).
		Order("run_date DESC").
		Limit(1).
		Pluck("run_date", &dates).Error
	if err != nil {
		return "", fmt.Errorf("latest buzz run: %w", err)
	}
	if len(dates) == 0 {
		return "", nil
	}
	return dates[0], nil
}

package store

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/efreitasn/seatswap/internal/domain"
)

// SwapRecord is the persisted form of one executed swap leg. A cycle of
// size n becomes n rows sharing a swap_id, so the full exchange can be
// reconstructed by grouping on swap_id and ordering by leg_index.
type SwapRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	SwapID     string `gorm:"index"`
	Size       int
	Algorithm  string
	LegIndex   int
	OrderID    string
	SeatID     string
	FromHolder string
	ToHolder   string
	Course     string
	TimeSlot   string
	ExecutedAt time.Time
}

// HistoryStore archives executed swap cycles to SQLite. It supplements
// the in-memory SwapStore with a record that survives restarts; the
// engine itself never reads it.
type HistoryStore struct {
	db *gorm.DB
}

// NewHistoryStore opens (or creates) the SQLite database at path and
// runs migrations.
func NewHistoryStore(path string) (*HistoryStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.AutoMigrate(&SwapRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	return &HistoryStore{db: db}, nil
}

// Archive persists every leg of an executed cycle in one transaction.
func (s *HistoryStore) Archive(c domain.SwapCycle) error {
	records := make([]SwapRecord, len(c.Legs))
	for i, leg := range c.Legs {
		records[i] = SwapRecord{
			SwapID:     c.SwapID,
			Size:       c.Size,
			Algorithm:  string(c.Algorithm),
			LegIndex:   i,
			OrderID:    leg.OrderID,
			SeatID:     leg.SeatID,
			FromHolder: leg.From,
			ToHolder:   leg.To,
			Course:     leg.Course,
			TimeSlot:   leg.TimeSlot,
			ExecutedAt: c.ExecutedAt,
		}
	}
	if err := s.db.Create(&records).Error; err != nil {
		return fmt.Errorf("failed to archive swap %s: %w", c.SwapID, err)
	}
	return nil
}

// Recent returns the most recent leg records, newest cycle first,
// ordered by leg within a cycle.
func (s *HistoryStore) Recent(limit int) ([]SwapRecord, error) {
	var records []SwapRecord
	err := s.db.
		Order("executed_at DESC, swap_id, leg_index ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query swap history: %w", err)
	}
	return records, nil
}

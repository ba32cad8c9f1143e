package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"stock_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const batchSize = 256

// Storage persists settled trades in a SQLite ledger.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the ledger at dbPath and migrates it.
func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		return nil, errors.New("empty DB path")
	}

	// Ensure directory exists
	if dbDir := filepath.Dir(dbPath); dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.TradeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// ======================================================================================
// Trade Operations
// ======================================================================================

// SaveTrades appends trades to the ledger. Sequences already stored are skipped,
// so replaying a batch is harmless.
func (s *Storage) SaveTrades(ctx context.Context, trades []domain.SettledTrade) error {
	if len(trades) == 0 {
		return nil
	}
	records := make([]domain.TradeRecord, len(trades))
	for i, t := range trades {
		records[i] = domain.NewTradeRecord(t)
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "sequence"}}, DoNothing: true}).
		CreateInBatches(records, batchSize).Error
}

// HandleTrades implements domain.TradeSink.
func (s *Storage) HandleTrades(ctx context.Context, trades []domain.SettledTrade) error {
	if err := s.SaveTrades(ctx, trades); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

// CountTrades returns the number of ledger rows.
func (s *Storage) CountTrades(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.TradeRecord{}).Count(&n).Error
	return n, err
}

// VolumeBySymbol returns traded quantity per symbol.
func (s *Storage) VolumeBySymbol(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Symbol string
		Volume int64
	}
	err := s.db.WithContext(ctx).Model(&domain.TradeRecord{}).
		Select("symbol, SUM(quantity) AS volume").
		Group("symbol").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(rows))
	for _, r := range rows {
		result[r.Symbol] = r.Volume
	}
	return result, nil
}

// RecentTrades returns up to limit trades of symbol, newest first.
func (s *Storage) RecentTrades(ctx context.Context, symbol string, limit int) ([]domain.TradeRecord, error) {
	var records []domain.TradeRecord
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("sequence DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ domain.TradeSink = (*Storage)(nil)

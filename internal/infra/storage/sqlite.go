package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tickerboard/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage is the asset registry backed by SQLite.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the registry database at dbPath.
func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer; sync workers share a single connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.AssetInfo{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertAsset creates or updates asset metadata
func (s *Storage) UpsertAsset(asset *domain.AssetInfo) error {
	asset.Symbol = domain.CanonicalSymbol(asset.Symbol)
	if asset.Symbol == "" {
		return domain.ErrInvalidSymbol
	}
	return s.db.Save(asset).Error
}

// GetAsset retrieves asset metadata by symbol
func (s *Storage) GetAsset(symbol string) (*domain.AssetInfo, error) {
	var asset domain.AssetInfo
	err := s.db.First(&asset, "symbol = ?", domain.CanonicalSymbol(symbol)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// ListAssets returns assets of one class ordered by rank. An empty class lists everything.
func (s *Storage) ListAssets(class domain.Class) ([]domain.AssetInfo, error) {
	var assets []domain.AssetInfo
	q := s.db.Order("rank asc, symbol asc")
	if class != "" {
		q = q.Where("class = ?", class)
	}
	err := q.Find(&assets).Error
	return assets, err
}

// SearchAssets matches query against symbol and name, case-insensitively.
func (s *Storage) SearchAssets(query string, limit int) ([]domain.AssetInfo, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}

	like := "%" + strings.ToLower(query) + "%"
	var assets []domain.AssetInfo
	err := s.db.
		Where("LOWER(symbol) LIKE ? OR LOWER(name) LIKE ?", like, like).
		Order("rank asc, symbol asc").
		Limit(limit).
		Find(&assets).Error
	return assets, err
}

// DeleteAsset deletes an asset from the registry
func (s *Storage) DeleteAsset(symbol string) error {
	return s.db.Where("symbol = ?", domain.CanonicalSymbol(symbol)).Delete(&domain.AssetInfo{}).Error
}

// Package storage persists optimization results and metrics snapshots to
// SQLite so stats survive restarts.
package storage

import (
	"os"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pixelmill-server-go/internal/platform/config"
	platformerrors "pixelmill-server-go/internal/platform/errors"
)

// OptimizationRecord is one completed per-image optimization.
type OptimizationRecord struct {
	ID               uint           `gorm:"primaryKey"                 json:"id"`
	SourcePath       string         `gorm:"type:varchar(512);index"    json:"sourcePath"`
	SourceFormat     string         `gorm:"type:varchar(16)"           json:"sourceFormat"`
	OriginalBytes    int64          `                                  json:"originalBytes"`
	OptimizedBytes   int64          `                                  json:"optimizedBytes"`
	CompressionRatio float64        `                                  json:"compressionRatio"`
	DurationMs       int64          `                                  json:"durationMs"`
	VariantCount     int            `                                  json:"variantCount"`
	Variants         datatypes.JSON `gorm:"type:text"                  json:"variants"`
	CreatedAt        time.Time      `                                  json:"createdAt"`
}

// MetricsRecord is a periodic snapshot of the aggregate metrics.
type MetricsRecord struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Snapshot  datatypes.JSON `gorm:"type:text"  json:"snapshot"`
	CreatedAt time.Time      `                  json:"createdAt"`
}

// Open prepares the SQLite database and migrates the schema.
func Open(cfg config.StorageConfig) (*gorm.DB, error) {
	path := cfg.Path
	if path == "" {
		path = filepath.Join("data", "pixelmill.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindStorage, "open", "create data directory", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "open", "open database", err)
	}

	if err := db.AutoMigrate(&OptimizationRecord{}, &MetricsRecord{}); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "open", "migrate schema", err)
	}
	return db, nil
}

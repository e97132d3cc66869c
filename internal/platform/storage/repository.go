package storage

import (
	"context"
	"errors"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"pixelmill-server-go/internal/domain/optimizer"
	platformerrors "pixelmill-server-go/internal/platform/errors"
	"pixelmill-server-go/internal/utils"
)

// Repository implements the optimizer's persistence sink plus the read side
// used by the stats endpoints.
type Repository struct {
	db     *gorm.DB
	logger *utils.Logger
}

func NewRepository(db *gorm.DB, logger *utils.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// SaveResult stores one optimization outcome with its variant list inlined
// as JSON.
func (r *Repository) SaveResult(ctx context.Context, result *optimizer.Result) error {
	variants, err := sonic.Marshal(result.Optimized)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "save_result", "marshal variants", err)
	}

	record := OptimizationRecord{
		SourcePath:       result.Original.Path,
		SourceFormat:     string(result.Original.Format),
		OriginalBytes:    result.Original.ByteSize,
		OptimizedBytes:   result.Original.ByteSize - result.Metadata.TotalSavings,
		CompressionRatio: result.Metadata.CompressionRatio,
		DurationMs:       result.Metadata.OptimizationTimeMs,
		VariantCount:     len(result.Optimized),
		Variants:         datatypes.JSON(variants),
	}

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "save_result", "insert record", err)
	}
	return nil
}

// RecentResults returns the newest records, newest first.
func (r *Repository) RecentResults(ctx context.Context, limit int) ([]OptimizationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []OptimizationRecord
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "recent_results", "query records", err)
	}
	return records, nil
}

// SaveMetrics stores a snapshot of the aggregate metrics.
func (r *Repository) SaveMetrics(ctx context.Context, snap optimizer.MetricsSnapshot) error {
	payload, err := sonic.Marshal(snap)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "save_metrics", "marshal snapshot", err)
	}
	record := MetricsRecord{Snapshot: datatypes.JSON(payload)}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "save_metrics", "insert snapshot", err)
	}
	return nil
}

// LatestMetrics returns the newest stored snapshot, or nil when none exists.
func (r *Repository) LatestMetrics(ctx context.Context) (*optimizer.MetricsSnapshot, error) {
	var record MetricsRecord
	err := r.db.WithContext(ctx).Order("created_at DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "latest_metrics", "query snapshot", err)
	}

	var snap optimizer.MetricsSnapshot
	if err := sonic.Unmarshal(record.Snapshot, &snap); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "latest_metrics", "unmarshal snapshot", err)
	}
	return &snap, nil
}

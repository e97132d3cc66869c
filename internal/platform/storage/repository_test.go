package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pixelmill-server-go/internal/domain/convert"
	domainimage "pixelmill-server-go/internal/domain/image"
	"pixelmill-server-go/internal/domain/optimizer"
)

func testRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&OptimizationRecord{}, &MetricsRecord{}))
	return NewRepository(db, nil)
}

func TestSaveAndListResults(t *testing.T) {
	repo := testRepository(t)

	result := &optimizer.Result{
		Original: &domainimage.SourceImage{
			Path:     "data/images/photo.jpg",
			Format:   domainimage.FormatJPEG,
			ByteSize: 1_200_000,
			Width:    2000,
			Height:   1500,
		},
		Optimized: []convert.Variant{
			{Format: domainimage.FormatWebP, Width: 2000, Height: 1500, ByteSize: 480_000, Quality: 80},
		},
		Metadata: optimizer.ResultMetadata{
			OptimizationTimeMs: 42,
			TotalSavings:       720_000,
			CompressionRatio:   0.4,
		},
	}
	require.NoError(t, repo.SaveResult(context.Background(), result))

	records, err := repo.RecentResults(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "data/images/photo.jpg", records[0].SourcePath)
	assert.Equal(t, "jpeg", records[0].SourceFormat)
	assert.Equal(t, int64(480_000), records[0].OptimizedBytes)
	assert.Equal(t, 1, records[0].VariantCount)
	assert.Contains(t, string(records[0].Variants), "webp")
}

func TestMetricsSnapshotRoundTrip(t *testing.T) {
	repo := testRepository(t)

	latest, err := repo.LatestMetrics(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest, "empty table yields no snapshot")

	snap := optimizer.MetricsSnapshot{
		TotalImages:        3,
		TotalSizeOriginal:  3_000_000,
		TotalSizeOptimized: 1_200_000,
		AverageDurationMs:  55,
		AverageCompression: 0.4,
	}
	require.NoError(t, repo.SaveMetrics(context.Background(), snap))

	latest, err = repo.LatestMetrics(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, snap.TotalImages, latest.TotalImages)
	assert.InDelta(t, snap.AverageCompression, latest.AverageCompression, 1e-9)
}

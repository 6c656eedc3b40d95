package telemetry

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/legalintake/backend/internal/infrastructure/persistence/models"
)

// GormSessionMetricsProvider implements SessionMetricsProvider against the
// session table.
type GormSessionMetricsProvider struct {
	db *gorm.DB
}

// NewGormSessionMetricsProvider creates a session metrics provider.
func NewGormSessionMetricsProvider(db *gorm.DB) *GormSessionMetricsProvider {
	return &GormSessionMetricsProvider{db: db}
}

// CountActiveByStatus returns the number of unexpired sessions per status.
func (p *GormSessionMetricsProvider) CountActiveByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}

	var rows []statusCount
	err := p.db.WithContext(ctx).
		Model(&models.SessionModel{}).
		Select("status, COUNT(*) as count").
		Where("expires_at > ?", time.Now().UTC()).
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

var _ SessionMetricsProvider = (*GormSessionMetricsProvider)(nil)

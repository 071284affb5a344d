package warehouse

import (
	"context"
	"time"

	"github.com/comet-col/platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnalysisLog is the persistence model for completed analyses, kept for
// audit and drift monitoring.
type AnalysisLog struct {
	ID            uuid.UUID         `gorm:"primaryKey;column:id"`
	QueryID       string            `gorm:"column:query_id"`
	MatchID       string            `gorm:"column:match_id"`
	MatchIndex    int               `gorm:"column:match_index"`
	Score         float64           `gorm:"column:score"`
	HighRisk      bool              `gorm:"column:high_risk"`
	Risk          string            `gorm:"column:risk"`
	HistorySize   int               `gorm:"column:history_size"`
	QuerySequence string            `gorm:"column:query_sequence"`
	Assessment    datatypes.JSONMap `gorm:"column:assessment"`
	LatencyMs     float64           `gorm:"column:latency_ms"`
	CreatedAt     time.Time         `gorm:"column:created_at"`
}

// TableName overrides gorm naming.
func (AnalysisLog) TableName() string {
	return "analysis_logs"
}

// Repository handles analysis-log queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&AnalysisLog{})
}

func (r *Repository) RecordAnalysis(ctx context.Context, resp *models.AnalyzeResponse) error {
	log := AnalysisLog{
		ID:            uuid.New(),
		QueryID:       resp.QueryID,
		MatchID:       resp.MatchID,
		MatchIndex:    resp.MatchIndex,
		Score:         resp.Score,
		HighRisk:      resp.HighRisk,
		HistorySize:   resp.HistorySize,
		QuerySequence: resp.QuerySequence,
		LatencyMs:     float64(resp.Latency.Microseconds()) / 1000.0,
		CreatedAt:     time.Now().UTC(),
	}
	if resp.Assessment != nil {
		log.Risk = resp.Assessment.Risk
		log.Assessment = datatypes.JSONMap{
			"risk":         resp.Assessment.Risk,
			"future_event": resp.Assessment.FutureEvent,
			"cost_trend":   resp.Assessment.CostTrend,
			"explanation":  resp.Assessment.Explanation,
			"partial":      resp.Assessment.Partial,
		}
	}
	return r.db.WithContext(ctx).Create(&log).Error
}

// Recent returns the most recent analysis logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]AnalysisLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []AnalysisLog
	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

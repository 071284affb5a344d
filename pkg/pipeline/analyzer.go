package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/comet-col/platform/pkg/common/logger"
	"github.com/comet-col/platform/pkg/common/models"
	"github.com/comet-col/platform/pkg/observability/metrics"
	"github.com/comet-col/platform/pkg/similarity"
	"github.com/comet-col/platform/pkg/trajectory"
)

// Embedder is the external embedding collaborator: text in, fixed-length
// vector out, invoked once per token sequence.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Assessor is the external narrative-generation collaborator.
type Assessor interface {
	Predict(ctx context.Context, querySequence, matchedSequence string) (models.RiskAssessment, error)
}

// Analyzer is the reference orchestration of the trajectory pipeline:
// tokenize, embed, rank, assess. The core components stay pure; latency,
// caching and skip-or-abort policy live here.
type Analyzer struct {
	builder        *trajectory.Builder
	embedder       Embedder
	assessor       Assessor
	cache          VectorCache
	catalogVersion string
	riskThreshold  float64
}

func NewAnalyzer(builder *trajectory.Builder, embedder Embedder, assessor Assessor, cache VectorCache, catalogVersion string, riskThreshold float64) *Analyzer {
	if riskThreshold <= 0 {
		riskThreshold = 0.8
	}
	return &Analyzer{
		builder:        builder,
		embedder:       embedder,
		assessor:       assessor,
		cache:          cache,
		catalogVersion: catalogVersion,
		riskThreshold:  riskThreshold,
	}
}

// Analyze runs the full pipeline for one incoming record against a set of
// historical records. A malformed query record aborts the analysis; a
// malformed historical record is logged and skipped.
func (a *Analyzer) Analyze(ctx context.Context, query models.PatientRecord, history []models.PatientRecord) (*models.AnalyzeResponse, error) {
	start := time.Now()

	querySequence, err := a.builder.Build(query)
	if err != nil {
		return nil, fmt.Errorf("building query trajectory: %w", err)
	}
	metrics.IncTrajectoriesBuilt()

	type candidate struct {
		id       string
		sequence string
	}
	candidates := make([]candidate, 0, len(history))
	vectors := make([][]float64, 0, len(history))
	for _, record := range history {
		sequence, err := a.builder.Build(record)
		if err != nil {
			metrics.IncRecordsSkipped()
			logger.Log.WithError(err).WithField("patient_id", record.ID).Warn("Skipping malformed history record")
			continue
		}
		metrics.IncTrajectoriesBuilt()

		vector, err := a.embedSequence(ctx, sequence)
		if err != nil {
			metrics.IncEmbeddingFailures()
			return nil, fmt.Errorf("embedding history record %s: %w", record.ID, err)
		}
		candidates = append(candidates, candidate{id: record.ID, sequence: sequence})
		vectors = append(vectors, vector)
	}

	queryVector, err := a.embedSequence(ctx, querySequence)
	if err != nil {
		metrics.IncEmbeddingFailures()
		return nil, fmt.Errorf("embedding query trajectory: %w", err)
	}

	result, err := similarity.Rank(queryVector, vectors)
	if err != nil {
		return nil, fmt.Errorf("ranking trajectories: %w", err)
	}

	response := &models.AnalyzeResponse{
		QueryID:       query.ID,
		QuerySequence: querySequence,
		MatchIndex:    result.Index,
		Score:         result.Score,
		HistorySize:   len(candidates),
	}

	if result.Index >= 0 {
		matched := candidates[result.Index]
		response.MatchID = matched.id
		response.MatchSequence = matched.sequence
		response.HighRisk = result.Score > a.riskThreshold
		if response.HighRisk {
			metrics.IncHighRiskMatches()
		}

		if a.assessor != nil {
			assessment, err := a.assessor.Predict(ctx, querySequence, matched.sequence)
			if err != nil {
				logger.Log.WithError(err).Warn("Risk assessment unavailable")
			} else {
				if assessment.Partial {
					metrics.IncAssessmentPartials()
				}
				response.Assessment = &assessment
			}
		}
	}

	response.Latency = time.Since(start)
	metrics.IncAnalyses()

	logger.Log.WithFields(map[string]interface{}{
		"query_id":    query.ID,
		"match_id":    response.MatchID,
		"score":       response.Score,
		"high_risk":   response.HighRisk,
		"history":     response.HistorySize,
		"duration_ms": float64(response.Latency.Microseconds()) / 1000.0,
	}).Info("Trajectory analysis completed")

	return response, nil
}

// embedSequence resolves a sequence to its vector, consulting the cache
// first. The fingerprint ties the entry to the catalog version, so a
// catalog upgrade invalidates stale vectors naturally.
func (a *Analyzer) embedSequence(ctx context.Context, sequence string) ([]float64, error) {
	key := Fingerprint(a.catalogVersion, sequence)
	if a.cache != nil {
		if vector, ok := a.cache.Get(ctx, key); ok {
			metrics.IncCacheHits()
			return vector, nil
		}
		metrics.IncCacheMisses()
	}

	vector, err := a.embedder.Embed(ctx, sequence)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		a.cache.Set(ctx, key, vector)
	}
	return vector, nil
}

package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	analysesTotal      atomic.Int64
	highRiskMatches    atomic.Int64
	cacheHits          atomic.Int64
	cacheMisses        atomic.Int64
	embeddingFailures  atomic.Int64
	trajectoriesBuilt  atomic.Int64
	recordsSkipped     atomic.Int64
	assessmentPartials atomic.Int64
)

func Init() {}

func IncAnalyses()           { analysesTotal.Add(1) }
func IncHighRiskMatches()    { highRiskMatches.Add(1) }
func IncCacheHits()          { cacheHits.Add(1) }
func IncCacheMisses()        { cacheMisses.Add(1) }
func IncEmbeddingFailures()  { embeddingFailures.Add(1) }
func IncTrajectoriesBuilt()  { trajectoriesBuilt.Add(1) }
func IncRecordsSkipped()     { recordsSkipped.Add(1) }
func IncAssessmentPartials() { assessmentPartials.Add(1) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP comet_pipeline_analyses_total Number of trajectory analyses completed.\n")
	fmt.Fprintf(w, "# TYPE comet_pipeline_analyses_total counter\n")
	fmt.Fprintf(w, "comet_pipeline_analyses_total %d\n", analysesTotal.Load())

	fmt.Fprintf(w, "# HELP comet_pipeline_high_risk_matches_total Number of analyses whose best match crossed the risk threshold.\n")
	fmt.Fprintf(w, "# TYPE comet_pipeline_high_risk_matches_total counter\n")
	fmt.Fprintf(w, "comet_pipeline_high_risk_matches_total %d\n", highRiskMatches.Load())

	fmt.Fprintf(w, "# HELP comet_pipeline_vector_cache_hits_total Number of embedding vectors served from cache.\n")
	fmt.Fprintf(w, "# TYPE comet_pipeline_vector_cache_hits_total counter\n")
	fmt.Fprintf(w, "comet_pipeline_vector_cache_hits_total %d\n", cacheHits.Load())

	fmt.Fprintf(w, "# HELP comet_pipeline_vector_cache_misses_total Number of embedding vectors computed on a cache miss.\n")
	fmt.Fprintf(w, "# TYPE comet_pipeline_vector_cache_misses_total counter\n")
	fmt.Fprintf(w, "comet_pipeline_vector_cache_misses_total %d\n", cacheMisses.Load())

	fmt.Fprintf(w, "# HELP comet_pipeline_embedding_failures_total Number of embedding collaborator call failures.\n")
	fmt.Fprintf(w, "# TYPE comet_pipeline_embedding_failures_total counter\n")
	fmt.Fprintf(w, "comet_pipeline_embedding_failures_total %d\n", embeddingFailures.Load())

	fmt.Fprintf(w, "# HELP comet_pipeline_trajectories_built_total Number of token sequences produced.\n")
	fmt.Fprintf(w, "# TYPE comet_pipeline_trajectories_built_total counter\n")
	fmt.Fprintf(w, "comet_pipeline_trajectories_built_total %d\n", trajectoriesBuilt.Load())

	fmt.Fprintf(w, "# HELP comet_pipeline_records_skipped_total Number of malformed history records skipped during analysis.\n")
	fmt.Fprintf(w, "# TYPE comet_pipeline_records_skipped_total counter\n")
	fmt.Fprintf(w, "comet_pipeline_records_skipped_total %d\n", recordsSkipped.Load())

	fmt.Fprintf(w, "# HELP comet_pipeline_assessment_partials_total Number of risk assessments returned with unparseable model output.\n")
	fmt.Fprintf(w, "# TYPE comet_pipeline_assessment_partials_total counter\n")
	fmt.Fprintf(w, "comet_pipeline_assessment_partials_total %d\n", assessmentPartials.Load())
}

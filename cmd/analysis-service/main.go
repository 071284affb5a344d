package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/comet-col/platform/pkg/common/config"
	"github.com/comet-col/platform/pkg/common/database"
	"github.com/comet-col/platform/pkg/common/logger"
	"github.com/comet-col/platform/pkg/common/models"
	"github.com/comet-col/platform/pkg/embedding"
	"github.com/comet-col/platform/pkg/observability/metrics"
	"github.com/comet-col/platform/pkg/pipeline"
	"github.com/comet-col/platform/pkg/risk"
	"github.com/comet-col/platform/pkg/terminology"
	"github.com/comet-col/platform/pkg/trajectory"
	"github.com/comet-col/platform/pkg/warehouse"
	"github.com/gorilla/mux"
)

type AnalysisService struct {
	analyzer *pipeline.Analyzer
	files    *warehouse.FileRepository
	logs     *warehouse.Repository
}

func main() {
	logger.Init()
	metrics.Init()
	cfg := config.Load()

	catalog, err := terminology.Load(cfg.CatalogPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Falling back to built-in terminology catalog")
		catalog = terminology.DefaultCatalog()
	}

	embedder := newEmbedder(cfg)
	predictor := risk.NewPredictor(cfg.LLMBaseURL, cfg.LLMModelName, cfg.LLMAPIKey, cfg.LLMTimeout)
	cache := pipeline.NewRedisCache(database.GetRedis(), cfg.VectorCacheTTL)

	service := &AnalysisService{
		analyzer: pipeline.NewAnalyzer(
			trajectory.NewBuilder(catalog),
			embedder,
			predictor,
			cache,
			catalog.Version,
			cfg.RiskThreshold,
		),
		files: warehouse.NewFileRepository(cfg.DataDir),
	}

	if err := service.files.Seed(); err != nil {
		logger.Log.WithError(err).Warn("Could not seed warehouse folder")
	}

	if db, err := database.GetPostgres(); err == nil && db != nil {
		repo := warehouse.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Warn("Analysis log migration failed")
		} else {
			service.logs = repo
		}
	} else {
		logger.Log.Warn("Analysis logging disabled, PostgreSQL unavailable")
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/metrics", handleMetrics).Methods("GET")
	router.HandleFunc("/api/v1/analyze", service.handleAnalyze).Methods("POST")
	router.HandleFunc("/api/v1/analyses/recent", service.handleRecent).Methods("GET")

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.ServerHost, "8085"),
		Handler: router,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": "8085",
		}).Info("Analysis Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Analysis Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Analysis Service stopped")
}

func newEmbedder(cfg *config.Config) *embedding.Client {
	if cfg.OIDCClientID != "" && cfg.OIDCClientSecret != "" && cfg.OIDCTokenURL != "" {
		return embedding.NewClientWithCredentials(
			cfg.EmbeddingBaseURL, cfg.EmbeddingModel, cfg.EmbeddingTimeout,
			cfg.OIDCTokenURL, cfg.OIDCClientID, cfg.OIDCClientSecret,
		)
	}
	return embedding.NewClient(cfg.EmbeddingBaseURL, cfg.EmbeddingModel, cfg.EmbeddingTimeout)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w)
}

func (s *AnalysisService) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	query := req.Query
	history := req.History

	// An empty request body falls back to the warehouse folder, matching
	// the batch-audit workflow.
	if query.Profile == nil && len(history) == 0 {
		loadedHistory, loadedQuery, err := s.files.Load()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		query = loadedQuery
		history = loadedHistory
	}

	resp, err := s.analyzer.Analyze(r.Context(), query, history)
	if err != nil {
		status := http.StatusInternalServerError
		var structureErr *trajectory.StructureError
		var formatErr *trajectory.FormatError
		if errors.As(err, &structureErr) || errors.As(err, &formatErr) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}

	if s.logs != nil {
		if err := s.logs.RecordAnalysis(r.Context(), resp); err != nil {
			logger.Log.WithError(err).Warn("Failed to persist analysis log")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *AnalysisService) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		http.Error(w, "analysis log storage unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	logs, err := s.logs.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}

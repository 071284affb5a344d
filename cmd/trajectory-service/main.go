package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/comet-col/platform/pkg/common/config"
	"github.com/comet-col/platform/pkg/common/kafka"
	"github.com/comet-col/platform/pkg/common/logger"
	"github.com/comet-col/platform/pkg/common/models"
	"github.com/comet-col/platform/pkg/terminology"
	"github.com/comet-col/platform/pkg/trajectory"
	"github.com/gorilla/mux"
)

type TrajectoryService struct {
	builder  *trajectory.Builder
	producer *kafka.Producer
	consumer *kafka.Consumer
}

func main() {
	logger.Init()
	cfg := config.Load()

	catalog, err := terminology.Load(cfg.CatalogPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Falling back to built-in terminology catalog")
		catalog = terminology.DefaultCatalog()
	}

	service := &TrajectoryService{
		builder: trajectory.NewBuilder(catalog),
	}

	// Kafka producer
	service.producer = kafka.NewProducer("trajectory-events")
	defer service.producer.Close()

	// Kafka consumer
	service.consumer = kafka.NewConsumer("claim-events", "trajectory-service")
	defer service.consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := service.consumer.Consume(ctx, service.processEvent); err != nil {
			logger.Log.WithError(err).Fatal("Consumer error")
		}
	}()

	// HTTP server
	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/api/v1/trajectory", service.handleTrajectory).Methods("POST")

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.ServerHost, "8083"),
		Handler: router,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": "8083",
		}).Info("Trajectory Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Trajectory Service...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Trajectory Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (s *TrajectoryService) processEvent(ctx context.Context, event models.Event) error {
	logger.Log.WithFields(map[string]interface{}{
		"event_id": event.ID,
	}).Info("Processing claim event")

	record, err := decodeRecord(event.Data["record"])
	if err != nil {
		logger.Log.WithError(err).Warn("Claim event carries no usable record")
		return nil
	}

	sequence, err := s.builder.Build(record)
	if err != nil {
		// Structural/format defects are terminal for the record, not
		// retryable; drop the event after logging.
		logger.Log.WithError(err).WithField("patient_id", record.ID).Warn("Rejected malformed claim record")
		return nil
	}

	return s.producer.PublishEvent(ctx, "trajectory", "trajectory-service", map[string]interface{}{
		"original_event_id": event.ID,
		"patient_id":        record.ID,
		"sequence":          sequence,
		"token_count":       len(strings.Fields(sequence)),
	})
}

func (s *TrajectoryService) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	var req models.TrajectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	sequence, err := s.builder.Build(req.Record)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	resp := models.TrajectoryResponse{
		PatientID:  req.Record.ID,
		Sequence:   sequence,
		TokenCount: len(strings.Fields(sequence)),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func decodeRecord(raw interface{}) (models.PatientRecord, error) {
	var record models.PatientRecord
	data, err := json.Marshal(raw)
	if err != nil {
		return record, err
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, err
	}
	return record, nil
}

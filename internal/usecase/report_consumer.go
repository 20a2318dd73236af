package usecase

import (
	"context"
	"encoding/json"
	"time"

	"AnalystCouncil/internal/domain/models"
	domrepo "AnalystCouncil/internal/domain/repository"
	pkgkafka "AnalystCouncil/pkg/kafka"
)

// ReportConsumeHandler consumes published council reports from Kafka
// and persists them to the history store. Running it in a separate
// deployment turns the API node into a pure producer.
type ReportConsumeHandler struct {
	topic   string
	history *HistoryService
	metrics domrepo.Metrics
}

func NewReportConsumeHandler(topic string, history *HistoryService, metrics domrepo.Metrics) *ReportConsumeHandler {
	if metrics == nil {
		metrics = domrepo.NopMetrics()
	}
	return &ReportConsumeHandler{topic: topic, history: history, metrics: metrics}
}

func (h *ReportConsumeHandler) Topic() string { return h.topic }

func (h *ReportConsumeHandler) Handle(ctx context.Context, b []byte) error {
	var r models.CouncilReport
	if err := json.Unmarshal(b, &r); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	// E2E latency from run completion to persistence (approx)
	h.metrics.RecordLatency("report_e2e_seconds", time.Since(r.CompletedAt).Seconds())

	start := time.Now()
	err := h.history.Append(ctx, &r)
	h.metrics.RecordLatency("history_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*ReportConsumeHandler)(nil)

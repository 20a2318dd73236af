package usecase

import (
	"context"
	"fmt"
	"time"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/internal/domain/repository"
	"AnalystCouncil/pkg/logger"
	"AnalystCouncil/pkg/queue"
)

// MsgTypeHistoryAppend is the queue message type for deferred appends.
const MsgTypeHistoryAppend = "history_append"

// HistoryService fronts the history store. Appends from a council run
// are fire-and-forget: through the redis queue when one is wired,
// otherwise on a detached goroutine.
type HistoryService struct {
	store   repository.HistoryStore
	queue   queue.QueueService
	backend string
	log     *logger.Logger
	metrics repository.Metrics
}

func NewHistoryService(store repository.HistoryStore, q queue.QueueService, backend string, log *logger.Logger, metrics repository.Metrics) *HistoryService {
	if metrics == nil {
		metrics = repository.NopMetrics()
	}
	return &HistoryService{
		store:   store,
		queue:   q,
		backend: backend,
		log:     log,
		metrics: metrics,
	}
}

// SetQueue wires the async append queue after construction; the queue's
// append job needs the service, so the two are linked in two steps.
func (s *HistoryService) SetQueue(q queue.QueueService) {
	s.queue = q
}

// Append writes the report synchronously.
func (s *HistoryService) Append(ctx context.Context, report *models.CouncilReport) error {
	if err := s.store.Append(ctx, report); err != nil {
		s.metrics.RecordError("history_append")
		return fmt.Errorf("append report %s: %w", report.ID, err)
	}
	s.metrics.RecordReportPersisted(s.backend)
	return nil
}

// AppendAsync records the report off the caller's critical path. A
// failed enqueue degrades to the direct path rather than losing the
// report.
func (s *HistoryService) AppendAsync(report *models.CouncilReport) {
	if s.queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.queue.PublishMessage(ctx, MsgTypeHistoryAppend, report)
		if err == nil {
			return
		}
		s.log.Warn("history enqueue failed, writing directly",
			logger.String("report_id", report.ID),
			logger.Error(err))
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Append(ctx, report); err != nil {
			s.log.Error("history append failed", logger.Error(err))
		}
	}()
}

// List returns recent reports, newest first.
func (s *HistoryService) List(ctx context.Context, symbol string, limit int) ([]*models.CouncilReport, error) {
	return s.store.List(ctx, symbol, limit)
}

// HistoryAppendJob is the queue worker side of AppendAsync.
type HistoryAppendJob struct {
	service *HistoryService
}

func NewHistoryAppendJob(service *HistoryService) *HistoryAppendJob {
	return &HistoryAppendJob{service: service}
}

func (j *HistoryAppendJob) Name() string { return "history-append" }

func (j *HistoryAppendJob) Type() string { return MsgTypeHistoryAppend }

func (j *HistoryAppendJob) Handle(ctx context.Context, payload interface{}) error {
	report, err := queue.ParsePayload[models.CouncilReport](payload)
	if err != nil {
		return fmt.Errorf("parse history payload: %w", err)
	}
	return j.service.Append(ctx, report)
}

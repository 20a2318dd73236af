package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/internal/domain/repository"
	"AnalystCouncil/pkg/logger"
)

// HistoryAppender records completed reports without blocking the run.
type HistoryAppender interface {
	AppendAsync(report *models.CouncilReport)
}

// CouncilService fans one analysis request out to every expert,
// joins all outcomes, applies the quorum gate, and optionally runs
// the chairman synthesis.
type CouncilService struct {
	runner      *ExpertRunner
	synthesizer *Synthesizer
	specs       []models.ExpertSpec
	threshold   int
	runTimeout  time.Duration
	history     HistoryAppender
	publisher   repository.ReportPublisher
	log         *logger.Logger
	metrics     repository.Metrics
}

type CouncilOption func(*CouncilService)

// WithHistory wires the append-only history sink.
func WithHistory(h HistoryAppender) CouncilOption {
	return func(s *CouncilService) { s.history = h }
}

// WithPublisher wires the downstream report publisher.
func WithPublisher(p repository.ReportPublisher) CouncilOption {
	return func(s *CouncilService) { s.publisher = p }
}

// WithSynthesizer enables the chairman pass.
func WithSynthesizer(syn *Synthesizer) CouncilOption {
	return func(s *CouncilService) { s.synthesizer = syn }
}

func NewCouncilService(runner *ExpertRunner, specs []models.ExpertSpec, threshold int, runTimeout time.Duration, log *logger.Logger, metrics repository.Metrics, opts ...CouncilOption) (*CouncilService, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("council needs at least one expert")
	}
	if threshold < 1 {
		return nil, fmt.Errorf("quorum threshold must be at least 1, got %d", threshold)
	}
	if metrics == nil {
		metrics = repository.NopMetrics()
	}
	s := &CouncilService{
		runner:     runner,
		specs:      specs,
		threshold:  threshold,
		runTimeout: runTimeout,
		log:        log,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Experts returns the identities of the configured council.
func (s *CouncilService) Experts() []models.ExpertIdentity {
	ids := make([]models.ExpertIdentity, len(s.specs))
	for i, spec := range s.specs {
		ids[i] = spec.Identity
	}
	return ids
}

// Run executes one full council round with the configured threshold.
func (s *CouncilService) Run(ctx context.Context, req models.AnalysisRequest) (*models.CouncilReport, error) {
	return s.RunWithThreshold(ctx, req, s.threshold)
}

// RunWithThreshold executes one full council round. The join is a full
// barrier: every expert slot is accounted for before the gate fires,
// and one expert's failure never cancels the others. Results come back
// in configured expert order regardless of completion order.
func (s *CouncilService) RunWithThreshold(ctx context.Context, req models.AnalysisRequest, threshold int) (*models.CouncilReport, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("analysis request needs a symbol")
	}
	if threshold < 1 {
		return nil, fmt.Errorf("quorum threshold must be at least 1, got %d", threshold)
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	started := time.Now().UTC()
	s.log.Info("council run started",
		logger.String("symbol", req.Symbol),
		logger.Int("experts", len(s.specs)))

	results := s.fanOut(runCtx, req)

	successes := CountSuccesses(results)
	decision := Gate(successes, threshold)
	s.metrics.RecordQuorum(successes)
	s.metrics.RecordCouncilRun(string(decision))

	report := &models.CouncilReport{
		ID:        uuid.NewString(),
		Request:   req,
		Results:   results,
		Decision:  decision,
		Successes: successes,
		StartedAt: started,
	}

	if decision == models.DecisionSynthesize && s.synthesizer != nil {
		synStart := time.Now()
		report.Synthesis = s.synthesizer.Synthesize(runCtx, req, results)
		s.metrics.RecordLatency("synthesis", time.Since(synStart).Seconds())
	}

	report.CompletedAt = time.Now().UTC()
	s.log.Info("council run completed",
		logger.String("symbol", req.Symbol),
		logger.String("status", report.StatusLine()),
		logger.Duration("elapsed", report.CompletedAt.Sub(report.StartedAt)))

	s.persist(report)
	return report, nil
}

// fanOut launches every expert concurrently and joins under the run
// deadline. A panicking expert goroutine fills its slot with an
// internal failure instead of taking down the run; an expert still
// pending when the deadline fires fills its slot with a timeout
// failure instead of blocking the join on a producer that ignores
// its context.
func (s *CouncilService) fanOut(ctx context.Context, req models.AnalysisRequest) []models.AnalysisResult {
	type item struct {
		idx int
		res models.AnalysisResult
	}

	ch := make(chan item, len(s.specs))
	var wg sync.WaitGroup

	for i, spec := range s.specs {
		wg.Add(1)
		go func(i int, spec models.ExpertSpec) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					s.log.Error("expert goroutine panicked",
						logger.String("expert", spec.Identity.Name),
						logger.Any("panic", p))
					res := failure(spec.Primary, false, models.ErrKindInternal, fmt.Sprintf("panic: %v", p))
					res.Expert = spec.Identity
					ch <- item{idx: i, res: res}
				}
			}()
			ch <- item{idx: i, res: s.runner.Run(ctx, spec, req)}
		}(i, spec)
	}

	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
	case <-ctx.Done():
	}

	// The channel is buffered one slot per expert, so stragglers park
	// their result there and never leak.
	results := make([]models.AnalysisResult, len(s.specs))
	filled := make([]bool, len(s.specs))
drain:
	for {
		select {
		case it := <-ch:
			results[it.idx] = it.res
			filled[it.idx] = true
		default:
			break drain
		}
	}
	for i := range results {
		if filled[i] {
			continue
		}
		s.log.Warn("expert still pending at run deadline",
			logger.String("expert", s.specs[i].Identity.Name))
		res := failure(s.specs[i].Primary, false, models.ErrKindTimeout, "run deadline exceeded before expert completed")
		res.Expert = s.specs[i].Identity
		results[i] = res
	}
	return results
}

// persist records the report without coupling run latency to storage.
func (s *CouncilService) persist(report *models.CouncilReport) {
	if s.history != nil {
		s.history.AppendAsync(report)
	}
	if s.publisher != nil {
		go func() {
			pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.publisher.Publish(pubCtx, report); err != nil {
				s.log.Error("publish report failed",
					logger.String("report_id", report.ID),
					logger.Error(err))
				s.metrics.RecordError("publish")
			}
		}()
	}
}

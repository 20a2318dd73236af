package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AnalystCouncil/internal/domain/models"
	"AnalystCouncil/internal/domain/repository"
	"AnalystCouncil/pkg/cache"
	"AnalystCouncil/pkg/logger"
)

// QuoteService resolves market snapshots for analysis requests,
// caching lookups and absorbing ticks from the realtime stream.
type QuoteService struct {
	source  repository.QuoteSource
	cache   cache.Service
	ttl     time.Duration
	log     *logger.Logger
	metrics repository.Metrics
}

func NewQuoteService(source repository.QuoteSource, c cache.Service, ttl time.Duration, log *logger.Logger, metrics repository.Metrics) *QuoteService {
	if metrics == nil {
		metrics = repository.NopMetrics()
	}
	return &QuoteService{
		source:  source,
		cache:   c,
		ttl:     ttl,
		log:     log,
		metrics: metrics,
	}
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

// Quote returns the current snapshot for a symbol, cache first.
func (s *QuoteService) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	if s.cache != nil {
		var q models.Quote
		err := s.cache.Get(ctx, quoteKey(symbol), &q)
		if err == nil {
			return &q, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("quote cache read failed",
				logger.String("symbol", symbol),
				logger.Error(err))
		}
	}

	q, err := s.source.Quote(ctx, symbol)
	if err != nil {
		s.metrics.RecordError("quote_fetch")
		return nil, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}
	s.metrics.RecordLastPrice(symbol, q.Price)

	if s.cache != nil {
		if err := s.cache.Set(ctx, quoteKey(symbol), q, s.ttl); err != nil {
			s.log.Warn("quote cache write failed",
				logger.String("symbol", symbol),
				logger.Error(err))
		}
	}
	return q, nil
}

// Absorb updates the cached snapshot from a realtime tick so that
// subsequent council runs see fresh prices without a REST round trip.
func (s *QuoteService) Absorb(ctx context.Context, tick *models.Tick) error {
	if s.cache == nil {
		return nil
	}
	key := quoteKey(tick.Symbol)

	var q models.Quote
	err := s.cache.Get(ctx, key, &q)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return err
	}
	q.Ticker = tick.Symbol
	q.Price = tick.Price
	q.Timestamp = tick.Timestamp
	if q.Currency == "" {
		q.Currency = "USD"
	}

	s.metrics.RecordLastPrice(tick.Symbol, tick.Price)
	return s.cache.Set(ctx, key, &q, s.ttl)
}

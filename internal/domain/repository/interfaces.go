package repository

import (
	"context"

	"AnalystCouncil/internal/domain/models"
)

// HistoryStore is the append-only record of completed council runs.
type HistoryStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Append(ctx context.Context, report *models.CouncilReport) error
	List(ctx context.Context, symbol string, limit int) ([]*models.CouncilReport, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// ReportPublisher fans completed reports out to downstream consumers.
type ReportPublisher interface {
	Publish(ctx context.Context, report *models.CouncilReport) error
	Close() error
}

// MarketStream reads realtime ticks from the market data provider.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// QuoteSource resolves a symbol to its current market snapshot.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

type Metrics interface {
	RecordCouncilRun(decision string)
	RecordExpertOutcome(expert, outcome string)
	RecordFallback(expert string)
	RecordError(kind string)
	RecordQuorum(successes int)
	RecordLatency(op string, seconds float64)
	RecordLastPrice(symbol string, price float64)
	RecordReportPersisted(backend string)
}

// nopMetrics is used when metrics are disabled.
type nopMetrics struct{}

func (nopMetrics) RecordCouncilRun(string)            {}
func (nopMetrics) RecordExpertOutcome(string, string) {}
func (nopMetrics) RecordFallback(string)              {}
func (nopMetrics) RecordError(string)                 {}
func (nopMetrics) RecordQuorum(int)                   {}
func (nopMetrics) RecordLatency(string, float64)      {}
func (nopMetrics) RecordLastPrice(string, float64)    {}
func (nopMetrics) RecordReportPersisted(string)       {}

// NopMetrics returns a Metrics implementation that discards everything.
func NopMetrics() Metrics { return nopMetrics{} }

package usecase

import (
	"context"

	"AnalystCouncil/internal/domain/models"
	drepo "AnalystCouncil/internal/domain/repository"
	mid "AnalystCouncil/internal/middleware"
)

// QuoteCollector reads the realtime market stream and feeds ticks
// through the pipeline into the quote cache.
type QuoteCollector struct {
	stream  drepo.MarketStream
	quotes  *QuoteService
	metrics drepo.Metrics
	pipe    *mid.QuotePipeline
}

// NewQuoteCollector creates a new QuoteCollector instance.
func NewQuoteCollector(stream drepo.MarketStream, quotes *QuoteService, metrics drepo.Metrics, pipe *mid.QuotePipeline) *QuoteCollector {
	if metrics == nil {
		metrics = drepo.NopMetrics()
	}
	return &QuoteCollector{stream: stream, quotes: quotes, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the market stream is connected.
func (c *QuoteCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *QuoteCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	tickCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, tickCh, errCh)
	return nil
}

func (c *QuoteCollector) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case t := <-tickCh:
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				_ = c.quotes.Absorb(ctx, t)
			}
		}
	}
}

func (c *QuoteCollector) Stop() error { return c.stream.Close() }

// Shutdown stops pipeline and closes stream.
func (c *QuoteCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}

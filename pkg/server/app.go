package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	domrepo "AnalystCouncil/internal/domain/repository"
	"AnalystCouncil/internal/usecase"
	pkgch "AnalystCouncil/pkg/clickhouse"
	"AnalystCouncil/pkg/config"
	xhttp "AnalystCouncil/pkg/http"
	pkgkafka "AnalystCouncil/pkg/kafka"
	applogger "AnalystCouncil/pkg/logger"
	pkgqueue "AnalystCouncil/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server

	collector *usecase.QuoteCollector
	consumer  *pkgkafka.Consumer
	kh        pkgkafka.MessageHandler
	chClient  *pkgch.Client
	queue     *pkgqueue.RedisQueue
	publisher domrepo.ReportPublisher
}

// New creates a new App instance.
func New(cfg *config.Config, l *applogger.Logger, handler xhttp.Handler) *App {
	return &App{cfg: cfg, log: l, httpHandler: handler}
}

// SetCollector wires the optional realtime quote collector.
func (a *App) SetCollector(c *usecase.QuoteCollector) { a.collector = c }

// SetConsumer wires the optional Kafka report consumer.
func (a *App) SetConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) {
	a.consumer = c
	a.kh = h
}

// SetCHClient hands over the ClickHouse client for lifecycle management.
func (a *App) SetCHClient(c *pkgch.Client) { a.chClient = c }

// SetQueue hands over the redis queue for lifecycle management.
func (a *App) SetQueue(q *pkgqueue.RedisQueue) { a.queue = q }

// SetPublisher hands over the report publisher for lifecycle management.
func (a *App) SetPublisher(p domrepo.ReportPublisher) { a.publisher = p }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start the history append queue if configured
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.log.Error("history queue start error", applogger.Error(err))
		}
	}

	// Start realtime quote collector if configured
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.log.Error("quote collector error", applogger.Error(err))
			}
		}()
		a.log.Info("quote collector started", applogger.Strings("symbols", a.cfg.Finnhub.Symbols))
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("council service listening", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.log
	if l == nil {
		var err error
		l, err = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
		if err != nil {
			log.Printf("failed to create logger: %v", err)
			return err
		}
	}
	l.Info("shutting down...")

	// Stop collector (pipeline + stream)
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Drain the queue before closing its backing store
	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			l.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}

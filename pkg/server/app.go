package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CoinScope/internal/usecase"
	pkgch "CoinScope/pkg/clickhouse"
	"CoinScope/pkg/config"
	xhttp "CoinScope/pkg/http"
	pkgkafka "CoinScope/pkg/kafka"
	applogger "CoinScope/pkg/logger"
	pkgpg "CoinScope/pkg/postgres"
	pkgqueue "CoinScope/pkg/queue"
)

// Deps carries everything the app lifecycle owns. Optional components are
// nil when their backend or feature is not configured.
type Deps struct {
	Config       *config.Config
	Logger       *applogger.Logger
	Handler      xhttp.Handler
	Collector    *usecase.TickCollector
	Builder      *usecase.BarBuilder
	Consumer     *pkgkafka.Consumer      // kafka backend only
	KafkaHandler pkgkafka.MessageHandler // kafka backend only
	Queue        *pkgqueue.RedisQueue    // advise jobs, nil without redis
	LogQueue     *pkgqueue.RedisQueue    // aggregated log batches, nil without redis
	Advisory     *usecase.AdvisoryUseCase
	ClickHouse   *pkgch.Client
	Postgres     *pkgpg.Client
}

// App owns the long-running goroutines (stream collector, kafka consumer,
// queue workers, advisory scheduler) and shuts them down in reverse start
// order on SIGINT/SIGTERM.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handler    xhttp.Handler
	collector  *usecase.TickCollector
	builder    *usecase.BarBuilder
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	queue      *pkgqueue.RedisQueue
	logQueue   *pkgqueue.RedisQueue
	advisory   *usecase.AdvisoryUseCase
	chClient   *pkgch.Client
	pgClient   *pkgpg.Client
	httpServer *xhttp.Server

	// TickProc is the processor behind the collector, exposed so DI can
	// hand ownership of its publisher to the shutdown path.
	TickProc *usecase.TickProcessor
}

// New creates a new App instance with all dependencies.
func New(d Deps) *App {
	return &App{
		cfg:       d.Config,
		log:       d.Logger,
		handler:   d.Handler,
		collector: d.Collector,
		builder:   d.Builder,
		consumer:  d.Consumer,
		kh:        d.KafkaHandler,
		queue:     d.Queue,
		logQueue:  d.LogQueue,
		advisory:  d.Advisory,
		chClient:  d.ClickHouse,
		pgClient:  d.Postgres,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.log
	l.Info("starting coinscope",
		applogger.String("env", a.cfg.Environment),
		applogger.String("backend", a.cfg.Backend.Type),
	)

	// Route warn/error aggregates through the queue once a publisher exists.
	if a.logQueue != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   a.cfg.Logging.CollectEvery,
			CountThreshold: a.cfg.Logging.CollectMax,
			Topic:          a.cfg.Logging.CollectTopic,
			Publisher:      a.logQueue,
		})
	}

	metricsPath := a.cfg.Metrics.Path
	if a.cfg.Metrics.Disabled {
		metricsPath = ""
	}
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(!a.cfg.Server.DisableCORS),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithRequestMetrics(l, 2*time.Second),
	)
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Stream collector, retrying until the venue accepts the subscription.
	if a.collector != nil {
		go func() {
			for {
				err := a.collector.Start(ctx)
				if err == nil {
					l.Info("collector started", applogger.Strings("symbols", a.cfg.Kraken.Symbols))
					return
				}
				l.Error("collector start failed", applogger.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(a.cfg.Kraken.ReconnectDelay):
				}
			}
		}()
	}

	// Kafka consumer closes the loop from the ticks topic to the bar store.
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Advise queue workers.
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			l.Error("advise queue start error", applogger.Error(err))
		}
	}

	// Config-gated scheduler enqueues the whole symbol list on an interval.
	if a.cfg.Advisory.Enabled && a.queue != nil && a.advisory != nil {
		go a.runScheduler(ctx)
		l.Info("advisory scheduler started",
			applogger.Duration("interval", a.cfg.Advisory.Interval),
			applogger.Strings("symbols", a.advisory.Symbols()),
		)
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) runScheduler(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Advisory.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := usecase.EnqueueAdviceJobs(ctx, a.queue, a.advisory.Symbols()); err != nil {
				a.log.Warn("advice schedule enqueue failed", applogger.Error(err))
				continue
			}
			a.log.Debug("advice jobs enqueued", applogger.Int("symbols", len(a.advisory.Symbols())))
		}
	}
}

// shutdown stops components in reverse start order.
func (a *App) shutdown() error {
	l := a.log
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop the inflow first so nothing new reaches the builder or queue.
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			l.Warn("advise queue stop error", applogger.Error(err))
		}
	}

	// Open buckets hold real trades; persist them before the stores close.
	if a.builder != nil {
		if err := a.builder.FlushAll(ctx); err != nil {
			l.Warn("bar flush error", applogger.Error(err))
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.TickProc != nil {
		a.TickProc.Close()
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.pgClient != nil {
		if err := a.pgClient.Close(); err != nil {
			l.Warn("postgres close error", applogger.Error(err))
		}
	}

	// Final log flush happens inside the collector teardown.
	if a.logQueue != nil {
		a.log.RemoveCollector()
		if err := a.logQueue.Stop(ctx); err != nil {
			l.Warn("log queue stop error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}

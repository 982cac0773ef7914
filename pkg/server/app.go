package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"FinSage/internal/domain/repository"
	"FinSage/internal/handler/api"
	"FinSage/internal/service/cache"
	"FinSage/internal/service/compliance"
	"FinSage/internal/service/marketdata"
	"FinSage/internal/service/retrieval"
	"FinSage/internal/usecase"
	pkgch "FinSage/pkg/clickhouse"
	"FinSage/pkg/config"
	xhttp "FinSage/pkg/http"
	pkgkafka "FinSage/pkg/kafka"
	applogger "FinSage/pkg/logger"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	orch     *usecase.Orchestrator
	market   *marketdata.Client
	engine   *compliance.Engine
	index    *retrieval.Index
	store    *cache.Store
	stream   *marketdata.Stream
	audit    repository.AuditPublisher
	consumer *pkgkafka.Consumer
	kh       *usecase.KafkaAuditHandler
	chClient *pkgch.Client

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. Stream, consumer,
// handler and ClickHouse client may be nil when the matching feature is
// disabled in config.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	orch *usecase.Orchestrator,
	market *marketdata.Client,
	engine *compliance.Engine,
	index *retrieval.Index,
	store *cache.Store,
	stream *marketdata.Stream,
	audit repository.AuditPublisher,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaAuditHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		orch:     orch,
		market:   market,
		engine:   engine,
		index:    index,
		store:    store,
		stream:   stream,
		audit:    audit,
		consumer: consumer,
		kh:       kh,
		chClient: chClient,
	}
}

// routes bundles the public and admin handlers behind one registration.
type routes struct {
	handlers []xhttp.Handler
}

func (r *routes) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctxHandler := api.NewContextEchoHandler(a.log, a.orch, a.market)
	adminHandler := api.NewAdminEchoHandler(a.log, a.market, a.engine, a.index)
	a.httpServer = xhttp.NewServer(&routes{handlers: []xhttp.Handler{ctxHandler, adminHandler}},
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	a.registerHealth()

	if a.stream != nil {
		go a.stream.Run(ctx)
		a.log.Info("stream source started", applogger.Strings("symbols", a.cfg.Market.Stream.Symbols))
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("audit consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("env", a.cfg.Environment))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// registerHealth exposes liveness and readiness probes. Readiness fails
// until the retrieval index has a snapshot installed.
func (a *App) registerHealth() {
	e := a.httpServer.Echo()
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
	e.GET("/readyz", func(c echo.Context) error {
		st := a.index.Status()
		if !st.Ready {
			return c.JSON(503, map[string]any{"status": "not_ready", "reason": "index has no snapshot"})
		}
		if a.chClient != nil {
			if err := a.chClient.Health(c.Request().Context()); err != nil {
				return c.JSON(503, map[string]any{"status": "not_ready", "reason": "clickhouse unreachable"})
			}
		}
		return c.JSON(200, map[string]any{"status": "ready", "chunks": st.Chunks})
	})
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.log.Warn("stream close error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Closing the publisher also closes the Kafka producer it wraps.
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.log.Warn("audit publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("cache store close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}

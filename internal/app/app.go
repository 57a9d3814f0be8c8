package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"NewsDesk/internal/api"
	"NewsDesk/internal/config"
	"NewsDesk/internal/domain"
	"NewsDesk/internal/infrastructure/llm"
	"NewsDesk/internal/infrastructure/lock"
	"NewsDesk/internal/infrastructure/newsapi"
	"NewsDesk/internal/infrastructure/parser"
	"NewsDesk/internal/infrastructure/scheduler"
	"NewsDesk/internal/infrastructure/storage"
	"NewsDesk/internal/infrastructure/telegram"
	"NewsDesk/internal/logging"
	"NewsDesk/internal/metrics"
	"NewsDesk/internal/ports"
	"NewsDesk/internal/rewrite"
	"NewsDesk/internal/scanner"
	"NewsDesk/internal/usecase"
	"NewsDesk/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     ports.Store
	redis     *redis.Client
	registry  *prometheus.Registry
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	handler   *api.Handler
}

// New opens the configured store and builds the application around it.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := storage.NewStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	baseLogger.Info("store ready", "driver", cfg.Database.Driver)

	return NewWithStore(cfg, baseLogger, store), nil
}

// NewWithStore builds the application on an already opened store. The same
// store backs the pipeline and the read API.
func NewWithStore(cfg config.Config, baseLogger *slog.Logger, store ports.Store) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	searcher := newsapi.NewClient(cfg.NewsAPI, baseLogger.With("component", "newsapi"))
	scanners := scanner.NewRegistry(config.StrategyKeyword)
	scanners.Register(parser.NewKeywordScanner(searcher, cfg.NewsAPI.Language, cfg.NewsAPI.SortBy))
	scanners.Register(parser.NewDistrictScanner(searcher, cfg.NewsAPI.Language, cfg.NewsAPI.SortBy))
	source := parser.NewStrategySource(scanners, cfg.Categories, baseLogger.With("component", "source"))

	localCategory, _ := cfg.LocalCategory()
	rewriter := rewrite.NewStyleRewriter(newChatClient(cfg.LLM), rewrite.Options{
		LocalCategory:    localCategory.Name,
		OutputLanguage:   cfg.LLM.OutputLanguage,
		PlaceholderImage: cfg.Pipeline.PlaceholderImage,
		Districts:        rewrite.NewDistrictTagger(cfg.Districts),
		Logger:           baseLogger,
	})

	a := &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		registry: registry,
	}

	var runLock ports.RunLock
	if cfg.Redis.Address != "" {
		a.redis = lock.NewClient(cfg.Redis)
		runLock = lock.NewRedisLock(a.redis, cfg.Redis.LockKey, cfg.Redis.LockTTL)
	}

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram); tg.Enabled() {
		notifier = tg
	}

	var limiter *rate.Limiter
	if cfg.Pipeline.RewriteInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Pipeline.RewriteInterval), 1)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Fetcher:          source,
		Rewriter:         rewriter,
		Articles:         store,
		Jobs:             store,
		Lock:             runLock,
		Notifier:         notifier,
		Metrics:          m,
		Limiter:          limiter,
		Logger:           baseLogger,
		Author:           cfg.Pipeline.Author,
		PlaceholderImage: cfg.Pipeline.PlaceholderImage,
		StaleJobAfter:    cfg.Pipeline.StaleJobAfter,
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.Interval(), cron.PrintfLogger(logger.New("scheduler")))
	a.scheduler = usecase.NewScheduler(driver, a.pipeline, cfg.Scheduler.RunTimeout, baseLogger)
	a.handler = api.NewHandler(store, store, a.pipeline.Running, baseLogger)

	return a
}

func newChatClient(cfg config.LLMConfig) ports.ChatClient {
	if cfg.Provider == config.ProviderAnthropic {
		return llm.NewAnthropicClient(cfg)
	}
	return llm.NewChatGPTClient(cfg)
}

// RunOnce executes a single pipeline pass, bounded by the configured run timeout.
func (a *Application) RunOnce(ctx context.Context) (domain.FetchJob, error) {
	if timeout := a.cfg.Scheduler.RunTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return a.pipeline.Run(ctx)
}

// Handler exposes the HTTP handler for the read API.
func (a *Application) Handler() http.Handler {
	return api.NewRouter(a.handler, a.registry, a.logger)
}

// Serve starts the scheduler and the read API and blocks until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if err := a.scheduler.Start(ctx); err != nil {
		_ = server.Close()
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval())

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	return runErr
}

// Close releases the store and the Redis client.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close(ctx))
	}
	return errors.Join(errs...)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alem-hub/jigsaw-mixer/config"

	// Application layer
	"github.com/alem-hub/jigsaw-mixer/internal/application/command"
	"github.com/alem-hub/jigsaw-mixer/internal/application/query"

	// Domain layer
	"github.com/alem-hub/jigsaw-mixer/internal/domain/jigsaw"
	"github.com/alem-hub/jigsaw-mixer/internal/domain/shared"

	// Infrastructure layer
	"github.com/alem-hub/jigsaw-mixer/internal/infrastructure/messaging"
	"github.com/alem-hub/jigsaw-mixer/internal/infrastructure/metrics"
	"github.com/alem-hub/jigsaw-mixer/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/jigsaw-mixer/internal/infrastructure/persistence/postgres"
	redisstore "github.com/alem-hub/jigsaw-mixer/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/jigsaw-mixer/internal/infrastructure/scheduler"

	// Interface layer
	httpserver "github.com/alem-hub/jigsaw-mixer/internal/interface/http"
	"github.com/alem-hub/jigsaw-mixer/internal/interface/http/handlers"

	// Packages
	"github.com/alem-hub/jigsaw-mixer/pkg/circuitbreaker"
	"github.com/alem-hub/jigsaw-mixer/pkg/logger"
	"github.com/alem-hub/jigsaw-mixer/pkg/retry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the classroom HTTP API",
	Long: `Serve runs the HTTP API used by the teacher's console and classroom
displays. Configuration comes from the environment (see config.Load);
flags override the matching variables.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "listen host (overrides HTTP_HOST)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides HTTP_PORT)")
	serveCmd.Flags().String("preset", "", "TOML lesson preset loaded at startup (overrides SESSION_PRESET)")
	serveCmd.Flags().Uint64("seed", 0, "topic assignment seed, 0 for random (overrides SESSION_SEED)")
	serveCmd.Flags().Bool("redis", false, "publish session events through Redis (overrides REDIS_ENABLED)")

	_ = viper.BindPFlag("http.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("http.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("session.preset", serveCmd.Flags().Lookup("preset"))
	_ = viper.BindPFlag("session.seed", serveCmd.Flags().Lookup("seed"))
	_ = viper.BindPFlag("redis.enabled", serveCmd.Flags().Lookup("redis"))
}

// eventBus is implemented by both the in-memory and the Redis bus.
type eventBus interface {
	shared.EventPublisher
	SubscribeAll(handler shared.EventHandler) error
	Close() error
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var preset *config.Preset
	if cfg.Session.PresetPath != "" {
		preset, err = config.LoadPreset(cfg.Session.PresetPath, cfg.Session)
		if err != nil {
			return err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := newLogger(cfg)
	log.Info("starting jigsaw-mixer",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. МЕТРИКИ
	// ─────────────────────────────────────────────────────────────────────────
	// Интерфейсы остаются nil, если метрики выключены.
	var (
		collector     *metrics.Collector
		recorder      command.Recorder
		busRecorder   messaging.Recorder
		timerRecorder scheduler.TimerRecorder
		httpMetrics   httpserver.MetricsRecorder
	)
	if cfg.Observability.MetricsEnabled {
		collector = metrics.New(cfg.Observability.MetricsNamespace)
		recorder, busRecorder, timerRecorder, httpMetrics = collector, collector, collector, collector
	}

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.SetTimeout(cfg.Observability.HealthCheckTimeout)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ EVENT BUS (Redis опционально)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	busConfig.AsyncMode = true
	busConfig.Recorder = busRecorder

	var bus eventBus
	if cfg.Redis.Enabled {
		bus, err = connectRedisBus(ctx, cfg.Redis, busConfig, log, health)
		if err != nil {
			log.Warn("redis unavailable, continuing with in-memory event bus", logger.Err(err))
		}
	}
	if bus == nil {
		bus = messaging.NewInMemoryEventBus(busConfig)
	}
	defer func() {
		log.Info("closing event bus...")
		if err := bus.Close(); err != nil {
			log.Warn("failed to close event bus", logger.Err(err))
		}
	}()

	if err := bus.SubscribeAll(func(e shared.Event) error {
		log.Debug("session event",
			logger.String("event_type", string(e.EventType())),
			logger.SessionID(e.AggregateID()),
		)
		return nil
	}); err != nil {
		return fmt.Errorf("failed to subscribe event logger: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ПОДКЛЮЧЕНИЕ К БАЗЕ РОСТЕРА (PostgreSQL, опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var roster command.RosterSource
	if cfg.Roster.Enabled() {
		dbConfig := postgres.DefaultConfig()
		dbConfig.URL = cfg.Roster.DatabaseURL
		dbConfig.MaxConns = int32(cfg.Roster.MaxConns)
		dbConfig.ConnectTimeout = cfg.Roster.ConnectTimeout

		conn, err := retry.DoValue(ctx, retry.ConnectPolicy(), func(ctx context.Context) (*postgres.Connection, error) {
			return postgres.NewConnection(ctx, dbConfig)
		}, logRetry(log, "postgres"))
		if err != nil {
			log.Warn("roster database unavailable, roster import disabled", logger.Err(err))
		} else {
			defer func() {
				log.Info("closing roster database...")
				conn.Close()
			}()
			repo := postgres.NewRosterRepository(conn.Pool(), postgres.RosterTable{
				Table:       cfg.Roster.Table,
				NameColumn:  cfg.Roster.NameColumn,
				ClassColumn: cfg.Roster.ClassColumn,
			})
			breaker := circuitbreaker.New(circuitbreaker.RosterSettings(postgres.IsRosterFailure,
				func(name string, from, to circuitbreaker.State) {
					log.Warn("circuit breaker state changed",
						logger.String("breaker", name),
						logger.String("from", from.String()),
						logger.String("to", to.String()),
					)
				}))
			roster = postgres.NewGuardedRoster(repo, breaker, cfg.Roster.QueryTimeout)
			health.AddCheck("postgres", handlers.NewPingCheck(conn))
			log.Info("roster database connected", logger.String("table", cfg.Roster.Table))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. СЕССИЯ И ТАЙМЕР
	// ─────────────────────────────────────────────────────────────────────────
	session := newSession(cfg.Session, preset, uuid.NewString)
	store := memory.NewSessionStore(session)

	countdown := scheduler.NewCountdown(scheduler.CountdownConfig{
		TickInterval: cfg.Session.TimerTick,
		Publisher:    bus,
		Logger:       log,
		Recorder:     timerRecorder,
		OnComplete: func(st scheduler.Status) {
			log.Info("phase timer finished",
				logger.SessionID(st.SessionID),
				logger.Phase(st.Phase),
				logger.Duration("total", st.Total),
			)
		},
	})
	defer func() {
		if err := countdown.Stop(); err != nil && !errors.Is(err, shared.ErrTimerNotRunning) {
			log.Warn("failed to stop countdown", logger.Err(err))
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	commands := command.NewHandlers(command.Dependencies{
		Store:       store,
		Publisher:   bus,
		Recorder:    recorder,
		Logger:      log,
		Roster:      roster,
		Timer:       countdown,
		BaseContext: ctx,
	})
	getSession := query.NewGetSessionHandler(store, countdown)

	if preset != nil {
		if err := applyPreset(ctx, commands, preset); err != nil {
			return fmt.Errorf("failed to apply preset: %w", err)
		}
		log.Info("preset loaded",
			logger.String("path", cfg.Session.PresetPath),
			logger.Int("topics", len(preset.Topics)),
			logger.Int("students", len(preset.Students)),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.EnableMetrics = cfg.Observability.MetricsEnabled
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.APIKeyHeader = cfg.HTTP.APIKeyHeader
	httpConfig.APIKeyHashes = cfg.HTTP.APIKeyHashes
	httpConfig.Version = cfg.App.Version

	httpServer := httpserver.NewServer(httpConfig, httpserver.Dependencies{
		Commands:      commands,
		GetSession:    getSession,
		Logger:        log,
		Metrics:       httpMetrics,
		HealthChecker: health,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ЗАПУСК СЕРВИСОВ
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", logger.String("address", httpConfig.Address()))
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("jigsaw-mixer is running",
		logger.String("http_address", httpConfig.Address()),
		logger.Bool("redis", cfg.Redis.Enabled),
		logger.Bool("roster", roster != nil),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("service error", logger.Err(err))
		return err
	case <-ctx.Done():
		log.Info("context canceled")
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	// Останавливаем HTTP сервер; таймер, шина и база закроются через defer.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown completed with errors", logger.Err(err))
		return nil
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		Format:    logger.Format(cfg.Observability.LogFormat),
		AddCaller: !cfg.IsProduction(),
	})
}

// connectRedisBus connects to Redis and wraps the local bus into a Redis bus.
func connectRedisBus(
	ctx context.Context,
	cfg config.RedisConfig,
	local messaging.InMemoryEventBusConfig,
	log *logger.Logger,
	health *handlers.CompositeHealthChecker,
) (eventBus, error) {
	redisConfig := redisstore.DefaultConfig()
	redisConfig.URL = cfg.URL
	redisConfig.Host = cfg.Host
	redisConfig.Port = cfg.Port
	redisConfig.Password = cfg.Password
	redisConfig.DB = cfg.DB
	redisConfig.PoolSize = cfg.PoolSize
	redisConfig.DialTimeout = cfg.DialTimeout
	redisConfig.ReadTimeout = cfg.ReadTimeout
	redisConfig.WriteTimeout = cfg.WriteTimeout

	pubsub, err := retry.DoValue(ctx, retry.ConnectPolicy(), func(ctx context.Context) (*redisstore.PubSub, error) {
		return redisstore.Connect(ctx, redisConfig)
	}, logRetry(log, "redis"))
	if err != nil {
		return nil, err
	}

	bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
		Client:         pubsub,
		ChannelName:    cfg.Channel,
		LocalBusConfig: local,
		Logger:         log,
	})
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	health.AddCheck("redis", handlers.NewPingCheck(pubsub))
	log.Info("redis event bus connected", logger.String("channel", cfg.Channel))
	return bus, nil
}

// newSession builds the session from configuration; preset durations and
// seed win over the environment.
func newSession(cfg config.SessionConfig, preset *config.Preset, newID jigsaw.IDGenerator) *jigsaw.Session {
	expert, teaching, seed := cfg.ExpertDuration, cfg.TeachingDuration, cfg.Seed
	if preset != nil {
		expert, teaching, seed = preset.ExpertDuration, preset.TeachingDuration, preset.Seed
	}

	opts := []jigsaw.Option{
		jigsaw.WithDurations(expert, teaching),
		jigsaw.WithGroupNames(cfg.HomeGroupPrefix, cfg.ExpertGroupPrefix),
	}
	if newID != nil {
		opts = append(opts, jigsaw.WithIDGenerator(newID))
	}
	if seed != 0 {
		opts = append(opts, jigsaw.WithShuffler(jigsaw.NewSeededShuffler(seed)))
	}
	return jigsaw.NewSession(opts...)
}

// applyPreset fills the session through the regular commands so that the
// usual events are published.
func applyPreset(ctx context.Context, commands *command.Handlers, preset *config.Preset) error {
	if preset.MainTopic != "" {
		mainTopic := preset.MainTopic
		if _, err := commands.Configure.Handle(ctx, command.ConfigureSessionCommand{MainTopic: &mainTopic}); err != nil {
			return err
		}
	}

	for _, pt := range preset.Topics {
		topic, err := commands.AddTopic.Handle(ctx, command.AddTopicCommand{Title: pt.Title})
		if err != nil {
			return err
		}
		if pt.MaterialURL == "" && pt.MaterialDescription == "" {
			continue
		}
		url, desc := pt.MaterialURL, pt.MaterialDescription
		if _, err := commands.UpdateTopic.Handle(ctx, command.UpdateTopicCommand{
			TopicID: topic.ID,
			Patch:   jigsaw.TopicPatch{MaterialURL: &url, MaterialDescription: &desc},
		}); err != nil {
			return err
		}
	}

	if len(preset.Students) > 0 {
		if _, err := commands.ImportStudents.Handle(ctx, command.ImportStudentsCommand{Names: preset.Students}); err != nil {
			return err
		}
	}
	return nil
}

// logRetry logs each failed connection attempt.
func logRetry(log *logger.Logger, target string) retry.Notify {
	return func(attempt int, err error, delay time.Duration) {
		log.Warn("connection attempt failed, retrying",
			logger.String("target", target),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	}
}

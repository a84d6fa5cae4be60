// Command storefront serves the GEM Fashion storefront API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron"

	"github.com/gemfashion/storefront/ai"
	"github.com/gemfashion/storefront/assistant"
	"github.com/gemfashion/storefront/core"
	"github.com/gemfashion/storefront/docgen"
	"github.com/gemfashion/storefront/payment/mpesa"
	"github.com/gemfashion/storefront/resilience"
	"github.com/gemfashion/storefront/server"
	"github.com/gemfashion/storefront/storefront"
	"github.com/gemfashion/storefront/telemetry"

	_ "github.com/gemfashion/storefront/ai/providers/bedrock"
	_ "github.com/gemfashion/storefront/ai/providers/gemini"
	_ "github.com/gemfashion/storefront/ai/providers/mock"
	_ "github.com/gemfashion/storefront/ai/providers/openai"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile string
		port       int
		dev        bool
	)
	flag.StringVar(&configFile, "config", os.Getenv("STOREFRONT_CONFIG"), "JSON or YAML configuration file")
	flag.IntVar(&port, "port", 0, "HTTP port (overrides configuration)")
	flag.BoolVar(&dev, "dev", false, "Development mode: debug text logs")
	flag.Parse()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var opts []core.Option
	if configFile != "" {
		opts = append(opts, core.WithConfigFile(configFile))
	}
	if port > 0 {
		opts = append(opts, core.WithPort(port))
	}
	if dev {
		opts = append(opts, core.WithDevelopmentMode(true))
	}
	cfg, err := core.NewConfig(opts...)
	if err != nil {
		return err
	}

	logger := core.NewProductionLogger(cfg.Logging, cfg.Development, cfg.Name)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tel core.Telemetry = &core.NoOpTelemetry{}
	if cfg.Telemetry.Enabled {
		provider, err := telemetry.NewProvider(ctx, cfg.Telemetry, cfg.Name, logger)
		if err != nil {
			return fmt.Errorf("failed to start telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = provider.Shutdown(shutdownCtx)
		}()
		tel = provider
	}

	memory, health, limiter, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	sessionOpts := []assistant.SessionOption{
		assistant.WithLogger(logger),
		assistant.WithTelemetry(tel),
	}
	if cfg.AI.SystemPrompt != "" {
		sessionOpts = append(sessionOpts, assistant.WithSystemPrompt(cfg.AI.SystemPrompt))
	}
	breaker, err := resilience.NewFromParams(core.CircuitBreakerParams{
		Name:      "assistant",
		Config:    cfg.Resilience.CircuitBreaker,
		Logger:    logger,
		Telemetry: tel,
	})
	if err != nil {
		return fmt.Errorf("failed to create circuit breaker: %w", err)
	}
	sessionOpts = append(sessionOpts, assistant.WithBreaker(breaker))

	sessions := assistant.NewStore(memory, newAIClient(cfg, logger, tel), cfg.AI.SessionTTL, logger, sessionOpts...)

	payer := mpesa.NewSimulator(
		mpesa.WithDelays(mpesa.DefaultDelays().Scaled(cfg.Payment.DelayScale)),
		mpesa.WithLogger(core.ForComponent(logger, "storefront/mpesa")),
		mpesa.WithTelemetry(tel),
	)
	stores := storefront.NewRegistry(storefront.Deps{
		Memory:          memory,
		Payer:           payer,
		Logger:          logger,
		Telemetry:       tel,
		NotificationTTL: cfg.Notifications.TTL,
		SearchDebounce:  cfg.Search.Debounce,
		StorageTTL:      cfg.Storage.TTL,
	})
	defer stores.Close()

	gen := docgen.NewGenerator(
		docgen.WithDelays(docgen.DefaultDelays().Scale(cfg.Payment.DelayScale)),
		docgen.WithLogger(logger),
		docgen.WithTelemetry(tel),
	)
	docs := docgen.NewJobs(gen, memory, cfg.Docs.JobTTL, logger)

	housekeeping, err := scheduleHousekeeping(cfg, logger, stores, sessions, memory)
	if err != nil {
		return err
	}
	defer housekeeping.Stop()

	srv := server.New(cfg, server.Deps{
		Stores:    stores,
		Sessions:  sessions,
		Docs:      docs,
		Limiter:   limiter,
		Health:    health,
		Logger:    logger,
		Telemetry: tel,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received", nil)
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("Graceful shutdown failed", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// openStorage selects the key-value backend for client state, sessions and
// documentation jobs
func openStorage(ctx context.Context, cfg *core.Config, logger core.Logger) (core.Memory, map[string]server.HealthCheck, server.Limiter, func(), error) {
	health := map[string]server.HealthCheck{}
	rpm := cfg.Assistant.RequestsPerMinute

	if cfg.Storage.Provider != "redis" {
		memory := core.NewMemoryStore()
		memory.SetLogger(logger)
		return memory, health, server.NewWindowLimiter(rpm, time.Minute), func() {}, nil
	}

	rc, err := core.NewRedisClient(core.RedisClientOptions{
		RedisURL:  cfg.Storage.RedisURL,
		DB:        -1,
		Namespace: cfg.Storage.Namespace,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if err := rc.HealthCheck(ctx); err != nil {
		// Writes degrade to in-memory values; keep serving.
		logger.Warn("Redis unreachable at startup", map[string]interface{}{
			"error": err.Error(),
		})
	}
	health["redis"] = rc.HealthCheck
	closeFn := func() { _ = rc.Close() }
	return rc, health, server.NewRedisLimiter(rc, rpm, time.Minute), closeFn, nil
}

// newAIClient returns the configured provider. Without one the assistant
// answers every message with its fallback reply, except in development where
// the mock provider stands in.
func newAIClient(cfg *core.Config, logger core.Logger, tel core.Telemetry) core.AIClient {
	opts := append(ai.FromConfig(cfg), ai.WithLogger(logger), ai.WithTelemetry(tel))
	client, err := ai.NewClient(opts...)
	if err == nil {
		return client
	}

	logger.Warn("No AI provider available", map[string]interface{}{
		"error":    err.Error(),
		"provider": cfg.AI.Provider,
	})
	if !cfg.Development.Enabled {
		return nil
	}
	client, err = ai.NewClient(append(opts, ai.WithProvider(string(ai.ProviderMock)))...)
	if err != nil {
		return nil
	}
	return client
}

// scheduleHousekeeping periodically closes idle client stores, drops idle
// chat sessions and sweeps expired in-memory entries
func scheduleHousekeeping(cfg *core.Config, logger core.Logger, stores *storefront.Registry, sessions *assistant.Store, memory core.Memory) (*cron.Cron, error) {
	idle := cfg.Housekeeping.IdleClient
	c := cron.New()
	err := c.AddFunc(cfg.Housekeeping.Schedule, func() {
		closed := stores.CloseIdle(idle)
		pruned := sessions.Prune(idle)
		swept := 0
		if ms, ok := memory.(*core.MemoryStore); ok {
			swept = ms.Sweep()
		}
		if closed+pruned+swept > 0 {
			logger.Debug("Housekeeping completed", map[string]interface{}{
				"stores_closed":   closed,
				"sessions_pruned": pruned,
				"entries_swept":   swept,
			})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid housekeeping schedule %q: %w", cfg.Housekeeping.Schedule, core.ErrInvalidConfiguration)
	}
	c.Start()
	return c, nil
}

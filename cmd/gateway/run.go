package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"mercator-hq/jupiter-gateway/pkg/aliases"
	"mercator-hq/jupiter-gateway/pkg/cli"
	"mercator-hq/jupiter-gateway/pkg/config"
	"mercator-hq/jupiter-gateway/pkg/health"
	"mercator-hq/jupiter-gateway/pkg/overflow"
	"mercator-hq/jupiter-gateway/pkg/processing/costs"
	"mercator-hq/jupiter-gateway/pkg/processing/tokens"
	"mercator-hq/jupiter-gateway/pkg/providerfactory"
	"mercator-hq/jupiter-gateway/pkg/providers"
	"mercator-hq/jupiter-gateway/pkg/proxy/handlers"
	"mercator-hq/jupiter-gateway/pkg/relay"
	"mercator-hq/jupiter-gateway/pkg/resilience/circuitbreaker"
	"mercator-hq/jupiter-gateway/pkg/resilience/failover"
	"mercator-hq/jupiter-gateway/pkg/resilience/retry"
	"mercator-hq/jupiter-gateway/pkg/routing"
	"mercator-hq/jupiter-gateway/pkg/routing/strategies"
	"mercator-hq/jupiter-gateway/pkg/security/secrets"
	"mercator-hq/jupiter-gateway/pkg/server"
	"mercator-hq/jupiter-gateway/pkg/telemetry/logging"
	"mercator-hq/jupiter-gateway/pkg/telemetry/metrics"
	"mercator-hq/jupiter-gateway/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Jupiter gateway server",
	Long: `Start the Jupiter gateway server with the specified configuration.

The server listens on the configured address and proxies LLM API requests
through admission control, the failover-aware router, and the unified
stream relay.

Examples:
  # Start with default config
  gateway run

  # Start with custom config
  gateway run --config /etc/jupiter/config.yaml

  # Override listen address
  gateway run --listen 0.0.0.0:8080

  # Validate config without starting server
  gateway run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	appLogger, err := logging.New(logging.Config{
		Level:          cfg.Telemetry.Logging.Level,
		Format:         cfg.Telemetry.Logging.Format,
		AddSource:      cfg.Telemetry.Logging.AddSource,
		RedactPII:      cfg.Telemetry.Logging.RedactPII,
		BufferSize:     cfg.Telemetry.Logging.BufferSize,
		RedactPatterns: cfg.Telemetry.Logging.RedactPatterns,
		Writer:         os.Stdout,
	})
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer appLogger.Shutdown()

	logger := appLogger.Slog()
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to initialize tracer: %v", err))
	}
	defer tracer.Shutdown(context.Background())

	// Provider manager + registry, circuit breakers wired per instance
	slog.Info("initializing provider manager")
	manager := providerfactory.NewManager()
	defer manager.Close()

	secretsMgr := secrets.BuildManager(&cfg.Security.Secrets)

	providerConfigs := make([]providers.ProviderConfig, 0, len(cfg.Providers))
	for name, providerCfg := range cfg.Providers {
		apiKey, err := secretsMgr.ResolveReferences(context.Background(), providerCfg.APIKey)
		if err != nil {
			slog.Warn("failed to resolve provider API key secret reference", "provider", name, "error", err)
			apiKey = providerCfg.APIKey
		}
		providerConfigs = append(providerConfigs, providers.ProviderConfig{
			Name:       name,
			Type:       name,
			BaseURL:    providerCfg.BaseURL,
			APIKey:     apiKey,
			Timeout:    providerCfg.Timeout,
			MaxRetries: providerCfg.MaxRetries,
		})
	}

	if len(providerConfigs) > 0 {
		if err := manager.LoadFromConfig(providerConfigs); err != nil {
			slog.Warn("some providers failed to initialize", "error", err)
		}
	} else {
		slog.Warn("no providers configured")
	}

	fmt.Printf("✓ Providers initialized (%d providers)\n", manager.ProviderCount())

	breakerCfg := circuitbreaker.Config{
		FailureThreshold: cfg.Gateway.Resilience.FailureThreshold,
		RecoveryTimeout:  cfg.Gateway.Resilience.OpenDuration,
		HalfOpenLimit:    cfg.Gateway.Resilience.HalfOpenMaxProbes,
	}
	registry := providerfactory.NewRegistry(manager, breakerCfg)

	// Resilience layer: retry policy + failover manager
	retryPolicy := retry.Policy{
		MaxAttempts: cfg.Gateway.Resilience.RetryMaxAttempts,
		BaseDelay:   cfg.Gateway.Resilience.RetryBaseDelay,
		Factor:      2,
		JitterPct:   0.1,
		MaxDelay:    cfg.Gateway.Resilience.RetryMaxDelay,
	}
	failoverMgr := failover.NewManager(registry, cfg.Gateway.Resilience.HealthFloor, retryPolicy)

	// Router: ranks a group's candidates with the configured strategy
	// (round-robin/sticky/manual, optionally health-based) before the
	// failover manager applies its own circuit/health filtering. Session
	// and API-key affinity are not yet threaded through from the request,
	// so sticky and manual strategies rank with an empty RoutingRequest and
	// fall back to their round-robin base; health-based ranking doesn't
	// need per-request fields and works in full.
	routeStrategy := strategies.Build(&cfg.Routing)
	failoverMgr.SetStrategy(&failover.RouterStrategy{
		Lookup: registry.Provider,
		SelectOne: func(available []providers.Provider) (providers.Provider, error) {
			return routeStrategy.SelectProvider(&routing.RoutingRequest{}, available)
		},
	})

	// Unified stream relay
	var estimator tokens.Estimator = tokens.NewSimpleEstimator(&cfg.Processing.Tokens)
	if cfg.Processing.Tokens.Estimator == "tiktoken" {
		estimator = tokens.NewTiktokenEstimator(tokens.NewSimpleEstimator(&cfg.Processing.Tokens))
	}
	streamRelay := relay.NewRelay(failoverMgr, registry, logger)

	// Alias resolver, hot-reloaded from disk when enabled
	var aliasResolver *aliases.Resolver
	aliasCtx, aliasCancel := context.WithCancel(context.Background())
	defer aliasCancel()
	if cfg.Gateway.Aliases.Enabled {
		var err error
		aliasResolver, err = aliases.NewResolver(cfg.Gateway.Aliases.FilePath)
		if err != nil {
			slog.Warn("failed to load alias table, continuing without alias resolution", "error", err)
			aliasResolver = nil
		} else if cfg.Gateway.Aliases.Watch {
			go func() {
				if err := aliasResolver.Watch(aliasCtx, cfg.Gateway.Aliases.WatchDebounce, logger); err != nil {
					slog.Warn("alias file watcher stopped", "error", err)
				}
			}()
			fmt.Printf("✓ Alias table loaded and watched (%s)\n", cfg.Gateway.Aliases.FilePath)
		} else {
			fmt.Printf("✓ Alias table loaded (%s)\n", cfg.Gateway.Aliases.FilePath)
		}
	}

	groupResolver := handlers.NewGroupResolver(registry, cfg.Routing.ModelMapping, cfg.Gateway.Resilience.RetryMaxAttempts, aliasResolver)

	resilientChat := handlers.NewResilientChatHandler(
		registry,
		failoverMgr,
		streamRelay,
		groupResolver,
		estimator,
	)

	// Prometheus metrics, mounted on the server when enabled
	metricsCollector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	resilientChat.Metrics = metricsCollector
	resilientChat.Costs = costs.NewCalculator(&cfg.Processing.Costs)
	resilientChat.Tracer = tracer

	// Overflow queue + drainer, only when enabled
	var overflowBackend overflow.Backend
	var drainer *overflow.Drainer
	if cfg.Gateway.Overflow.Enabled {
		var err error
		overflowBackend, err = buildOverflowBackend(cfg)
		if err != nil {
			slog.Warn("failed to initialize overflow queue, continuing without it", "error", err)
		} else {
			drainCfg := overflow.DefaultDrainerConfig()
			drainCfg.Parallelism = cfg.Gateway.Overflow.Parallelism
			drainCfg.VisibilityTimeout = cfg.Gateway.Overflow.VisibilityTimeout
			drainCfg.PollInterval = cfg.Gateway.Overflow.PollInterval

			replayer := relay.NewEnvelopeReplayer(streamRelay, groupResolver)
			drainer = overflow.NewDrainer(overflowBackend, replayer, drainCfg, logger)
			fmt.Printf("✓ Overflow queue initialized (backend: %s)\n", cfg.Gateway.Overflow.Backend)
		}
	}

	// Aggregated circuit-breaker health view
	healthGroups := buildHealthGroups(cfg, registry)
	healthAgg := health.NewAggregator(registry, healthGroups)

	// Admission filter: API-key auth + rate limit/budget enforcement,
	// diverting rate-limited-with-queue-action requests to the overflow
	// queue instead of rejecting them outright.
	admission, err := server.BuildAdmissionChain(cfg, overflowBackend)
	if err != nil {
		return fmt.Errorf("failed to build admission chain: %w", err)
	}
	if cfg.Security.Authentication.Enabled {
		fmt.Println("✓ API key authentication enabled")
	}
	if cfg.Limits.RateLimits.Enabled || cfg.Limits.Budgets.Enabled {
		fmt.Println("✓ Rate limiting / budget enforcement enabled")
	}

	// HTTP server
	slog.Info("creating HTTP server")
	srv := server.NewServer(&cfg.Proxy, &cfg.Security, manager)
	srv.SetGateway(&server.GatewayComponents{
		ResilientChat: resilientChat,
		HealthView:    healthAgg,
		Admission:     admission,
		Metrics:       metricsCollector,
		Tracer:        tracer,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if drainer != nil {
		go drainer.Start(ctx)
		defer drainer.Stop()
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server",
			"address", cfg.Proxy.ListenAddress,
			"tls_enabled", cfg.Security.TLS.Enabled,
		)
		if err := srv.Start(ctx); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	if err := waitForServerReady(cfg.Proxy.ListenAddress, 5*time.Second); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Proxy.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Proxy.ListenAddress)
	fmt.Printf("✓ Gateway health endpoint: http://%s/health/gateway\n", cfg.Proxy.ListenAddress)
	fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Proxy.ListenAddress)
	if tracer.Enabled() {
		fmt.Printf("✓ Tracing enabled (exporter: %s)\n", cfg.Telemetry.Tracing.Exporter)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Proxy.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		if overflowBackend != nil {
			if err := overflowBackend.Close(); err != nil {
				slog.Warn("error closing overflow backend", "error", err)
			}
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}

// buildOverflowBackend constructs the configured overflow backend. The
// sqlite and redis paths are grounded on pkg/overflow's own constructors;
// this function only resolves configuration into the right one.
func buildOverflowBackend(cfg *config.Config) (overflow.Backend, error) {
	switch cfg.Gateway.Overflow.Backend {
	case "sqlite":
		return overflow.NewSQLiteBackend(overflow.SQLiteConfig{Path: cfg.Gateway.Overflow.SQLitePath})
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Gateway.Overflow.RedisAddr})
		return overflow.NewRedisBackend(client, cfg.Gateway.Overflow.RedisPrefix), nil
	case "memory", "":
		return overflow.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported overflow backend: %s", cfg.Gateway.Overflow.Backend)
	}
}

// buildHealthGroups derives the health view's group set from the routing
// model mapping, falling back to one group holding every registered
// instance when no mapping is configured.
func buildHealthGroups(cfg *config.Config, registry *providerfactory.Registry) []health.GroupSpec {
	if len(cfg.Routing.ModelMapping) == 0 {
		return []health.GroupSpec{{Name: "default", Instances: registry.Names()}}
	}

	groups := make([]health.GroupSpec, 0, len(cfg.Routing.ModelMapping))
	for model, instances := range cfg.Routing.ModelMapping {
		groups = append(groups, health.GroupSpec{Name: model, Instances: instances})
	}
	return groups
}

func printBanner(cfg *config.Config) {
	fmt.Printf("Jupiter Gateway v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	providerCount := len(cfg.Providers)
	if providerCount > 0 {
		slog.Debug("providers configured", "count", providerCount)
	}

	if cfg.Gateway.Aliases.Enabled {
		slog.Debug("alias resolution enabled", "path", cfg.Gateway.Aliases.FilePath)
	}
	if cfg.Gateway.Overflow.Enabled {
		slog.Debug("overflow queue enabled", "backend", cfg.Gateway.Overflow.Backend)
	}
}

func waitForServerReady(address string, timeout time.Duration) error {
	// Simple delay for MVP - in production this should poll the health endpoint
	time.Sleep(100 * time.Millisecond)
	return nil
}

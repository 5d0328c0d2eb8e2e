package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/calloway/swgate/internal/swg/blockpage"
	"github.com/calloway/swgate/internal/swg/common/clock"
	"github.com/calloway/swgate/internal/swg/common/log"
	"github.com/calloway/swgate/internal/swg/config"
	"github.com/calloway/swgate/internal/swg/domain"
	"github.com/calloway/swgate/internal/swg/gateways/oracle"
	"github.com/calloway/swgate/internal/swg/gateways/transport"
	"github.com/calloway/swgate/internal/swg/repos/activity"
	"github.com/calloway/swgate/internal/swg/repos/domaincache"
	"github.com/calloway/swgate/internal/swg/repos/store"
	"github.com/calloway/swgate/internal/swg/services/classifier"
	"github.com/calloway/swgate/internal/swg/services/gateway"
	"github.com/calloway/swgate/internal/swg/services/policy"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "swgated"

	defaultShutdownTimeout = 10 * time.Second
)

func init() {
	// Optional .env for local development; environment wins over the file.
	_ = godotenv.Load()
}

// Application holds all the components of the gateway.
type Application struct {
	config    *config.AppConfig
	transport transport.ProxyTransport
	gateway   *gateway.Gateway
	closers   []func() error
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":     version,
		"env":         cfg.Env,
		"log_level":   cfg.LogLevel,
		"port":        cfg.Port,
		"cache_file":  cfg.CacheFile,
		"policy_file": cfg.PolicyFile,
		"cache_size":  cfg.CacheSize,
		"model":       cfg.OracleModel,
	}, "Starting swgate")

	// Build application with all dependencies
	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Server failed")
	}

	log.Info(nil, "swgate stopped gracefully")
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := clock.RealClock{}
	logger := log.GetLogger()

	app := &Application{config: cfg}

	// Build repository layer
	table, err := store.New(store.Options{
		CachePath:       cfg.CacheFile,
		PolicyPath:      cfg.PolicyFile,
		RefreshInterval: cfg.PolicyRefresh(),
		Logger:          logger,
		Clock:           clk,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open durable store: %w", err)
	}
	app.closers = append(app.closers, table.Close)

	cacheSize := cfg.CacheSize
	if cacheSize > uint(^uint(0)>>1) {
		return nil, fmt.Errorf("cache size too large: %d", cacheSize)
	}
	cache, err := domaincache.New(table, int(cacheSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create domain cache: %w", err)
	}
	log.Info(map[string]any{
		"entries": cache.Len(),
		"size":    cfg.CacheSize,
	}, "Domain cache initialized")

	recorder, err := buildRecorders(cfg, logger, app)
	if err != nil {
		return nil, err
	}

	// Build gateway layer
	oracleClient, err := oracle.NewClient(oracle.Options{
		APIKey:  cfg.OracleAPIKey,
		Model:   cfg.OracleModel,
		Timeout: cfg.OracleTimeout(),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create categorization client: %w", err)
	}

	// Build service layer
	classifierService := classifier.New(classifier.Options{
		Cache:    cache,
		Oracle:   oracleClient,
		Policies: table,
		Retry:    classifier.DefaultRetryPolicy(),
		Fallback: domain.Category(cfg.FallbackCategory),
		Clock:    clk,
		Logger:   logger,
	})

	// Seed the fallback category so operators can flip its verdict in the
	// policy file before the first classification failure ever happens.
	if err := seedFallbackPolicy(cfg, table); err != nil {
		return nil, err
	}

	policyService := policy.New(table, logger)

	gatewayService, err := gateway.New(gateway.Options{
		Classifier: classifierService,
		Policy:     policyService,
		Activity:   recorder,
		Clock:      clk,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcement gateway: %w", err)
	}

	// Build transport layer
	renderer, err := buildBlockPage(cfg)
	if err != nil {
		return nil, err
	}
	proxy, err := transport.NewHTTPProxy(transport.HTTPProxyOptions{
		Addr:      fmt.Sprintf(":%d", cfg.Port),
		BlockPage: renderer,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy transport: %w", err)
	}

	app.transport = proxy
	app.gateway = gatewayService
	return app, nil
}

// buildRecorders assembles the activity sinks configured for this deployment.
func buildRecorders(cfg *config.AppConfig, logger log.Logger, app *Application) (activity.Recorder, error) {
	sinks := make([]activity.Recorder, 0, 2)

	jsonl, err := activity.NewJSONL(cfg.ActivityLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open activity log: %w", err)
	}
	sinks = append(sinks, jsonl)
	app.closers = append(app.closers, jsonl.Close)

	if cfg.ActivityDB != "" {
		archive, err := activity.NewArchive(cfg.ActivityDB, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open activity archive: %w", err)
		}
		sinks = append(sinks, archive)
		app.closers = append(app.closers, archive.Close)
		st := archive.Stats()
		log.Info(map[string]any{
			"path":    cfg.ActivityDB,
			"total":   st.Total,
			"blocked": st.Blocked,
		}, "Activity archive opened")
	}

	return activity.NewMulti(sinks...), nil
}

func buildBlockPage(cfg *config.AppConfig) (*blockpage.Renderer, error) {
	if cfg.BlockPageFile == "" {
		return blockpage.New(), nil
	}
	renderer, err := blockpage.NewFromFile(cfg.BlockPageFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load block page: %w", err)
	}
	return renderer, nil
}

// seedFallbackPolicy registers the fallback category with its configured
// verdict. RegisterCategory never overwrites, so an operator edit survives
// restarts.
func seedFallbackPolicy(cfg *config.AppConfig, table *store.Store) error {
	verdict, err := domain.ParseVerdict(cfg.FallbackVerdict)
	if err != nil {
		return err
	}
	created, err := table.RegisterCategory(domain.Category(cfg.FallbackCategory), verdict)
	if err != nil {
		return fmt.Errorf("failed to register fallback category: %w", err)
	}
	if created {
		log.Info(map[string]any{
			"category": cfg.FallbackCategory,
			"verdict":  cfg.FallbackVerdict,
		}, "Fallback category registered")
	}
	return nil
}

// Run starts the proxy and blocks until the context is cancelled.
func (app *Application) Run(ctx context.Context) error {
	if err := app.transport.Start(ctx, app.gateway); err != nil {
		return fmt.Errorf("failed to start proxy transport: %w", err)
	}

	log.Info(map[string]any{
		"address": app.transport.Address(),
	}, "Gateway started")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := app.transport.Stop(); err != nil {
		log.Warn(map[string]any{"error": err}, "Error during transport shutdown")
	}

	done := make(chan struct{})
	go func() {
		for _, closeFn := range app.closers {
			if err := closeFn(); err != nil {
				log.Warn(map[string]any{"error": err}, "Error closing component")
			}
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info(nil, "Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		log.Warn(map[string]any{"timeout": defaultShutdownTimeout}, "Shutdown timeout exceeded")
		return fmt.Errorf("shutdown timeout")
	}
}

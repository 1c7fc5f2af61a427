package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/route-beacon/community-resolver/internal/annotate"
	"github.com/route-beacon/community-resolver/internal/config"
	"github.com/route-beacon/community-resolver/internal/db"
	resolverhttp "github.com/route-beacon/community-resolver/internal/http"
	"github.com/route-beacon/community-resolver/internal/kafka"
	"github.com/route-beacon/community-resolver/internal/metrics"
	"github.com/route-beacon/community-resolver/internal/specsrc"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe()
	case "resolve":
		runResolve()
	case "migrate":
		runMigrate()
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: community-resolver <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve         Start the resolver service")
	fmt.Println("  resolve       Resolve one or more community strings and exit")
	fmt.Println("  migrate       Run database migrations")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <path>   Path to configuration YAML file")
	fmt.Println("  --log-level <lvl> Override log level (debug, info, warn, error)")
}

func parseFlags(args []string) (configPath, logLevel string, rest []string) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		case "--log-level":
			if i+1 < len(args) {
				logLevel = args[i+1]
				i++
			}
		default:
			rest = append(rest, args[i])
		}
	}
	return
}

func loadConfig(args []string) (*config.Config, *zap.Logger, []string) {
	configPath, logLevelOverride, rest := parseFlags(args)

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if logLevelOverride != "" {
		cfg.Service.LogLevel = logLevelOverride
	}

	logger := initLogger(cfg.Service.LogLevel)
	return cfg, logger, rest
}

func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zap.DebugLevel
	case "warn":
		zapLevel = zap.WarnLevel
	case "error":
		zapLevel = zap.ErrorLevel
	default:
		zapLevel = zap.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// migrationsDir returns the path to the migrations directory relative to the binary.
func migrationsDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "migrations"
	}
	return filepath.Join(filepath.Dir(exe), "migrations")
}

func runServe() {
	cfg, logger, _ := loadConfig(os.Args[2:])
	defer logger.Sync()

	metrics.Register()

	logger.Info("starting community-resolver",
		zap.String("instance_id", cfg.Service.InstanceID),
		zap.String("http_listen", cfg.Service.HTTPListen),
		zap.Int("sources", len(cfg.Sources)),
		zap.Bool("annotator", cfg.AnnotatorEnabled()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Build the community registry before anything starts serving.
	registry, err := specsrc.LoadAll(ctx, cfg.Sources, logger.Named("specsrc"))
	if err != nil {
		logger.Fatal("failed to load community specifications", zap.Error(err))
	}

	var (
		dbChecker resolverhttp.DBChecker
		consumer  *kafka.Consumer
		wg        sync.WaitGroup
	)

	if cfg.AnnotatorEnabled() {
		pool, err := db.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		dbChecker = pool

		tlsCfg, err := cfg.Kafka.BuildTLSConfig()
		if err != nil {
			logger.Fatal("failed to build TLS config", zap.Error(err))
		}
		saslMech := cfg.Kafka.BuildSASLMechanism()

		annotator := annotate.NewAnnotator(registry, logger.Named("annotator"))
		writer := annotate.NewWriter(pool, logger.Named("writer"),
			cfg.Annotate.StoreRaw, cfg.Annotate.StoreRawCompress)
		pipeline := annotate.NewPipeline(annotator, writer,
			cfg.Annotate.BatchSize, cfg.Annotate.FlushIntervalMs,
			cfg.Annotate.MaxPayloadBytes, logger.Named("pipeline"))

		records := make(chan []*kgo.Record, cfg.Annotate.ChannelBufferSize)
		flushed := make(chan []*kgo.Record, cfg.Annotate.ChannelBufferSize)

		consumer, err = kafka.NewConsumer(
			cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topics,
			cfg.Kafka.ClientID, cfg.Kafka.FetchMaxBytes, tlsCfg, saslMech,
			logger.Named("kafka"),
		)
		if err != nil {
			logger.Fatal("failed to create consumer", zap.Error(err))
		}
		defer consumer.Close()

		wg.Add(2)
		go func() { defer wg.Done(); consumer.Run(ctx, records, flushed) }()
		go func() {
			defer wg.Done()
			pipeline.Run(ctx, records, flushed)
			close(flushed)
		}()

		logger.Info("annotation pipeline started",
			zap.Strings("topics", cfg.Kafka.Topics),
			zap.String("group_id", cfg.Kafka.GroupID),
		)
	}

	// --- HTTP server ---
	var consumerStatus resolverhttp.ConsumerStatus
	if consumer != nil {
		consumerStatus = consumer
	}
	httpServer := resolverhttp.NewServer(cfg.Service.HTTPListen, registry,
		dbChecker, consumerStatus, cfg.AnnotatorEnabled(), logger.Named("http"))
	if err := httpServer.Start(); err != nil {
		logger.Fatal("failed to start HTTP server", zap.Error(err))
	}

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown.
	shutdownTimeout := time.Duration(cfg.Service.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting HTTP traffic first.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Cancel context to stop the pipeline.
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("pipeline stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout reached, some goroutines may not have finished")
	}

	logger.Info("community-resolver stopped")
}

func runResolve() {
	cfg, logger, communities := loadConfig(os.Args[2:])
	defer logger.Sync()

	if len(communities) == 0 {
		fmt.Fprintln(os.Stderr, "resolve: at least one community string is required")
		os.Exit(1)
	}

	ctx := context.Background()
	registry, err := specsrc.LoadAll(ctx, cfg.Sources, logger.Named("specsrc"))
	if err != nil {
		logger.Fatal("failed to load community specifications", zap.Error(err))
	}

	exitCode := 0
	for _, community := range communities {
		resolved, matched, err := registry.Parse(community)
		switch {
		case err != nil:
			fmt.Printf("%s\terror: %v\n", community, err)
			exitCode = 1
		case !matched:
			fmt.Printf("%s\tnot found\n", community)
			exitCode = 1
		default:
			fmt.Printf("%s\t%s\n", community, resolved)
		}
	}
	os.Exit(exitCode)
}

func runMigrate() {
	cfg, logger, _ := loadConfig(os.Args[2:])
	defer logger.Sync()

	if cfg.Postgres.DSN == "" {
		logger.Fatal("migrate requires postgres.dsn")
	}

	logger.Info("running migrations",
		zap.String("dsn", redactDSN(cfg.Postgres.DSN)),
	)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrationsDir(), logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	logger.Info("migrations complete")
}

func redactDSN(dsn string) string {
	if !strings.Contains(dsn, "://") {
		// keyword=value format, redact the password=... portion
		re := regexp.MustCompile(`password\s*=\s*\S+`)
		return re.ReplaceAllString(dsn, "password=***")
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

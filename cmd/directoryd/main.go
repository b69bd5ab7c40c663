// Directoryd serves categorized, filterable listings of remote collections.
//
// The daemon fetches each configured collection (members, events, projects
// and any custom kinds) from the upstream API or a seed file, and exposes
// grouped and filtered views as JSON over HTTP.
//
// Configuration is read from ~/.config/directoryd/config.yaml (or -config)
// and overridden by DIRECTORYD_* environment variables. See internal/config.
//
// Usage:
//
//	# Start the daemon
//	directoryd
//
//	# Use another config file and port
//	DIRECTORYD_SERVER_HTTP_PORT=8080 directoryd -config /etc/directoryd/config.yaml
//
//	# Print the effective configuration
//	directoryd config
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/directoryd/internal/config"
	"github.com/fyrsmithlabs/directoryd/internal/directory"
	httpserver "github.com/fyrsmithlabs/directoryd/internal/http"
	"github.com/fyrsmithlabs/directoryd/internal/logging"
	"github.com/fyrsmithlabs/directoryd/internal/services"
	"github.com/fyrsmithlabs/directoryd/internal/source"
	"github.com/fyrsmithlabs/directoryd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

const instrumentationName = "github.com/fyrsmithlabs/directoryd"

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/directoryd/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion(os.Stdout)
			os.Exit(0)
		case "config":
			if err := printConfig(os.Stdout, *configPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  directoryd [-config path]           Start the daemon\n")
			fmt.Fprintf(os.Stderr, "  directoryd [-config path] config    Print the effective configuration\n")
			fmt.Fprintf(os.Stderr, "  directoryd version                  Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "directoryd by Fyrsmith Labs\n")
	fmt.Fprintf(w, "Version:    %s\n", version)
	fmt.Fprintf(w, "Commit:     %s\n", gitCommit)
	fmt.Fprintf(w, "Build Date: %s\n", buildDate)
}

// printConfig writes the effective configuration as YAML. Secrets are
// redacted.
func printConfig(w io.Writer, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

// run starts directoryd and blocks until ctx is cancelled.
//
//  1. Loads and validates configuration
//  2. Initializes telemetry, then the logger on top of it
//  3. Builds the fetcher and the collection registry
//  4. Starts every collection load and the seed watchers
//  5. Serves HTTP until ctx is cancelled, then shuts down gracefully
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	logCfg, err := logging.FromSettings(cfg.Logging)
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info(ctx, "starting directoryd",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("source", cfg.Source.BaseURL),
		zap.Bool("telemetry", tel.IsEnabled()),
	)

	fetcher, err := source.NewHTTPFetcher(cfg.Source, source.WithFetchLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	registry, err := services.NewRegistry(services.Options{
		Collections: cfg.Collections,
		Fetcher:     fetcher,
		Logger:      logger,
		Tracer:      tel.Tracer(instrumentationName),
		Metrics:     directory.NewMetrics(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize collections: %w", err)
	}
	defer registry.Close()

	if err := registry.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start collections: %w", err)
	}

	srv, err := httpserver.NewServer(registry, logger,
		&httpserver.Config{
			Host:    cfg.Server.Host,
			Port:    cfg.Server.Port,
			Version: version,
		},
		httpserver.WithHealthChecker(tel),
		httpserver.WithHTTPMetrics(httpserver.NewHTTPMetrics(tel.Meter(instrumentationName), logger)),
	)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	kinds := make([]string, 0, len(registry.Kinds()))
	for _, k := range registry.Kinds() {
		kinds = append(kinds, string(k))
	}
	logger.Info(ctx, "server configured",
		zap.Strings("collections", kinds),
		zap.String("health_endpoint", fmt.Sprintf("http://%s/health", srv.Addr())),
		zap.String("metrics_endpoint", "/metrics"),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

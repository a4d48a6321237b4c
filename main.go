package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foomo/contentserver-pagecontext/config"
	"github.com/foomo/contentserver-pagecontext/mcp"
	"github.com/foomo/contentserver-pagecontext/service"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var errNoTransport = errors.New("no transport enabled: set -http, server.http or -stdio")

func main() {
	// Define command line flags
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	stdioMode := flag.Bool("stdio", true, "Serve over stdio when no HTTP address is set")
	httpAddr := flag.String("http", "", "HTTP server address (e.g., ':8080'), overrides server.http")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if err := run(*configPath, *stdioMode, *httpAddr, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, stdioMode bool, httpAddr string, verbose bool) error {
	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.DefaultConfig()
	if configPath != "" {
		if cfg, err = config.LoadFromFile(configPath); err != nil {
			return err
		}
	}
	if httpAddr != "" {
		cfg.Server.HTTP = httpAddr
	}

	registry := prometheus.NewRegistry()
	siteSettings := cfg.SiteSettings()
	serviceInstance := service.NewService(
		siteSettings,
		service.WithLogger(logger.Named("service")),
		service.WithResolver(cfg.Resolver()),
		service.WithRegisterer(registry),
	)
	s := mcp.NewServer(logger.Named("mcp"), serviceInstance, siteSettings.ContentServerURL != "")

	if cfg.Server.HTTP != "" {
		return serveHTTP(logger, cfg, s, serviceInstance, registry)
	}
	if !stdioMode {
		return errNoTransport
	}

	logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s)
}

func serveHTTP(logger *zap.Logger, cfg *config.Config, s *server.MCPServer, serviceInstance service.Service, registry *prometheus.Registry) error {
	handler := mcp.NewMcpHTTPSSEServer(logger.Named("http"), s, serviceInstance, cfg.Server.Endpoint, registry, &mcp.SSEServerConfig{
		KeepaliveInterval: cfg.Server.SSE.KeepaliveInterval,
		BufferSize:        cfg.Server.SSE.BufferSize,
		ClientTimeout:     cfg.Server.SSE.ClientTimeout,
	})
	defer handler.Close()

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTP,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to shut down HTTP server", zap.Error(err))
		}
	}()

	logger.Info("starting MCP server", zap.String("address", cfg.Server.HTTP), zap.String("endpoint", cfg.Server.Endpoint))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

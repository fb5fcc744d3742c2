// Package main provides the gigbox server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/gigbox/gigbox/internal/api/rest"
	"github.com/gigbox/gigbox/internal/app/orchestrator"
	"github.com/gigbox/gigbox/internal/app/playlist"
	"github.com/gigbox/gigbox/internal/app/search"
	"github.com/gigbox/gigbox/internal/infra/bus"
	"github.com/gigbox/gigbox/internal/infra/config"
	"github.com/gigbox/gigbox/internal/infra/logger"
	"github.com/gigbox/gigbox/internal/infra/spotify"
	"github.com/gigbox/gigbox/internal/infra/ytmusic"
)

var (
	app        = kingpin.New("gigbox", "gigbox party jukebox server")
	configPath = app.Flag("config", "Path to config file").Default("config/gigbox.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := bus.Connect(bus.Config{
		URL:           cfg.Bus.URL,
		Name:          "gigbox-server",
		MaxReconnects: cfg.Bus.MaxReconnects,
		ReconnectWait: time.Duration(cfg.Bus.ReconnectWait) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to event bus: %w", err)
	}
	defer conn.Close()

	lib, err := playlist.NewLibrary(
		cfg.Playlists.Dir,
		filepath.Join(cfg.Playlists.Dir, cfg.Playlists.StateFile),
		cfg.Playlists.DefaultKey,
	)
	if err != nil {
		return fmt.Errorf("failed to load playlist library: %w", err)
	}

	hist := orchestrator.NewHistory(filepath.Join(cfg.Playlists.Dir, cfg.Playlists.HistoryFile))

	chain, err := buildSearchChain(cfg)
	if err != nil {
		return fmt.Errorf("failed to build search chain: %w", err)
	}

	orch := orchestrator.New(lib, hist, chain, conn)
	if err := orch.Start(conn); err != nil {
		return fmt.Errorf("failed to subscribe orchestrator: %w", err)
	}
	go orch.Run(ctx)
	defer orch.Flush()

	api := rest.New(orch, lib, hist, chain, conn)
	// h2c lets the bridge and dashboard reuse HTTP/2 connections without TLS.
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(api.Router(), &http2.Server{}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// buildSearchChain wires the configured search providers in order. An
// unknown provider type is a config error; a provider that fails to
// construct is skipped with a warning so one bad credential does not take
// the whole chain down.
func buildSearchChain(cfg *config.Config) (*search.Chain, error) {
	var providers []search.ProviderWithMetadata

	for _, pc := range cfg.Search.Providers {
		var (
			provider search.Provider
			err      error
		)
		switch pc.Type {
		case "ytmusic":
			provider, err = ytmusic.New(pc.Settings)
		case "spotify":
			provider, err = spotify.New(pc.Settings)
		default:
			return nil, fmt.Errorf("unknown search provider type: %s", pc.Type)
		}
		if err != nil {
			zlog.Warn().Msgf("Skipping search provider: type=%s error=%v", pc.Type, err)
			continue
		}

		name := pc.DisplayName
		if name == "" {
			name = provider.Name()
		}
		providers = append(providers, search.ProviderWithMetadata{Provider: provider, DisplayName: name})
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no usable search providers configured")
	}
	return search.NewChain(providers), nil
}

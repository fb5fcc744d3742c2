// Package main provides the headless audio player entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/gigbox/gigbox/internal/app/bridge"
	"github.com/gigbox/gigbox/internal/app/player"
	"github.com/gigbox/gigbox/internal/infra/bus"
	"github.com/gigbox/gigbox/internal/infra/config"
	"github.com/gigbox/gigbox/internal/infra/logger"
)

// cacheMaxAge is how long downloaded audio is kept before the startup
// sweep removes it.
const cacheMaxAge = 7 * 24 * time.Hour

var (
	app        = kingpin.New("audioplayer", "gigbox headless audio player")
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
		zlog.Error().Msgf("Audio player error: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := bus.Connect(bus.Config{
		URL:           cfg.Bus.URL,
		Name:          "gigbox-audioplayer",
		MaxReconnects: cfg.Bus.MaxReconnects,
		ReconnectWait: time.Duration(cfg.Bus.ReconnectWait) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to event bus: %w", err)
	}
	defer conn.Close()

	engine, err := player.New(player.Config{
		CacheDir:        cfg.Audio.CacheDir,
		PlayerBin:       cfg.Audio.PlayerBin,
		DownloaderBin:   cfg.Audio.DownloaderBin,
		ProberBin:       cfg.Audio.ProberBin,
		MixerControl:    cfg.Audio.MixerControl,
		MixerDevice:     cfg.Audio.MixerDevice,
		Gain:            cfg.Audio.Gain,
		DownloadTimeout: time.Duration(cfg.Audio.DownloadTimeoutSec) * time.Second,
		InitialVolume:   cfg.Audio.InitialVolume,
		TestAudioFile:   cfg.Audio.TestAudioFile,
	})
	if err != nil {
		return fmt.Errorf("failed to create playback engine: %w", err)
	}

	engine.Clean(cacheMaxAge)
	engine.SetVolume(cfg.Audio.InitialVolume)
	go engine.Run(ctx)

	br := bridge.New(engine, conn, bridge.Config{
		ServerURL:         cfg.Server.BaseURL,
		AdvanceDelay:      time.Duration(cfg.Playback.AdvanceDelayMs) * time.Millisecond,
		StatusInterval:    time.Duration(cfg.Playback.StatusIntervalMs) * time.Millisecond,
		PreBufferInterval: time.Duration(cfg.Playback.PreBufferIntervalMs) * time.Millisecond,
	})
	if err := br.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}
	go br.Run(ctx)

	zlog.Info().Msgf("Audio player running: server=%s", cfg.Server.BaseURL)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zlog.Info().Msg("Received shutdown signal...")
	engine.Stop()
	zlog.Info().Msg("Audio player stopped")
	return nil
}

// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration. Both the server and the
// audio player read the same file; each process uses the sections it needs.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Bus       BusConfig       `yaml:"bus"`
	Playlists PlaylistsConfig `yaml:"playlists"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Audio     AudioConfig     `yaml:"audio"`
	Search    SearchConfig    `yaml:"search"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":3000"`
	// BaseURL is how the audio player reaches the server for one-shot
	// HTTP calls (advance-to-next, next-resolved).
	BaseURL string `yaml:"base_url" default:"http://localhost:3000"`
}

// BusConfig represents event bus connection configuration.
type BusConfig struct {
	URL           string `yaml:"url" default:"nats://localhost:4222"`
	MaxReconnects int    `yaml:"max_reconnects" default:"-1"`
	ReconnectWait int    `yaml:"reconnect_wait_sec" default:"2"`
}

// PlaylistsConfig represents fallback playlist configuration.
type PlaylistsConfig struct {
	Dir         string `yaml:"dir" default:"playlists"`
	DefaultKey  string `yaml:"default" default:"house"`
	StateFile   string `yaml:"state_file" default:"jukebox-state.json"`
	HistoryFile string `yaml:"history_file" default:"play-history.json"`
}

// PlaybackConfig represents orchestration timing configuration.
type PlaybackConfig struct {
	AdvanceDelayMs      int `yaml:"advance_delay_ms" default:"1000" validate:"gte=0,lte=10000"`
	StatusIntervalMs    int `yaml:"status_interval_ms" default:"1000" validate:"gte=100,lte=10000"`
	PreBufferIntervalMs int `yaml:"prebuffer_interval_ms" default:"10000" validate:"gte=1000"`
}

// AudioConfig represents audio engine configuration.
type AudioConfig struct {
	CacheDir           string `yaml:"cache_dir" default:"audio-cache"`
	PlayerBin          string `yaml:"player_bin" default:"mpg123"`
	DownloaderBin      string `yaml:"downloader_bin" default:"yt-dlp"`
	ProberBin          string `yaml:"prober_bin" default:"ffprobe"`
	MixerControl       string `yaml:"mixer_control"` // empty tries Master/PCM/Speaker/Headphone
	MixerDevice        string `yaml:"mixer_device"`
	Gain               int    `yaml:"gain" default:"50" validate:"gte=0,lte=100"`
	DownloadTimeoutSec int    `yaml:"download_timeout_sec" default:"60" validate:"gte=5,lte=600"`
	InitialVolume      float64 `yaml:"initial_volume" default:"0.7" validate:"gte=0,lte=1"`
	TestAudioFile      string `yaml:"test_audio_file" default:"audio/stereo-test.mp3"`
}

// SearchConfig represents search provider configuration.
type SearchConfig struct {
	Providers []ProviderConfig `yaml:"providers" validate:"required,min=1"`
}

// ProviderConfig represents a single search provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required"`
	DisplayName string         `yaml:"display_name"`
	Settings    map[string]any `yaml:"settings"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("GIGBOX_NATS_URL"); v != "" {
		c.Bus.URL = v
	}
	if v := os.Getenv("YTDLP_PATH"); v != "" {
		c.Audio.DownloaderBin = v
	}
	if v := os.Getenv("AMIXER_CONTROL"); v != "" {
		c.Audio.MixerControl = v
	}
	if v := os.Getenv("AMIXER_DEVICE"); v != "" {
		c.Audio.MixerDevice = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.setProviderSetting("spotify", "client_id", v)
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.setProviderSetting("spotify", "client_secret", v)
	}
}

func (c *Config) setProviderSetting(providerType, key, value string) {
	for i := range c.Search.Providers {
		if c.Search.Providers[i].Type == providerType {
			if c.Search.Providers[i].Settings == nil {
				c.Search.Providers[i].Settings = make(map[string]any)
			}
			c.Search.Providers[i].Settings[key] = value
			return
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

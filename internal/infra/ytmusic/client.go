// Package ytmusic provides a search client backed by the YouTube Music
// helper script. The helper speaks JSON on stdout; this client is a thin
// subprocess bridge with no search logic of its own.
package ytmusic

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/gigbox/gigbox/internal/app/search"
)

// Config represents ytmusic client configuration.
type Config struct {
	Python     string `mapstructure:"python" default:"python3"`
	Script     string `mapstructure:"script" default:"youtube_music_service.py" validate:"required"`
	TimeoutSec int    `mapstructure:"timeout_sec" default:"15" validate:"gte=1,lte=120"`
}

// Client searches YouTube Music through the helper script.
type Client struct {
	config Config
}

// New creates a new ytmusic client from provider settings.
func New(settings map[string]any) (*Client, error) {
	var cfg Config
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &Client{config: cfg}, nil
}

// helper script output shapes
type searchResponse struct {
	Results []searchResult `json:"results"`
	Error   string         `json:"error"`
}

type searchResult struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Album        string `json:"album"`
	DurationSec  int    `json:"duration"`
	DurationText string `json:"duration_text"`
	Thumbnail    string `json:"thumbnail"`
}

// Search runs the helper script and parses its JSON response.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.config.TimeoutSec)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.config.Python, c.config.Script,
		"search", "--query", query, "--limit", strconv.Itoa(limit))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "helper script failed: %s", stderr.String())
	}

	var resp searchResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, errors.Wrap(err, "failed to parse helper response")
	}
	if resp.Error != "" {
		return nil, errors.Newf("helper error: %s", resp.Error)
	}

	results := make([]search.Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, search.Result{
			TrackID:      r.VideoID,
			Title:        r.Title,
			Artist:       r.Artist,
			Album:        r.Album,
			DurationText: r.DurationText,
			DurationSec:  r.DurationSec,
			ThumbnailURL: r.Thumbnail,
		})
	}
	return results, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "ytmusic"
}

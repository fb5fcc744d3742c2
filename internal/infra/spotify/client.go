// Package spotify provides a search client backed by the Spotify Web API.
// It is a metadata fallback: results carry Spotify track ids, which the
// audio downloader resolves by text search instead of direct fetch.
package spotify

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/gigbox/gigbox/internal/app/search"
)

// Config represents spotify client configuration.
type Config struct {
	ClientID     string `mapstructure:"client_id" validate:"required"`
	ClientSecret string `mapstructure:"client_secret" validate:"required"`
	Market       string `mapstructure:"market" default:"JP"`
}

// Client searches the Spotify catalog with client-credentials auth.
type Client struct {
	config Config
	client *spotifyapi.Client
}

// New creates a new spotify client from provider settings.
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

	ccfg := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := ccfg.Client(context.Background())

	return &Client{
		config: cfg,
		client: spotifyapi.New(httpClient),
	}, nil
}

// Search queries the Spotify track catalog.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	res, err := c.client.Search(ctx, query, spotifyapi.SearchTypeTrack,
		spotifyapi.Limit(limit), spotifyapi.Market(c.config.Market))
	if err != nil {
		return nil, errors.Wrap(err, "spotify search failed")
	}
	if res.Tracks == nil {
		return nil, nil
	}

	results := make([]search.Result, 0, len(res.Tracks.Tracks))
	for _, t := range res.Tracks.Tracks {
		artist := ""
		if len(t.Artists) > 0 {
			artist = t.Artists[0].Name
		}
		thumbnail := ""
		if len(t.Album.Images) > 0 {
			thumbnail = t.Album.Images[0].URL
		}
		durationSec := int(t.Duration / 1000)
		results = append(results, search.Result{
			TrackID:      string(t.ID),
			Title:        t.Name,
			Artist:       artist,
			Album:        t.Album.Name,
			DurationText: fmt.Sprintf("%d:%02d", durationSec/60, durationSec%60),
			DurationSec:  durationSec,
			ThumbnailURL: thumbnail,
		})
	}
	return results, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "spotify"
}

package search

import (
	"context"

	zlog "github.com/rs/zerolog/log"
)

// ProviderWithMetadata wraps a provider with its display metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// Chain tries providers in order until one returns results.
type Chain struct {
	providers []ProviderWithMetadata
}

// NewChain creates a new provider chain.
func NewChain(providers []ProviderWithMetadata) *Chain {
	return &Chain{providers: providers}
}

// Search queries each provider in order and returns the first non-empty
// result set. A provider failure is logged and the next provider is tried;
// when every provider fails or returns nothing, Search returns an empty
// slice and no error — "no result" is a normal outcome here.
func (c *Chain) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	for i, pm := range c.providers {
		results, err := pm.Provider.Search(ctx, query, limit)
		if err != nil {
			zlog.Warn().Msgf("search provider failed, trying next: provider=%s index=%d error=%v",
				pm.DisplayName, i+1, err)
			continue
		}
		if len(results) == 0 {
			zlog.Debug().Msgf("search provider returned no results: provider=%s query=%s",
				pm.DisplayName, query)
			continue
		}
		return results, nil
	}

	zlog.Debug().Msgf("no search provider returned results: query=%s", query)
	return nil, nil
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "provider_chain"
}

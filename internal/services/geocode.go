package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Sentinel addresses returned on recoverable geocoding failures.
// Failures never propagate as errors; they degrade to these strings.
const (
	AddressUnknown       = "Unknown Location"
	AddressAPIKeyMissing = "API Key Missing"
)

// AddressResolver resolves coordinates to a human-readable address
type AddressResolver interface {
	Reverse(ctx context.Context, lat, lon float64) string
}

// Geocoder is an AddressResolver backed by an external reverse-geocoding
// HTTP service, with an optional Redis result cache and in-flight call
// deduplication.
type Geocoder struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
	group    singleflight.Group
}

// NewGeocoder creates a new geocoder. cache may be nil to disable
// caching. timeout bounds the outbound call; on expiry the result
// degrades to AddressUnknown.
func NewGeocoder(baseURL, apiKey string, timeout time.Duration, cache *redis.Client, cacheTTL time.Duration) *Geocoder {
	return &Geocoder{
		baseURL:  baseURL,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
}

// Reverse resolves (lat, lon) to an address string. It never fails:
// a missing credential yields AddressAPIKeyMissing and any other
// failure yields AddressUnknown.
func (g *Geocoder) Reverse(ctx context.Context, lat, lon float64) string {
	if g.apiKey == "" {
		return AddressAPIKeyMissing
	}

	key := fmt.Sprintf("geocode:%.6f:%.6f", lat, lon)

	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, key).Result(); err == nil && cached != "" {
			return cached
		}
	}

	// Concurrent lookups for the same coordinates share one upstream call.
	result, _, _ := g.group.Do(key, func() (interface{}, error) {
		return g.fetch(ctx, lat, lon), nil
	})
	address := result.(string)

	if g.cache != nil && address != AddressUnknown {
		if err := g.cache.Set(ctx, key, address, g.cacheTTL).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to cache geocode result")
		}
	}

	return address
}

func (g *Geocoder) fetch(ctx context.Context, lat, lon float64) string {
	endpoint := fmt.Sprintf("%s/reverse?lat=%s&lon=%s&api_key=%s&format=json",
		g.baseURL,
		url.QueryEscape(fmt.Sprintf("%f", lat)),
		url.QueryEscape(fmt.Sprintf("%f", lon)),
		url.QueryEscape(g.apiKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build geocode request")
		return AddressUnknown
	}

	resp, err := g.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("Geocode request failed")
		return AddressUnknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("Geocode request returned non-OK status")
		return AddressUnknown
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Warn().Err(err).Msg("Failed to decode geocode response")
		return AddressUnknown
	}
	if body.DisplayName == "" {
		return AddressUnknown
	}

	return body.DisplayName
}

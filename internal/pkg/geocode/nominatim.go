package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/pkg/cache"
)

// Address is a reverse geocoding result.
type Address struct {
	DisplayName string `json:"display_name"`
	Road        string `json:"road,omitempty"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
}

// Client resolves coordinates to addresses through the Nominatim API.
// Results are cached because the upstream enforces strict rate limits.
type Client struct {
	baseURL  string
	http     *http.Client
	store    *cache.Store
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, store *cache.Store, cacheTTL time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		store:    store,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Road    string `json:"road"`
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		Country string `json:"country"`
	} `json:"address"`
}

// Reverse resolves a coordinate pair to an address. Coordinates are rounded
// to ~10m so nearby lookups share a cache entry.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*Address, error) {
	key := fmt.Sprintf("geocode:%s:%s",
		strconv.FormatFloat(lat, 'f', 4, 64),
		strconv.FormatFloat(lon, 'f', 4, 64))

	var cached Address
	if c.store != nil && c.store.Get(ctx, key, &cached) {
		return &cached, nil
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("format", "jsonv2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", "looquest/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	var payload nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	city := payload.Address.City
	if city == "" {
		city = payload.Address.Town
	}
	if city == "" {
		city = payload.Address.Village
	}

	addr := &Address{
		DisplayName: payload.DisplayName,
		Road:        payload.Address.Road,
		City:        city,
		Country:     payload.Address.Country,
	}

	if c.store != nil {
		c.store.Set(ctx, key, addr, c.cacheTTL)
	}
	c.logger.Debug("Reverse geocoded",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.String("city", addr.City))

	return addr, nil
}

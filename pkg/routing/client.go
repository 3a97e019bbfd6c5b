package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lintang-b-s/fleetmap/pkg/geo"
	"github.com/lintang-b-s/fleetmap/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	computeRoutesPath = "/api/computeRoutes"
	cacheKeyPrecision = 5
)

type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	Rate      float64
	Burst     int
	CacheSize int
}

type cacheKey struct {
	fromLat, fromLon float64
	toLat, toLon     float64
}

func newCacheKey(from, to geo.Coordinate) cacheKey {
	return cacheKey{
		fromLat: util.RoundFloat(from.Lat, cacheKeyPrecision),
		fromLon: util.RoundFloat(from.Lon, cacheKeyPrecision),
		toLat:   util.RoundFloat(to.Lat, cacheKeyPrecision),
		toLon:   util.RoundFloat(to.Lon, cacheKeyPrecision),
	}
}

type shortestPathResponse struct {
	Eta  float64 `json:"eta"`
	Path string  `json:"path"`
	Dist float64 `json:"distance"`
}

type envelope struct {
	Data  *shortestPathResponse `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to a routing server exposing GET /api/computeRoutes.
type Client struct {
	log     *zap.Logger
	http    *http.Client
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
	cache   *lru.Cache[cacheKey, Path]
}

func NewClient(log *zap.Logger, cfg ClientConfig, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "invalid routing url %q", cfg.BaseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	var cache *lru.Cache[cacheKey, Path]
	if cfg.CacheSize > 0 {
		cache, err = lru.New[cacheKey, Path](cfg.CacheSize)
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		log:     log,
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(limit, burst),
		cache:   cache,
	}, nil
}

func (c *Client) ComputeRoute(ctx context.Context, from, to geo.Coordinate) (Path, error) {
	key := newCacheKey(from, to)
	if c.cache != nil {
		if p, ok := c.cache.Get(key); ok {
			return p, nil
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Path{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	path, err := c.fetch(ctx, from, to)
	if err != nil {
		return Path{}, err
	}
	if c.cache != nil {
		c.cache.Add(key, path)
	}
	return path, nil
}

func (c *Client) fetch(ctx context.Context, from, to geo.Coordinate) (Path, error) {
	q := url.Values{}
	q.Set("origin_lat", formatCoord(from.Lat))
	q.Set("origin_lon", formatCoord(from.Lon))
	q.Set("destination_lat", formatCoord(to.Lat))
	q.Set("destination_lon", formatCoord(to.Lon))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+computeRoutesPath+"?"+q.Encode(), nil)
	if err != nil {
		return Path{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Path{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var body envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return Path{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && body.Error != nil {
			msg = body.Error.Message
		}
		return Path{}, fmt.Errorf("%w: %s", ErrNoPath, msg)
	case resp.StatusCode != http.StatusOK:
		return Path{}, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}
	if decodeErr != nil {
		return Path{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, decodeErr)
	}
	if body.Data == nil || body.Data.Path == "" {
		return Path{}, ErrNoPath
	}

	coords, err := geo.CoordsFromPolyline(body.Data.Path)
	if err != nil {
		return Path{}, fmt.Errorf("%w: bad polyline: %v", ErrUnavailable, err)
	}
	if len(coords) < 2 {
		return Path{}, ErrNoPath
	}

	c.log.Debug("route computed",
		zap.String("from", from.String()), zap.String("to", to.String()),
		zap.Int("points", len(coords)), zap.Float64("eta", body.Data.Eta))

	return Path{Coordinates: coords, DistanceKm: body.Data.Dist, ETA: body.Data.Eta}, nil
}

func formatCoord(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

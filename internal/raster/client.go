package raster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/landcover-cli/internal/resilience"
)

const (
	reduceRegionsPath = "/v1/reduce-regions"
	idProperty        = "ObjectId"
	medianProperty    = "median"
	defaultMaxBatch   = 5000
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for engine requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithMaxBatch caps the number of points sent in one request.
func WithMaxBatch(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBatch = n
		}
	}
}

// Client is an HTTP Sampler backed by the raster analysis engine.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
	maxBatch   int
}

// NewClient creates a Client for the engine at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
		retry:      resilience.DefaultRetryConfig(),
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
		maxBatch:   defaultMaxBatch,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("raster", "reduce-regions")
	}
	return c
}

type reduceRequest struct {
	Image      string                     `json:"image"`
	Band       string                     `json:"band,omitempty"`
	Reducer    string                     `json:"reducer"`
	Scale      float64                    `json:"scale"`
	Collection *geojson.FeatureCollection `json:"collection"`
}

// SampleMedian sends queries to the engine in batches and returns the median
// value per ID. The whole call fails if any batch fails.
func (c *Client) SampleMedian(ctx context.Context, img Image, queries []Query, scale float64) ([]Sample, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	if scale <= 0 {
		scale = DefaultScale
	}

	var out []Sample
	for start := 0; start < len(queries); start += c.maxBatch {
		end := min(start+c.maxBatch, len(queries))
		batch := queries[start:end]

		samples, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]Sample, error) {
			return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]Sample, error) {
				return c.reduce(ctx, img, batch, scale)
			})
		})
		if err != nil {
			return nil, eris.Wrapf(err, "raster: sample batch %d-%d", start, end)
		}
		out = append(out, samples...)
	}

	zap.L().Debug("raster: sampled points",
		zap.String("image", img.Asset),
		zap.Int("queries", len(queries)),
		zap.Int("samples", len(out)),
	)
	return out, nil
}

func (c *Client) reduce(ctx context.Context, img Image, queries []Query, scale float64) ([]Sample, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "raster: rate limit")
	}

	body, err := json.Marshal(reduceRequest{
		Image:      img.Asset,
		Band:       img.Band,
		Reducer:    "median",
		Scale:      scale,
		Collection: featureCollection(queries),
	})
	if err != nil {
		return nil, eris.Wrap(err, "raster: encode request")
	}

	respBody, err := c.post(ctx, reduceRegionsPath, body)
	if err != nil {
		return nil, err
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(respBody, &fc); err != nil {
		return nil, eris.Wrap(err, "raster: parse response")
	}
	return samplesFromFeatures(fc.Features), nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "raster: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "raster: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "raster: read body")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("raster: %s returned status %d: %s", path, resp.StatusCode, truncate(string(respBody), 200))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}
	return respBody, nil
}

func featureCollection(queries []Query) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(queries))}
	for _, q := range queries {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   geom.NewPointFlat(geom.XY, []float64{q.Lon, q.Lat}),
			Properties: map[string]any{idProperty: q.ID},
		})
	}
	return fc
}

func samplesFromFeatures(features []*geojson.Feature) []Sample {
	samples := make([]Sample, 0, len(features))
	for _, f := range features {
		if f == nil {
			continue
		}
		id, ok := propertyString(f.Properties[idProperty])
		if !ok {
			continue
		}
		value, ok := f.Properties[medianProperty].(float64)
		if !ok {
			// No pixels under the point (masked or outside the image).
			continue
		}
		samples = append(samples, Sample{ID: id, Value: value})
	}
	return samples
}

func propertyString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}

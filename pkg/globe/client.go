// Package globe reads land cover observations from the GLOBE Program API.
package globe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/landcover-cli/internal/photos"
	"github.com/sells-group/landcover-cli/internal/resilience"
)

// DefaultBaseURL is the GLOBE measurement search endpoint.
const DefaultBaseURL = "https://api.globe.gov/search/v1/measurement/protocol/measureddate/"

const (
	landCoverProtocol = "land_covers"
	rawPrefix         = "landcovers"
	fieldPrefix       = "lc_"
	dateLayout        = "2006-01-02"
)

// directionOrder ranks the photo directions; other photo fields sort after.
var directionOrder = []string{"North", "East", "South", "West", "Upward", "Downward"}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the search endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// Client queries GLOBE measurements.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    rate.NewLimiter(2, 2),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("globe", "land_covers")
	}
	return c
}

type measurement struct {
	Latitude     *float64       `json:"latitude"`
	Longitude    *float64       `json:"longitude"`
	MeasuredDate string         `json:"measuredDate"`
	Data         map[string]any `json:"data"`
}

type searchResponse struct {
	Count   int           `json:"count"`
	Results []measurement `json:"results"`
}

// LandCover fetches land cover observations measured between start and end,
// inclusive. Records without usable coordinates are skipped.
func (c *Client) LandCover(ctx context.Context, start, end time.Time) ([]photos.Observation, error) {
	if end.Before(start) {
		return nil, eris.Errorf("globe: end %s before start %s", end.Format(dateLayout), start.Format(dateLayout))
	}

	q := url.Values{}
	q.Set("protocols", landCoverProtocol)
	q.Set("startdate", start.Format(dateLayout))
	q.Set("enddate", end.Format(dateLayout))
	q.Set("geojson", "FALSE")
	q.Set("sample", "FALSE")
	u := c.baseURL + "?" + q.Encode()

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*searchResponse, error) {
		return c.search(ctx, u)
	})
	if err != nil {
		return nil, eris.Wrap(err, "globe: land cover search")
	}

	out := make([]photos.Observation, 0, len(resp.Results))
	skipped := 0
	for _, m := range resp.Results {
		obs, ok := toObservation(m)
		if !ok {
			skipped++
			continue
		}
		out = append(out, obs)
	}

	zap.L().Info("globe: loaded land cover observations",
		zap.Int("observations", len(out)),
		zap.Int("skipped", skipped),
	)
	return out, nil
}

func (c *Client) search(ctx context.Context, u string) (*searchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, eris.Wrap(err, "decode response")
	}
	return &out, nil
}

// normalizeKey maps "landcoversNorthPhotoUrl" to "lc_NorthPhotoUrl".
func normalizeKey(k string) string {
	if strings.HasPrefix(k, rawPrefix) {
		return fieldPrefix + strings.TrimPrefix(k, rawPrefix)
	}
	return k
}

// toObservation places a measurement at its land cover site coordinates,
// falling back to the record's own latitude and longitude.
func toObservation(m measurement) (photos.Observation, bool) {
	data := make(map[string]any, len(m.Data))
	for k, v := range m.Data {
		data[normalizeKey(k)] = v
	}

	lat, latOK := firstFloat(data, "lc_Latitude")
	lon, lonOK := firstFloat(data, "lc_Longitude")
	if !latOK && m.Latitude != nil {
		lat, latOK = *m.Latitude, true
	}
	if !lonOK && m.Longitude != nil {
		lon, lonOK = *m.Longitude, true
	}
	if !latOK || !lonOK {
		return photos.Observation{}, false
	}

	var keys []string
	for k := range data {
		if strings.Contains(k, "Url") {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := directionRank(keys[i]), directionRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})

	urls := make([]photos.DirectionURL, 0, len(keys))
	for _, k := range keys {
		s, _ := data[k].(string)
		urls = append(urls, photos.DirectionURL{Direction: k, URL: strings.TrimSpace(s)})
	}

	return photos.Observation{Lat: lat, Lon: lon, URLs: urls}, true
}

func directionRank(key string) int {
	for i, d := range directionOrder {
		if key == fieldPrefix+d+"PhotoUrl" {
			return i
		}
	}
	return len(directionOrder)
}

func firstFloat(data map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := data[k].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

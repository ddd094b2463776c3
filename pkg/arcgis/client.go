// Package arcgis reads public feature layers from an ArcGIS portal.
package arcgis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/landcover-cli/internal/fetcher"
	"github.com/sells-group/landcover-cli/internal/resilience"
)

// DefaultPortalURL is the public ArcGIS Online portal.
const DefaultPortalURL = "https://www.arcgis.com"

// Published CEO survey layers.
const (
	PSUItemID = "e185caf63fbd452aa7b3d1e6396404a9"
	SSUItemID = "543d31deb07c4a4ab4ae9d59b429508d"
)

const (
	defaultPageSize = 2000
	geometryColumn  = "SHAPE"
)

// Item is the portal metadata of a hosted feature service.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
	URL   string `json:"url"`
}

// LayerURL returns the URL of the item's first layer.
func (i Item) LayerURL() string {
	return strings.TrimRight(i.URL, "/") + "/0"
}

// Option configures a Client.
type Option func(*Client)

// WithPortalURL overrides the portal root.
func WithPortalURL(u string) Option {
	return func(c *Client) { c.portalURL = strings.TrimRight(u, "/") }
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

// WithPageSize sets resultRecordCount for layer queries.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// Client talks to the portal's sharing and feature service REST endpoints.
type Client struct {
	portalURL  string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	pageSize   int
}

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		portalURL:  DefaultPortalURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
		retry:      resilience.DefaultRetryConfig(),
		pageSize:   defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("arcgis", "query")
	}
	return c
}

// Item fetches the metadata of a portal item.
func (c *Client) Item(ctx context.Context, itemID string) (*Item, error) {
	u := fmt.Sprintf("%s/sharing/rest/content/items/%s?f=json", c.portalURL, url.PathEscape(itemID))

	var item Item
	if err := c.getJSON(ctx, u, &item); err != nil {
		return nil, eris.Wrapf(err, "arcgis: get item %s", itemID)
	}
	if item.URL == "" {
		return nil, eris.Errorf("arcgis: item %s has no service url", itemID)
	}
	return &item, nil
}

type queryField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type queryFeature struct {
	Attributes map[string]any `json:"attributes"`
}

type queryResponse struct {
	Fields                []queryField   `json:"fields"`
	Features              []queryFeature `json:"features"`
	ExceededTransferLimit bool           `json:"exceededTransferLimit"`
}

// QueryLayer reads every feature of a layer, following resultOffset pages
// until the server stops reporting exceededTransferLimit. Geometry is not
// requested and the SHAPE column is dropped.
func (c *Client) QueryLayer(ctx context.Context, layerURL string) (fetcher.Table, error) {
	base := strings.TrimRight(layerURL, "/") + "/query"

	var header []string
	rows := [][]string{}
	for offset, page := 0, 1; ; page++ {
		q := url.Values{}
		q.Set("where", "1=1")
		q.Set("outFields", "*")
		q.Set("returnGeometry", "false")
		q.Set("resultOffset", strconv.Itoa(offset))
		q.Set("resultRecordCount", strconv.Itoa(c.pageSize))
		q.Set("f", "json")

		var resp queryResponse
		if err := c.getJSON(ctx, base+"?"+q.Encode(), &resp); err != nil {
			return fetcher.Table{}, eris.Wrapf(err, "arcgis: query page %d", page)
		}

		if header == nil {
			header = make([]string, 0, len(resp.Fields))
			for _, f := range resp.Fields {
				if !strings.EqualFold(f.Name, geometryColumn) {
					header = append(header, f.Name)
				}
			}
		}

		for _, feat := range resp.Features {
			row := make([]string, len(header))
			for i, name := range header {
				row[i] = formatAttribute(feat.Attributes[name])
			}
			rows = append(rows, row)
		}

		zap.L().Debug("arcgis: fetched page",
			zap.String("layer", layerURL),
			zap.Int("page", page),
			zap.Int("features", len(resp.Features)),
		)

		if !resp.ExceededTransferLimit || len(resp.Features) == 0 {
			break
		}
		offset += len(resp.Features)
	}

	return fetcher.Table{Header: header, Rows: rows}, nil
}

// Layer fetches the first layer of a portal item as a table.
func (c *Client) Layer(ctx context.Context, itemID string) (fetcher.Table, error) {
	item, err := c.Item(ctx, itemID)
	if err != nil {
		return fetcher.Table{}, err
	}
	t, err := c.QueryLayer(ctx, item.LayerURL())
	if err != nil {
		return fetcher.Table{}, err
	}
	zap.L().Info("arcgis: loaded layer",
		zap.String("item", itemID),
		zap.String("title", item.Title),
		zap.Int("rows", t.Len()),
	)
	return t, nil
}

// formatAttribute renders a JSON attribute value as a table cell.
func formatAttribute(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// apiError is the error envelope the REST API returns with HTTP 200.
type apiError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
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

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "read body")
		}
		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("unexpected status %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return nil, statusErr
		}

		var envelope apiError
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != nil {
			apiErr := eris.Errorf("api error %d: %s", envelope.Error.Code, envelope.Error.Message)
			if resilience.IsTransientHTTPStatus(envelope.Error.Code) {
				return nil, resilience.NewTransientError(apiErr, envelope.Error.Code)
			}
			return nil, apiErr
		}
		return data, nil
	})
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return eris.Wrap(dec.Decode(out), "decode response")
}

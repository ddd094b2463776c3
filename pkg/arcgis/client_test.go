package arcgis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/landcover-cli/internal/resilience"
)

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient(
		WithPortalURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithPageSize(2),
		WithRetry(resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}),
	)
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func TestItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sharing/rest/content/items/"+PSUItemID, r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("f"))
		_, _ = w.Write([]byte(`{"id":"` + PSUItemID + `","title":"CEO PSU","type":"Feature Service","url":"https://services.example.com/FeatureServer/"}`))
	}))
	defer srv.Close()

	item, err := newTestClient(srv).Item(context.Background(), PSUItemID)
	require.NoError(t, err)
	assert.Equal(t, "CEO PSU", item.Title)
	assert.Equal(t, "https://services.example.com/FeatureServer/0", item.LayerURL())
}

func TestItem_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Item does not exist or is inaccessible."}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Item(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestQueryLayer_Pages(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/layer/0/query", r.URL.Path)
		assert.Equal(t, "1=1", r.URL.Query().Get("where"))
		assert.Equal(t, "*", r.URL.Query().Get("outFields"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("resultOffset"))
		fields := `"fields":[{"name":"ObjectId"},{"name":"plotid"},{"name":"SHAPE"},{"name":"lat"}]`
		switch offset {
		case 0:
			_, _ = w.Write([]byte(`{` + fields + `,"features":[
				{"attributes":{"ObjectId":1,"plotid":"10","SHAPE":"x","lat":5.5}},
				{"attributes":{"ObjectId":2,"plotid":"11","lat":null}}
			],"exceededTransferLimit":true}`))
		case 2:
			_, _ = w.Write([]byte(`{` + fields + `,"features":[
				{"attributes":{"ObjectId":3,"plotid":" 12 ","lat":-0.25}}
			]}`))
		default:
			t.Errorf("unexpected offset %d", offset)
		}
	}))
	defer srv.Close()

	tb, err := newTestClient(srv).QueryLayer(context.Background(), srv.URL+"/layer/0/")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"ObjectId", "plotid", "lat"}, tb.Header)
	assert.Equal(t, [][]string{
		{"1", "10", "5.5"},
		{"2", "11", ""},
		{"3", "12", "-0.25"},
	}, tb.Rows)
}

func TestQueryLayer_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"fields":[{"name":"plotid"}],"features":[{"attributes":{"plotid":"10"}}]}`))
	}))
	defer srv.Close()

	tb, err := newTestClient(srv).QueryLayer(context.Background(), srv.URL+"/layer/0")
	require.NoError(t, err)
	assert.Equal(t, 1, tb.Len())
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueryLayer_FailsWithoutRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).QueryLayer(context.Background(), srv.URL+"/layer/0")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLayer(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sharing/rest/content/items/" + SSUItemID:
			_, _ = w.Write([]byte(`{"id":"` + SSUItemID + `","title":"CEO SSU","url":"` + srv.URL + `/svc/FeatureServer"}`))
		case "/svc/FeatureServer/0/query":
			_, _ = w.Write([]byte(`{"fields":[{"name":"plotid"},{"name":"Land_Cover_Elements"}],"features":[{"attributes":{"plotid":"10","Land_Cover_Elements":"Trees"}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tb, err := newTestClient(srv).Layer(context.Background(), SSUItemID)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"10", "Trees"}}, tb.Rows)
}

func TestFormatAttribute(t *testing.T) {
	assert.Equal(t, "", formatAttribute(nil))
	assert.Equal(t, "true", formatAttribute(true))
	assert.Equal(t, "x", formatAttribute(" x "))
	assert.Equal(t, "3", formatAttribute(3))
}

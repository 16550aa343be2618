package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EGXTicker/internal/app"
	"EGXTicker/internal/collector"
	"EGXTicker/internal/market"
	"EGXTicker/internal/model"
	"EGXTicker/internal/recorder"
)

// Sunday 11:00, inside the default session.
var openTime = time.Date(2026, time.October, 18, 11, 0, 0, 0, time.Local)

func init() { gin.SetMode(gin.TestMode) }

func newTestServer(t *testing.T, refreshEvery time.Duration) (*app.App, http.Handler) {
	t.Helper()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	col := collector.NewCollector(collector.NewMockFetcher(0), market.DefaultSchedule())
	col.Now = func() time.Time { return openTime }
	a := app.New(context.Background(), col, rec)
	t.Cleanup(func() { _ = a.Close() })
	return a, NewServer(":0", NewHandlers(a, refreshEvery)).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t, 0)
	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStocks_EmptyBeforeFirstDelivery(t *testing.T) {
	_, h := newTestServer(t, 0)
	w := do(t, h, http.MethodGet, "/api/v1/stocks", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(t, h, http.MethodGet, "/api/v1/snapshot", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshThenStocks(t *testing.T) {
	_, h := newTestServer(t, 0)
	w := do(t, h, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Updated bool         `json:"updated"`
		Result  model.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Updated)
	assert.Equal(t, model.OutcomeLive, body.Result.Outcome)

	w = do(t, h, http.MethodGet, "/api/v1/stocks", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], model.ColumnCount)
	assert.Equal(t, "العز الدخيلة للصلب", rows[0][model.KeyShortName])
	assert.Equal(t, float64(1250), rows[0][model.KeyLastPrice])

	w = do(t, h, http.MethodGet, "/api/v1/stocks?q="+url.QueryEscape("مينا"), "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "مينا فارم للأدوية", rows[0][model.KeyShortName])

	w = do(t, h, http.MethodGet, "/api/v1/history?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		Data []recorder.Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	require.Len(t, hist.Data, 1)
	assert.Equal(t, body.Result.ID, hist.Data[0].ID)
}

func TestRefresh_RateLimited(t *testing.T) {
	_, h := newTestServer(t, time.Hour)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/refresh", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodPost, "/api/v1/refresh", "").Code)
}

func TestRefresh_SkippedReportsNoUpdate(t *testing.T) {
	a, h := newTestServer(t, 0)
	started := make(chan struct{})
	release := make(chan struct{})
	a.Collector.Fetcher = blockingFetcher{started: started, release: release}
	go a.Fetch(context.Background(), true)
	<-started
	defer close(release)

	w := do(t, h, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":false,"reason":"fetch in progress"}`, w.Body.String())
}

type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
}

func (b blockingFetcher) Name() string { return "blocking" }

func (b blockingFetcher) FetchPage(ctx context.Context) (string, error) {
	close(b.started)
	<-b.release
	return "", nil
}

func TestMarketSettings(t *testing.T) {
	_, h := newTestServer(t, 0)
	w := do(t, h, http.MethodGet, "/api/v1/market", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st app.MarketStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.True(t, st.Open)

	w = do(t, h, http.MethodPut, "/api/v1/market", `{"marketOpenTime":{"hour":12},"daysOff":{"sunday":true}}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.False(t, st.Open)
	assert.Equal(t, market.Clock{Hour: 12}, st.Settings.MarketOpenTime)
	assert.Equal(t, market.Clock{Hour: 14, Minute: 30}, st.Settings.MarketCloseTime)

	w = do(t, h, http.MethodPut, "/api/v1/market", `{"marketCloseTime":{"hour":25}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPut, "/api/v1/market", `{"marketCloseTime":{"hour":11,"minute":0}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "close before open")
}

func TestPollingControls(t *testing.T) {
	a, h := newTestServer(t, 0)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/v1/polling/interval", `{"interval_ms":10}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/v1/polling/interval", `{"interval_ms":1500}`).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/polling/interval", `{"interval_ms":3600000}`).Code)
	assert.Equal(t, time.Hour, a.Scheduler.Interval())

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/polling/start", "").Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/v1/polling/start", "").Code)

	require.Eventually(t, func() bool {
		hist, err := a.History(context.Background(), 1)
		return err == nil && len(hist) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/polling/stop", "").Code)
	assert.False(t, a.Scheduler.Running())
}

func TestHistory_BadLimit(t *testing.T) {
	_, h := newTestServer(t, 0)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/history?limit=x", "").Code)
}

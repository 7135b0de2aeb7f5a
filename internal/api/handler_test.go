package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/goleak"

	"github.com/mr1hm/go-quake-heatmap/internal/cache"
	"github.com/mr1hm/go-quake-heatmap/internal/feed"
	"github.com/mr1hm/go-quake-heatmap/internal/models"
	"github.com/mr1hm/go-quake-heatmap/internal/repository"
	"github.com/mr1hm/go-quake-heatmap/internal/stream"
	"github.com/mr1hm/go-quake-heatmap/internal/viewer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testBase = "http://feed.test/summary"

// mockFetcher serves canned features per URL.
type mockFetcher struct {
	mu       sync.Mutex
	features map[string][]models.Feature
	err      error
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]models.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, &feed.FetchError{URL: url, Err: m.err}
	}
	return m.features[url], nil
}

// mockFetchLog implements repository.FetchLog for testing
type mockFetchLog struct {
	records []models.FetchRecord
	last    repository.Filter
}

func (m *mockFetchLog) AddFetch(ctx context.Context, rec *models.FetchRecord) error {
	m.records = append(m.records, *rec)
	return nil
}

func (m *mockFetchLog) matching(opts repository.Filter) []models.FetchRecord {
	var out []models.FetchRecord
	for _, r := range m.records {
		if opts.Status != nil && r.Status != *opts.Status {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (m *mockFetchLog) ListFetches(ctx context.Context, opts repository.Filter) ([]models.FetchRecord, error) {
	m.last = opts
	out := m.matching(opts)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *mockFetchLog) CountFetches(ctx context.Context, opts repository.Filter) (int, error) {
	return len(m.matching(opts)), nil
}

var hourFeatures = []models.Feature{
	{ID: "ci1", Title: "M 1.3 - Aguanga, CA", Magnitude: 1.3, Depth: 4.8, Latitude: 33.49, Longitude: -116.79, Time: time.Now()},
	{ID: "us2", Title: "M 5.1 - Tonga", Magnitude: 5.1, Depth: 35.2, Latitude: -20.1, Longitude: -174.4, Time: time.Now()},
}

type testEnv struct {
	router      *gin.Engine
	fetcher     *mockFetcher
	fetches     *mockFetchLog
	sessions    *cache.Cache[*viewer.Session]
	broadcaster *stream.Broadcaster
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		fetcher: &mockFetcher{features: map[string][]models.Feature{
			testBase + "/all_month.geojson": hourFeatures,
			testBase + "/all_hour.geojson":  hourFeatures[:1],
		}},
		fetches:     &mockFetchLog{},
		sessions:    cache.New[*viewer.Session](time.Hour, 0),
		broadcaster: stream.NewBroadcaster(),
	}
	t.Cleanup(func() {
		env.sessions.Close()
		env.broadcaster.Close()
	})

	periods := feed.NewPeriods(testBase)
	factory := func() *viewer.Session {
		return viewer.NewSession(viewer.Options{
			Fetcher:   env.fetcher,
			Periods:   periods,
			Publisher: env.broadcaster,
		})
	}

	env.router = gin.New()
	NewHandler(env.sessions, factory, periods, env.fetches, env.broadcaster).RegisterRoutes(env.router)
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createSession(t *testing.T) viewer.View {
	t.Helper()
	w := e.do("POST", "/api/sessions", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var v viewer.View
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to parse view: %v", err)
	}
	return v
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) viewer.View {
	t.Helper()
	var v viewer.View
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to parse view: %v", err)
	}
	return v
}

func errorMessage(w *httptest.ResponseRecorder) string {
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp["error"]
}

func TestCreateSession(t *testing.T) {
	env := setupTestEnv(t)

	v := env.createSession(t)
	if v.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if v.FeedCount != 2 || v.ShownCount != 2 {
		t.Errorf("expected 2 events, got %d/%d", v.FeedCount, v.ShownCount)
	}
	if _, ok := env.sessions.Get(v.SessionID); !ok {
		t.Error("expected session stored")
	}

	w := env.do("GET", "/api/sessions/"+v.SessionID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if got := decodeView(t, w); got.SessionID != v.SessionID || got.Generation != v.Generation {
		t.Errorf("unexpected view %+v", got)
	}
}

func TestUnknownSession(t *testing.T) {
	env := setupTestEnv(t)

	for _, path := range []string{"/api/sessions/nope", "/api/sessions/nope/markers", "/api/sessions/nope/heatmap"} {
		w := env.do("GET", path, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, w.Code)
		}
	}
	w := env.do("PUT", "/api/sessions/nope/filters/magnitude", `{"value":"<2.5"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestChangeFilter(t *testing.T) {
	env := setupTestEnv(t)
	v := env.createSession(t)
	base := "/api/sessions/" + v.SessionID

	w := env.do("PUT", base+"/filters/magnitude", `{"value":"5.5-6.0"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decodeView(t, w); got.ShownCount != 0 || got.Selection.Magnitude != "5.5-6.0" {
		t.Errorf("unexpected view after magnitude change: shown %d, selection %+v", got.ShownCount, got.Selection)
	}

	w = env.do("PUT", base+"/filters/period", `{"value":"Past Hour"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	got := decodeView(t, w)
	if got.Selection.Magnitude != "Magnitude" || got.FeedCount != 1 {
		t.Errorf("expected period change to reset magnitude and refetch, got %+v", got.Selection)
	}
}

func TestChangeFilter_BadRequests(t *testing.T) {
	env := setupTestEnv(t)
	v := env.createSession(t)
	base := "/api/sessions/" + v.SessionID

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown magnitude", "/filters/magnitude", `{"value":"6.0-6.9"}`, http.StatusBadRequest},
		{"unknown depth", "/filters/depth", `{"value":"deep"}`, http.StatusBadRequest},
		{"unknown period", "/filters/period", `{"value":"Past Year"}`, http.StatusBadRequest},
		{"missing value", "/filters/depth", `{}`, http.StatusBadRequest},
		{"malformed body", "/filters/depth", `{"value":`, http.StatusBadRequest},
		{"unknown filter", "/filters/color", `{"value":"red"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do("PUT", base+tt.path, tt.body)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if errorMessage(w) == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestChangeFilter_FeedFailure(t *testing.T) {
	env := setupTestEnv(t)
	v := env.createSession(t)

	env.fetcher.mu.Lock()
	env.fetcher.err = errors.New("unexpected status code: 503")
	env.fetcher.mu.Unlock()

	w := env.do("PUT", "/api/sessions/"+v.SessionID+"/filters/depth", `{"value":"30-50"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", w.Code)
	}
	if !strings.Contains(errorMessage(w), "503") {
		t.Errorf("unexpected error %q", errorMessage(w))
	}

	w = env.do("GET", "/api/sessions/"+v.SessionID, "")
	got := decodeView(t, w)
	if got.ShownCount != 2 || got.Notice == "" {
		t.Errorf("expected last good map with a notice, got shown %d notice %q", got.ShownCount, got.Notice)
	}
}

func TestSetOverlay(t *testing.T) {
	env := setupTestEnv(t)
	v := env.createSession(t)
	base := "/api/sessions/" + v.SessionID

	w := env.do("PUT", base+"/overlays/Heatmap", `{"visible":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decodeView(t, w)
	heat, _ := got.Overlay("Heatmap")
	if heat.Visible {
		t.Error("expected heatmap hidden")
	}

	if w := env.do("PUT", base+"/overlays/Faults", `{"visible":true}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown overlay, got %d", w.Code)
	}
	if w := env.do("PUT", base+"/overlays/Heatmap", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for missing visible, got %d", w.Code)
	}
}

func TestGetMarkers_ReturnsGeoJSON(t *testing.T) {
	env := setupTestEnv(t)
	v := env.createSession(t)

	w := env.do("GET", "/api/sessions/"+v.SessionID+"/markers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("expected content-type application/geo+json, got %s", ct)
	}

	fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
	if err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}
	f := fc.Features[0]
	if f.Geometry.Point[0] != -116.79 || f.Geometry.Point[1] != 33.49 {
		t.Errorf("expected [lon, lat] coordinates, got %v", f.Geometry.Point)
	}
	if popup := f.PropertyMustString("popup", ""); !strings.Contains(popup, "Aguanga") {
		t.Errorf("expected popup html, got %q", popup)
	}
	if f.PropertyMustString("fillColor", "") != "maroon" {
		t.Error("expected marker style in properties")
	}
}

func TestGetHeatmap(t *testing.T) {
	env := setupTestEnv(t)
	v := env.createSession(t)

	w := env.do("GET", "/api/sessions/"+v.SessionID+"/heatmap", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp struct {
		Points [][3]float64 `json:"points"`
		Style  struct {
			Radius float64 `json:"radius"`
		} `json:"style"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(resp.Points))
	}
	if got := resp.Points[1][2]; got < 24.39 || got > 24.41 {
		t.Errorf("unexpected intensity %v", resp.Points[1][2])
	}
	if resp.Style.Radius != 40 {
		t.Errorf("unexpected radius %v", resp.Style.Radius)
	}
}

func TestPage_RendersDropdowns(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do("GET", "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`<option value="Past Hour">Past Hour</option>`,
		`<option value="&lt;2.5">&lt;2.5</option>`,
		`<option value="30-50">30-50</option>`,
		`data-session="`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, `data-session=""`) {
		t.Error("expected session id embedded in page")
	}
	if env.sessions.Len() != 1 {
		t.Errorf("expected page load to create a session, got %d", env.sessions.Len())
	}
}

func TestPage_FeedFailureStillRenders(t *testing.T) {
	env := setupTestEnv(t)
	env.fetcher.err = errors.New("connection refused")

	w := env.do("GET", "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `id="selectMagnitude"`) {
		t.Error("expected page to render")
	}
}

func TestStatic(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do("GET", "/static/app.js", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "L.heatLayer") {
		t.Error("expected app script")
	}
}

func TestOptions(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do("GET", "/api/options", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Periods   []string    `json:"periods"`
		Magnitude optionTable `json:"magnitude"`
		Depth     optionTable `json:"depth"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Periods) != 4 || resp.Periods[0] != "Past 30 Days" {
		t.Errorf("unexpected periods %v", resp.Periods)
	}
	if resp.Magnitude.Default != "Magnitude" || len(resp.Magnitude.Options) != 5 {
		t.Errorf("unexpected magnitude table %+v", resp.Magnitude)
	}
	if last := resp.Depth.Options[len(resp.Depth.Options)-1]; last.Label != "90+" || last.High != 1000 {
		t.Errorf("unexpected last depth entry %+v", last)
	}
}

func TestListFetches(t *testing.T) {
	env := setupTestEnv(t)
	env.fetches.records = []models.FetchRecord{
		{ID: "f1", Status: models.FetchStatusOK},
		{ID: "f2", Status: models.FetchStatusError, Error: "boom"},
		{ID: "f3", Status: models.FetchStatusOK},
	}

	w := env.do("GET", "/api/fetches?status=ok&limit=1&session=s1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp struct {
		Fetches []models.FetchRecord `json:"fetches"`
		Total   int                  `json:"total"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Fetches) != 1 || resp.Fetches[0].ID != "f1" {
		t.Errorf("unexpected fetches %+v", resp.Fetches)
	}
	if resp.Total != 2 {
		t.Errorf("expected total of 2 ok fetches ignoring the limit, got %d", resp.Total)
	}
	if env.fetches.last.Limit != 1 || env.fetches.last.SessionID != "s1" {
		t.Errorf("unexpected filter %+v", env.fetches.last)
	}

	if w := env.do("GET", "/api/fetches?status=weird", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}

	env.do("GET", "/api/fetches?limit=100000", "")
	if env.fetches.last.Limit != 50 {
		t.Errorf("expected out of range limit to fall back to 50, got %d", env.fetches.last.Limit)
	}
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do("GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %v", resp["status"])
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(1, time.Minute)
	defer limiter.Close()

	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected status codes %v", codes)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected a separate budget per client, got %d", w.Code)
	}
}

func TestStream_PushesViews(t *testing.T) {
	env := setupTestEnv(t)
	v := env.createSession(t)

	server := httptest.NewServer(env.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/sessions/" + v.SessionID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first viewer.View
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if first.SessionID != v.SessionID {
		t.Errorf("unexpected session %s", first.SessionID)
	}

	// wait until the handler has subscribed
	deadline := time.Now().Add(2 * time.Second)
	for env.broadcaster.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	w := env.do("PUT", "/api/sessions/"+v.SessionID+"/filters/depth", `{"value":"30-50"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var pushed viewer.View
	if err := conn.ReadJSON(&pushed); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if pushed.Generation <= first.Generation || pushed.Selection.Depth != "30-50" {
		t.Errorf("expected pushed view for the depth change, got generation %d selection %+v", pushed.Generation, pushed.Selection)
	}
}

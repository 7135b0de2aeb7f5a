package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/mr1hm/go-quake-heatmap/internal/models"
)

var ErrFetch = errors.New("feed fetch failed")

// DefaultMaxBodyBytes caps a feed response; all_month runs to a few MB.
const DefaultMaxBodyBytes = 64 << 20

// FetchError reports a transport, status or decode failure for one URL.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetch, e.Err}
}

type Client struct {
	httpClient   *http.Client
	maxBodyBytes int64
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Fetch downloads a GeoJSON feature collection and converts its point
// features. Every failure is logged and returned as a *FetchError.
func (c *Client) Fetch(ctx context.Context, url string) ([]models.Feature, error) {
	features, err := c.fetch(ctx, url)
	if err != nil {
		slog.Error("feed fetch failed", "url", url, "error", err)
		return nil, &FetchError{URL: url, Err: err}
	}
	return features, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]models.Feature, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("error reading resp.Body: %w", err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("resp.Body exceeds %d bytes", c.maxBodyBytes)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	return Convert(fc), nil
}

// Convert maps USGS point features ([lon, lat, depth]) to models.Feature.
// Features without a three-component point geometry are skipped.
func Convert(fc *geojson.FeatureCollection) []models.Feature {
	features := make([]models.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry == nil || !f.Geometry.IsPoint() || len(f.Geometry.Point) < 3 {
			slog.Debug("skipping feature without point geometry", "id", f.ID)
			continue
		}

		var id string
		if f.ID != nil {
			id = fmt.Sprint(f.ID)
		}

		features = append(features, models.Feature{
			ID:        id,
			Title:     f.PropertyMustString("title", ""),
			Place:     f.PropertyMustString("place", ""),
			URL:       f.PropertyMustString("url", ""),
			Magnitude: f.PropertyMustFloat64("mag", 0), // null magnitudes count as 0
			Longitude: f.Geometry.Point[0],
			Latitude:  f.Geometry.Point[1],
			Depth:     f.Geometry.Point[2],
			Time:      time.UnixMilli(int64(f.PropertyMustFloat64("time", 0))),
		})
	}
	return features
}

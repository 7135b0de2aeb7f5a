// Package viewer holds the filter state of one map viewer and converges the
// map onto it: every filter change fetches the selected feed once, refreshes
// the dependent menus when the period changed, and redraws both overlays.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/go-quake-heatmap/internal/buckets"
	"github.com/mr1hm/go-quake-heatmap/internal/dropdown"
	"github.com/mr1hm/go-quake-heatmap/internal/feed"
	"github.com/mr1hm/go-quake-heatmap/internal/mapview"
	"github.com/mr1hm/go-quake-heatmap/internal/models"
	"github.com/mr1hm/go-quake-heatmap/internal/render"
)

const (
	HeatmapOverlay = "Heatmap"
	MarkerOverlay  = "Earthquakes"
)

var ErrUnknownOverlay = errors.New("unknown overlay")

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]models.Feature, error)
}

// Publisher receives the view after every completed converge. Publish runs
// under the session lock and must not call back into the session.
type Publisher interface {
	Publish(v *View)
}

// Recorder receives the outcome of every feed fetch.
type Recorder interface {
	Record(rec models.FetchRecord)
}

type Selection struct {
	Period    string `json:"period"`
	Magnitude string `json:"magnitude"`
	Depth     string `json:"depth"`
}

type Options struct {
	Fetcher      Fetcher
	Periods      *feed.Periods
	Publisher    Publisher
	Recorder     Recorder
	MapboxAPIKey string
	Now          func() time.Time
}

type Session struct {
	id        string
	fetcher   Fetcher
	periods   *feed.Periods
	publisher Publisher
	recorder  Recorder
	now       func() time.Time

	mu        sync.Mutex
	sel       Selection
	periodMn  *dropdown.Menu
	magMn     *dropdown.Menu
	depthMn   *dropdown.Menu
	m         *mapview.Map
	heat      *mapview.LayerGroup
	markers   *mapview.LayerGroup
	renderer  *render.Renderer
	notice    string
	fetched   int
	shown     int
	updatedAt time.Time
	revision  uint64

	// selection behind the layers on the map
	drawn Selection
	// set by a period change until some converge rebuilds the menus
	repopulate bool
}

func NewSession(opts Options) *Session {
	if opts.Periods == nil {
		opts.Periods = feed.NewPeriods(feed.DefaultBaseURL)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		id:        uuid.NewString(),
		fetcher:   opts.Fetcher,
		periods:   opts.Periods,
		publisher: opts.Publisher,
		recorder:  opts.Recorder,
		now:       opts.Now,
		sel: Selection{
			Period:    opts.Periods.Default(),
			Magnitude: buckets.Magnitude.Sentinel(),
			Depth:     buckets.Depth.Sentinel(),
		},
		periodMn: dropdown.NewMenu(dropdown.PeriodID, opts.Periods.Default()),
		magMn:    dropdown.NewMenu(dropdown.MagnitudeID, buckets.Magnitude.Sentinel()),
		depthMn:  dropdown.NewMenu(dropdown.DepthID, buckets.Depth.Sentinel()),
		heat:     mapview.NewLayerGroup(HeatmapOverlay),
		markers:  mapview.NewLayerGroup(MarkerOverlay),
		renderer: render.New(),
	}
	s.drawn = s.sel

	base := mapview.BaseLayers(opts.MapboxAPIKey)
	s.m = mapview.CreateMap(mapview.DefaultCenter, mapview.DefaultZoom, base[0], s.heat, s.markers)
	s.m.AddLayerControl(base, []*mapview.LayerGroup{s.heat, s.markers})

	markers := render.NewMarkerDrawer()
	markers.Now = opts.Now
	s.renderer.Add(s.heat, render.NewHeatmapDrawer())
	s.renderer.Add(s.markers, markers)
	return s
}

func (s *Session) ID() string { return s.id }

// Init fills the period menu and loads the default period.
func (s *Session) Init(ctx context.Context) (*View, error) {
	s.mu.Lock()
	labels := s.periods.Labels()
	dropdown.Populate(s.periodMn, labels[1:])
	s.mu.Unlock()

	return s.ChangePeriod(ctx, s.periods.Default())
}

// ChangePeriod selects a new feed period and resets both dependent filters
// to their sentinels. The dependent menus are rebuilt from the new feed.
func (s *Session) ChangePeriod(ctx context.Context, label string) (*View, error) {
	if !s.periods.Has(label) {
		return nil, fmt.Errorf("period %q: %w", label, buckets.ErrUnknownOption)
	}
	return s.converge(ctx, true, func(sel *Selection) {
		sel.Period = label
		sel.Magnitude = buckets.Magnitude.Sentinel()
		sel.Depth = buckets.Depth.Sentinel()
	})
}

func (s *Session) ChangeMagnitude(ctx context.Context, label string) (*View, error) {
	if !buckets.Magnitude.Has(label) {
		return nil, fmt.Errorf("magnitude %q: %w", label, buckets.ErrUnknownOption)
	}
	return s.converge(ctx, false, func(sel *Selection) { sel.Magnitude = label })
}

func (s *Session) ChangeDepth(ctx context.Context, label string) (*View, error) {
	if !buckets.Depth.Has(label) {
		return nil, fmt.Errorf("depth %q: %w", label, buckets.ErrUnknownOption)
	}
	return s.converge(ctx, false, func(sel *Selection) { sel.Depth = label })
}

// SetOverlayVisible applies a layer-control toggle.
func (s *Session) SetOverlayVisible(name string, visible bool) (*View, error) {
	s.mu.Lock()
	g, ok := s.m.Overlay(name)
	if !ok || !s.renderer.SetVisible(g.Name(), visible) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownOverlay)
	}
	v := s.publishLocked()
	s.mu.Unlock()
	return v, nil
}

func (s *Session) View() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// HeatLayer returns the current heat layer, or nil before the first draw.
func (s *Session) HeatLayer() *mapview.HeatLayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.heat.Layers() {
		if h, ok := l.(*mapview.HeatLayer); ok {
			return h
		}
	}
	return nil
}

func (s *Session) Markers() []*mapview.CircleMarker {
	s.mu.Lock()
	defer s.mu.Unlock()
	layers := s.markers.Layers()
	out := make([]*mapview.CircleMarker, 0, len(layers))
	for _, l := range layers {
		if c, ok := l.(*mapview.CircleMarker); ok {
			out = append(out, c)
		}
	}
	return out
}

// converge applies update and redraws the map from one fetch of the selected
// period. The fetch runs unlocked; if another converge begins meanwhile, this
// one's result is dropped and the caller gets the current view.
func (s *Session) converge(ctx context.Context, repopulate bool, update func(sel *Selection)) (*View, error) {
	s.mu.Lock()
	update(&s.sel)
	if repopulate {
		s.repopulate = true
	}
	sel := s.sel
	url := s.periods.MustURL(sel.Period)
	gen := s.renderer.Begin()
	s.mu.Unlock()

	start := time.Now()
	features, err := s.fetcher.Fetch(ctx, url)
	rec := models.FetchRecord{
		ID:           uuid.NewString(),
		SessionID:    s.id,
		Period:       sel.Period,
		URL:          url,
		Generation:   gen,
		Status:       models.FetchStatusOK,
		FeatureCount: len(features),
		Duration:     time.Since(start),
		FetchedAt:    s.now(),
	}

	s.mu.Lock()
	if err != nil {
		rec.Status = models.FetchStatusError
		rec.Error = err.Error()
		if aerr := s.renderer.Abort(gen); errors.Is(aerr, render.ErrStale) {
			rec.Status = models.FetchStatusStale
			v := s.snapshot()
			s.mu.Unlock()
			s.record(rec)
			return v, nil
		}
		// the map still shows the last good draw, so the filters follow it
		s.sel = s.drawn
		if errors.Is(err, context.Canceled) {
			v := s.snapshot()
			s.mu.Unlock()
			s.record(rec)
			return v, err
		}
		s.notice = err.Error()
		v := s.publishLocked()
		s.mu.Unlock()

		s.record(rec)
		return v, err
	}

	if gen != s.renderer.Generation() {
		rec.Status = models.FetchStatusStale
		v := s.snapshot()
		s.mu.Unlock()
		s.record(rec)
		return v, nil
	}

	// a superseded period change still owes the menus a rebuild
	if s.repopulate {
		s.repopulate = false
		dropdown.Populate(s.magMn, buckets.Derive(features, buckets.Magnitude, buckets.MagnitudeAttr))
		dropdown.Populate(s.depthMn, buckets.Derive(features, buckets.Depth, buckets.DepthAttr))
	}
	shown, err := s.renderer.Finish(gen, features, buckets.Magnitude.MustRange(sel.Magnitude), buckets.Depth.MustRange(sel.Depth))
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.notice = ""
	s.fetched = len(features)
	s.shown = shown
	s.drawn = sel
	v := s.publishLocked()
	s.mu.Unlock()

	slog.Debug("session converged", "session", s.id, "period", sel.Period, "magnitude", sel.Magnitude, "depth", sel.Depth, "features", len(features), "shown", shown)
	s.record(rec)
	return v, nil
}

func (s *Session) record(rec models.FetchRecord) {
	if s.recorder != nil {
		s.recorder.Record(rec)
	}
}

// publishLocked bumps the view revision and hands the snapshot to the
// publisher while s.mu is still held, so subscribers see revisions in order.
func (s *Session) publishLocked() *View {
	s.revision++
	s.updatedAt = s.now()
	v := s.snapshot()
	if s.publisher != nil {
		s.publisher.Publish(v)
	}
	return v
}

// Package render redraws the map overlays from a fetched feature list.
//
// A redraw is split in two so the feed fetch can happen in between without
// holding any lock: Begin records each overlay's visibility, clears it and
// attaches it, and returns a generation number; Finish (or Abort on fetch
// failure) completes that generation. Only the most recently begun
// generation may complete, so overlays always reflect the latest request no
// matter in which order fetches return.
//
// Renderer is not safe for concurrent use; callers serialize access.
package render

import (
	"errors"

	"github.com/mr1hm/go-quake-heatmap/internal/buckets"
	"github.com/mr1hm/go-quake-heatmap/internal/mapview"
	"github.com/mr1hm/go-quake-heatmap/internal/models"
)

var ErrStale = errors.New("render superseded by a newer request")

// Overlay is a toggleable group of layers on the map.
type Overlay interface {
	Name() string
	Attached() bool
	Attach()
	Detach()
	Clear() []mapview.Layer
	AddLayers(layers ...mapview.Layer)
}

// Drawer turns filtered features into the layers of one overlay.
type Drawer interface {
	Draw(features []models.Feature) []mapview.Layer
}

type DrawerFunc func(features []models.Feature) []mapview.Layer

func (f DrawerFunc) Draw(features []models.Feature) []mapview.Layer { return f(features) }

type target struct {
	overlay Overlay
	drawer  Drawer

	inFlight   bool
	wasVisible bool
	lastGood   []mapview.Layer

	revision uint64
	drawn    int
}

type Status struct {
	Name     string `json:"name"`
	Visible  bool   `json:"visible"`
	Revision uint64 `json:"revision"`
	Features int    `json:"features"`
}

type Renderer struct {
	targets []*target
	gen     uint64
}

func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Add(o Overlay, d Drawer) {
	r.targets = append(r.targets, &target{overlay: o, drawer: d})
}

func (r *Renderer) Generation() uint64 { return r.gen }

// Begin starts a new generation. Visibility is only sampled when no redraw
// is in flight; an overlapping redraw inherits the value the first one saw,
// since the overlay has been force-attached in the meantime.
func (r *Renderer) Begin() uint64 {
	r.gen++
	for _, t := range r.targets {
		if !t.inFlight {
			t.wasVisible = t.overlay.Attached()
			t.lastGood = t.overlay.Clear()
			t.inFlight = true
		} else {
			t.overlay.Clear()
		}
		t.overlay.Attach()
	}
	return r.gen
}

// Finish filters features once and hands the result to every drawer. It
// returns the number of features that survived the filter.
func (r *Renderer) Finish(gen uint64, features []models.Feature, mag, depth buckets.Range) (int, error) {
	if gen != r.gen {
		return 0, ErrStale
	}

	filtered := buckets.Filter(features, mag, depth)
	for _, t := range r.targets {
		t.overlay.Clear()
		t.overlay.AddLayers(t.drawer.Draw(filtered)...)
		r.settle(t)
		t.revision++
		t.drawn = len(filtered)
	}
	return len(filtered), nil
}

// Abort ends a generation whose data could not be fetched: every overlay
// gets its last good layers and pre-redraw visibility back.
func (r *Renderer) Abort(gen uint64) error {
	if gen != r.gen {
		return ErrStale
	}
	for _, t := range r.targets {
		if !t.inFlight {
			continue
		}
		t.overlay.Clear()
		t.overlay.AddLayers(t.lastGood...)
		r.settle(t)
	}
	return nil
}

func (r *Renderer) settle(t *target) {
	if !t.wasVisible {
		t.overlay.Detach()
	} else {
		t.overlay.Attach()
	}
	t.inFlight = false
	t.lastGood = nil
}

// SetVisible applies a layer-control toggle. During a redraw the toggle
// also replaces the visibility that will be restored afterwards.
func (r *Renderer) SetVisible(name string, visible bool) bool {
	for _, t := range r.targets {
		if t.overlay.Name() != name {
			continue
		}
		if t.inFlight {
			t.wasVisible = visible
		}
		if visible {
			t.overlay.Attach()
		} else {
			t.overlay.Detach()
		}
		return true
	}
	return false
}

func (r *Renderer) InFlight() bool {
	for _, t := range r.targets {
		if t.inFlight {
			return true
		}
	}
	return false
}

func (r *Renderer) Status() []Status {
	out := make([]Status, len(r.targets))
	for i, t := range r.targets {
		out[i] = Status{
			Name:     t.overlay.Name(),
			Visible:  t.overlay.Attached(),
			Revision: t.revision,
			Features: t.drawn,
		}
	}
	return out
}

package viewer

import (
	"time"

	"github.com/mr1hm/go-quake-heatmap/internal/dropdown"
	"github.com/mr1hm/go-quake-heatmap/internal/mapview"
	"github.com/mr1hm/go-quake-heatmap/internal/render"
)

// View is everything the browser needs to mirror a session's map.
type View struct {
	SessionID  string        `json:"session_id"`
	Revision   uint64        `json:"revision"`
	Generation uint64        `json:"generation"`
	Pending    bool          `json:"pending"`
	Selection  Selection     `json:"selection"`
	Menus      []MenuView    `json:"menus"`
	Map        MapView       `json:"map"`
	Overlays   []OverlayView `json:"overlays"`
	FeedCount  int           `json:"feed_count"`
	ShownCount int           `json:"shown_count"`
	Notice     string        `json:"notice,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type MenuView struct {
	ID       string   `json:"id"`
	Default  string   `json:"default"`
	Options  []string `json:"options"`
	Selected string   `json:"selected"`
	Revision uint64   `json:"revision"`
}

type MapView struct {
	Center     mapview.LatLng      `json:"center"`
	Zoom       float64             `json:"zoom"`
	BaseLayers []mapview.TileLayer `json:"base_layers"`
	Base       string              `json:"base"`
	Control    *mapview.Control    `json:"control"`
}

type OverlayView struct {
	render.Status
	Layers []mapview.Envelope `json:"layers"`
}

func (v *View) Menu(id string) (MenuView, bool) {
	for _, m := range v.Menus {
		if m.ID == id {
			return m, true
		}
	}
	return MenuView{}, false
}

func (v *View) Overlay(name string) (OverlayView, bool) {
	for _, o := range v.Overlays {
		if o.Name == name {
			return o, true
		}
	}
	return OverlayView{}, false
}

// snapshot copies the session state. Callers hold s.mu.
func (s *Session) snapshot() *View {
	v := &View{
		SessionID:  s.id,
		Revision:   s.revision,
		Generation: s.renderer.Generation(),
		Pending:    s.renderer.InFlight(),
		Selection:  s.sel,
		Menus: []MenuView{
			menuView(s.periodMn, s.sel.Period),
			menuView(s.magMn, s.sel.Magnitude),
			menuView(s.depthMn, s.sel.Depth),
		},
		Map: MapView{
			Center:     s.m.Center,
			Zoom:       s.m.Zoom,
			BaseLayers: s.m.BaseLayers,
			Base:       s.m.Base,
			Control:    s.m.Control(),
		},
		FeedCount:  s.fetched,
		ShownCount: s.shown,
		Notice:     s.notice,
		UpdatedAt:  s.updatedAt,
	}

	groups := map[string]*mapview.LayerGroup{
		s.heat.Name():    s.heat,
		s.markers.Name(): s.markers,
	}
	for _, st := range s.renderer.Status() {
		ov := OverlayView{Status: st, Layers: []mapview.Envelope{}}
		if g, ok := groups[st.Name]; ok {
			for _, l := range g.Layers() {
				ov.Layers = append(ov.Layers, mapview.Wrap(l))
			}
		}
		v.Overlays = append(v.Overlays, ov)
	}
	return v
}

func menuView(m *dropdown.Menu, selected string) MenuView {
	return MenuView{
		ID:       m.ID(),
		Default:  m.Default(),
		Options:  m.Options(),
		Selected: selected,
		Revision: m.Revision(),
	}
}

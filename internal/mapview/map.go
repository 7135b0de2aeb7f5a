// Package mapview models the map widget the browser draws: base tile
// layers, a layer control, and toggleable overlay groups holding heat and
// circle layers. It tracks which overlays are attached so visibility can be
// queried and restored around redraws.
package mapview

import "strings"

type TileLayer struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	ID          string `json:"id"`
	TileSize    int    `json:"tileSize,omitempty"`
	ZoomOffset  int    `json:"zoomOffset,omitempty"`
	MaxZoom     int    `json:"maxZoom"`
}

type Control struct {
	BaseLayers []string `json:"baseLayers"`
	Overlays   []string `json:"overlays"`
	Collapsed  bool     `json:"collapsed"`
}

type Map struct {
	Center     LatLng
	Zoom       float64
	BaseLayers []TileLayer
	Base       string

	control  *Control
	overlays []*LayerGroup
	attached map[string]bool
}

// CreateMap builds a map showing base and every initial overlay.
func CreateMap(center LatLng, zoom float64, base TileLayer, initial ...*LayerGroup) *Map {
	m := &Map{
		Center:     center,
		Zoom:       zoom,
		BaseLayers: []TileLayer{base},
		Base:       base.Name,
		attached:   make(map[string]bool),
	}
	for _, g := range initial {
		g.AddTo(m)
	}
	return m
}

// AddLayerControl registers the base layers and overlays the user can toggle.
func (m *Map) AddLayerControl(base []TileLayer, overlays []*LayerGroup) *Control {
	c := &Control{Collapsed: true}
	for _, b := range base {
		if !m.hasBase(b.Name) {
			m.BaseLayers = append(m.BaseLayers, b)
		}
	}
	for _, b := range m.BaseLayers {
		c.BaseLayers = append(c.BaseLayers, b.Name)
	}
	for _, g := range overlays {
		g.m = m
		if !m.hasOverlay(g) {
			m.overlays = append(m.overlays, g)
		}
		c.Overlays = append(c.Overlays, g.name)
	}
	m.control = c
	return c
}

func (m *Map) Control() *Control { return m.control }

func (m *Map) Overlays() []*LayerGroup { return m.overlays }

func (m *Map) Overlay(name string) (*LayerGroup, bool) {
	for _, g := range m.overlays {
		if strings.EqualFold(g.name, name) {
			return g, true
		}
	}
	return nil, false
}

func (m *Map) HasLayer(g *LayerGroup) bool {
	return m.attached[g.name]
}

func (m *Map) AddLayer(g *LayerGroup) {
	g.m = m
	if !m.hasOverlay(g) {
		m.overlays = append(m.overlays, g)
	}
	m.attached[g.name] = true
}

func (m *Map) RemoveLayer(g *LayerGroup) {
	delete(m.attached, g.name)
}

func (m *Map) hasOverlay(g *LayerGroup) bool {
	for _, o := range m.overlays {
		if o == g {
			return true
		}
	}
	return false
}

func (m *Map) hasBase(name string) bool {
	for _, b := range m.BaseLayers {
		if b.Name == name {
			return true
		}
	}
	return false
}

// LayerGroup is a named overlay of drawable layers.
type LayerGroup struct {
	name   string
	layers []Layer
	m      *Map
}

func NewLayerGroup(name string) *LayerGroup {
	return &LayerGroup{name: name}
}

func (g *LayerGroup) Name() string { return g.name }

func (g *LayerGroup) Layers() []Layer {
	out := make([]Layer, len(g.layers))
	copy(out, g.layers)
	return out
}

// Clear removes every layer and returns what was removed.
func (g *LayerGroup) Clear() []Layer {
	removed := g.layers
	g.layers = nil
	return removed
}

func (g *LayerGroup) AddLayers(layers ...Layer) {
	g.layers = append(g.layers, layers...)
}

func (g *LayerGroup) AddTo(m *Map) {
	m.AddLayer(g)
}

func (g *LayerGroup) Attached() bool {
	return g.m != nil && g.m.HasLayer(g)
}

func (g *LayerGroup) Attach() {
	if g.m != nil {
		g.m.AddLayer(g)
	}
}

func (g *LayerGroup) Detach() {
	if g.m != nil {
		g.m.RemoveLayer(g)
	}
}

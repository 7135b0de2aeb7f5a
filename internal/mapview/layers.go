package mapview

import "encoding/json"

// LatLng marshals as [lat, lng].
type LatLng [2]float64

type LayerKind string

const (
	KindHeat   LayerKind = "heat"
	KindCircle LayerKind = "circle"
)

// Layer is one drawable element inside an overlay group.
type Layer interface {
	Kind() LayerKind
}

type HeatPoint struct {
	Lat       float64
	Lng       float64
	Intensity float64
}

// MarshalJSON emits the [lat, lng, intensity] triple heat layers consume.
func (p HeatPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.Lat, p.Lng, p.Intensity})
}

func (p *HeatPoint) UnmarshalJSON(b []byte) error {
	var v [3]float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	p.Lat, p.Lng, p.Intensity = v[0], v[1], v[2]
	return nil
}

type HeatStyle struct {
	MinOpacity float64           `json:"minOpacity"`
	Radius     float64           `json:"radius"`
	Blur       float64           `json:"blur"`
	Gradient   map[string]string `json:"gradient"`
}

type HeatLayer struct {
	Points []HeatPoint `json:"points"`
	Style  HeatStyle   `json:"style"`
}

func (*HeatLayer) Kind() LayerKind { return KindHeat }

// DrawHeatPoints builds a heat layer element.
func DrawHeatPoints(points []HeatPoint, style HeatStyle) *HeatLayer {
	return &HeatLayer{Points: points, Style: style}
}

type CircleStyle struct {
	Radius      float64 `json:"radius"` // meters
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
	Color       string  `json:"color"`
	Stroke      bool    `json:"stroke"`
	Weight      float64 `json:"weight"`
}

type CircleMarker struct {
	ID     string      `json:"id,omitempty"`
	Center LatLng      `json:"center"`
	Style  CircleStyle `json:"style"`
	Popup  string      `json:"popup"`
}

func (*CircleMarker) Kind() LayerKind { return KindCircle }

// DrawCircleMarker builds a circle element with a bound popup.
func DrawCircleMarker(center LatLng, style CircleStyle, popupHTML string) *CircleMarker {
	return &CircleMarker{Center: center, Style: style, Popup: popupHTML}
}

// Envelope is the JSON form of a Layer, tagged by kind.
type Envelope struct {
	Kind   LayerKind     `json:"kind"`
	Heat   *HeatLayer    `json:"heat,omitempty"`
	Circle *CircleMarker `json:"circle,omitempty"`
}

func Wrap(l Layer) Envelope {
	env := Envelope{Kind: l.Kind()}
	switch v := l.(type) {
	case *HeatLayer:
		env.Heat = v
	case *CircleMarker:
		env.Circle = v
	}
	return env
}

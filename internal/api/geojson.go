package api

import (
	geojson "github.com/paulmach/go.geojson"

	"github.com/mr1hm/go-quake-heatmap/internal/mapview"
)

// markersToGeoJSON exports circle markers as point features carrying their
// style and popup.
func markersToGeoJSON(markers []*mapview.CircleMarker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		f := geojson.NewPointFeature([]float64{m.Center[1], m.Center[0]})
		f.ID = m.ID
		f.SetProperty("popup", m.Popup)
		f.SetProperty("radius", m.Style.Radius)
		f.SetProperty("fillColor", m.Style.FillColor)
		f.SetProperty("fillOpacity", m.Style.FillOpacity)
		f.SetProperty("color", m.Style.Color)
		f.SetProperty("stroke", m.Style.Stroke)
		f.SetProperty("weight", m.Style.Weight)
		fc.AddFeature(f)
	}
	return fc
}

package render

import (
	"bytes"
	"html/template"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mr1hm/go-quake-heatmap/internal/mapview"
	"github.com/mr1hm/go-quake-heatmap/internal/models"
)

// HeatWeight is the heat intensity of one event.
func HeatWeight(magnitude float64) float64 {
	return (1 + magnitude) * 4.0
}

type HeatmapDrawer struct {
	Style mapview.HeatStyle
}

func NewHeatmapDrawer() *HeatmapDrawer {
	return &HeatmapDrawer{Style: mapview.HeatmapStyle}
}

func (d *HeatmapDrawer) Draw(features []models.Feature) []mapview.Layer {
	points := make([]mapview.HeatPoint, 0, len(features))
	for _, f := range features {
		c := f.Coordinates()
		points = append(points, mapview.HeatPoint{
			Lat:       c.Latitude,
			Lng:       c.Longitude,
			Intensity: HeatWeight(f.Magnitude),
		})
	}
	return []mapview.Layer{mapview.DrawHeatPoints(points, d.Style)}
}

var popupTmpl = template.Must(template.New("popup").Parse(
	`<div class="map-popup"><a href="{{.URL}}">{{.Title}}</a></div><br>` +
		`<div class="map-popup-exp">` +
		`<span>Location: </span> {{.Place}} <br>` +
		`<span>Date: </span> {{.Date}} ({{.Age}}) <br>` +
		`<span>Magnitude: </span> {{printf "%.2f" .Magnitude}} <br>` +
		`<span>Depth: </span> {{printf "%.2f" .Depth}} km <br>` +
		`<span>Latitude: </span> {{printf "%.4f" .Latitude}} <br>` +
		`<span>Longitude: </span> {{printf "%.4f" .Longitude}}` +
		`</div>`))

type popupData struct {
	models.Feature
	Date string
	Age  string
}

type MarkerDrawer struct {
	Style mapview.CircleStyle
	Now   func() time.Time
}

func NewMarkerDrawer() *MarkerDrawer {
	return &MarkerDrawer{Style: mapview.MarkerStyle, Now: time.Now}
}

func (d *MarkerDrawer) Draw(features []models.Feature) []mapview.Layer {
	now := d.Now()
	layers := make([]mapview.Layer, 0, len(features))
	for _, f := range features {
		at := f.Coordinates()
		c := mapview.DrawCircleMarker(mapview.LatLng{at.Latitude, at.Longitude}, d.Style, Popup(f, now))
		c.ID = f.ID
		layers = append(layers, c)
	}
	return layers
}

// Popup renders the informational popup bound to an event's marker.
func Popup(f models.Feature, now time.Time) string {
	var buf bytes.Buffer
	data := popupData{
		Feature: f,
		Date:    f.Time.UTC().Format("1/2/2006"),
		Age:     humanize.RelTime(f.Time, now, "ago", "from now"),
	}
	if err := popupTmpl.Execute(&buf, data); err != nil {
		slog.Error("popup render failed", "id", f.ID, "error", err)
		return ""
	}
	return buf.String()
}

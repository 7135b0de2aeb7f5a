package mapview

const (
	mapboxAttribution = "© <a href='https://www.mapbox.com/about/maps/'>Mapbox</a> © <a href='http://www.openstreetmap.org/copyright'>OpenStreetMap</a> <strong><a href='https://www.mapbox.com/map-feedback/' target='_blank'>Improve this map</a></strong>"
	osmAttribution    = "Map data &copy; <a href='https://www.openstreetmap.org/'>OpenStreetMap</a> contributors, <a href='https://creativecommons.org/licenses/by-sa/2.0/'>CC-BY-SA</a>, Imagery © <a href='https://www.mapbox.com/'>Mapbox</a>"
)

var (
	DefaultCenter = LatLng{30.0, 0.0}
	DefaultZoom   = 2.5
)

// BaseLayers returns the four Mapbox tile layers, grayscale first. The
// access token is substituted into each URL template.
func BaseLayers(accessToken string) []TileLayer {
	styles := "https://api.mapbox.com/styles/v1/{id}/tiles/{z}/{x}/{y}?access_token=" + accessToken
	return []TileLayer{
		{
			Name:        "Grayscale Map",
			URL:         styles,
			Attribution: mapboxAttribution,
			ID:          "mapbox/light-v10",
			TileSize:    512,
			ZoomOffset:  -1,
			MaxZoom:     18,
		},
		{
			Name:        "Outdoors Map",
			URL:         styles,
			Attribution: mapboxAttribution,
			ID:          "mapbox/outdoors-v11",
			TileSize:    512,
			ZoomOffset:  -1,
			MaxZoom:     18,
		},
		{
			Name:        "Satellite Map",
			URL:         "https://api.tiles.mapbox.com/v4/{id}/{z}/{x}/{y}.png?access_token=" + accessToken,
			Attribution: osmAttribution,
			ID:          "mapbox.satellite",
			MaxZoom:     18,
		},
		{
			Name:        "Dark Map",
			URL:         "https://api.mapbox.com/styles/v1/mapbox/{id}/tiles/{z}/{x}/{y}?access_token=" + accessToken,
			Attribution: osmAttribution,
			ID:          "dark-v10",
			MaxZoom:     18,
		},
	}
}

var HeatmapStyle = HeatStyle{
	MinOpacity: 0.2,
	Radius:     40,
	Blur:       40,
	Gradient: map[string]string{
		"0.15": "blue",
		"0.25": "green",
		"0.4":  "orange",
		"0.5":  "orangered",
		"0.65": "red",
		"1.0":  "darkred",
	},
}

var MarkerStyle = CircleStyle{
	Radius:      50000.0,
	FillColor:   "maroon",
	FillOpacity: 1.0,
	Color:       "black",
	Stroke:      true,
	Weight:      0.5,
}

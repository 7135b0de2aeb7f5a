package models

import "time"

type Feature struct {
	ID        string
	Title     string
	Place     string
	URL       string
	Magnitude float64
	Longitude float64
	Latitude  float64
	Depth     float64   // km, negative above sea level
	Time      time.Time // when the event occurred
}

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

func (f *Feature) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
	}
}

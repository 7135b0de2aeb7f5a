package buckets

import (
	"math"

	"github.com/mr1hm/go-quake-heatmap/internal/models"
)

// Attr selects the numeric feature attribute a table is matched against.
type Attr func(f *models.Feature) float64

func MagnitudeAttr(f *models.Feature) float64 { return f.Magnitude }

func DepthAttr(f *models.Feature) float64 { return f.Depth }

// RoundTenth rounds to one decimal place, halves away from zero.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// Derive returns, in table order, the labels of every non-sentinel entry
// whose range contains the rounded attribute of at least one feature.
func Derive(features []models.Feature, table *Table, attr Attr) []string {
	labels := make([]string, 0, len(table.entries)-1)
	for _, e := range table.entries[1:] {
		for i := range features {
			if e.Range.Contains(RoundTenth(attr(&features[i]))) {
				labels = append(labels, e.Label)
				break
			}
		}
	}
	return labels
}

// Filter keeps the features whose rounded magnitude lies in mag and whose
// rounded depth lies in depth. Unbounded ranges match everything.
func Filter(features []models.Feature, mag, depth Range) []models.Feature {
	out := make([]models.Feature, 0, len(features))
	for i := range features {
		f := &features[i]
		if !mag.IsUnbounded() && !mag.Contains(RoundTenth(f.Magnitude)) {
			continue
		}
		if !depth.IsUnbounded() && !depth.Contains(RoundTenth(f.Depth)) {
			continue
		}
		out = append(out, *f)
	}
	return out
}

package feed

import (
	"fmt"
	"strings"

	"github.com/mr1hm/go-quake-heatmap/internal/buckets"
)

const DefaultBaseURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary"

type Period struct {
	Label string `json:"label"`
	File  string `json:"file"`
}

var DefaultPeriods = []Period{
	{Label: "Past 30 Days", File: "all_month.geojson"},
	{Label: "Past 7 Days", File: "all_week.geojson"},
	{Label: "Past Day", File: "all_day.geojson"},
	{Label: "Past Hour", File: "all_hour.geojson"},
}

// Periods resolves time period labels to summary feed URLs under a base URL.
// The first period is the default selection.
type Periods struct {
	baseURL string
	periods []Period
}

func NewPeriods(baseURL string, periods ...Period) *Periods {
	if len(periods) == 0 {
		periods = DefaultPeriods
	}
	return &Periods{
		baseURL: strings.TrimRight(baseURL, "/"),
		periods: periods,
	}
}

func (p *Periods) Default() string { return p.periods[0].Label }

func (p *Periods) Labels() []string {
	labels := make([]string, len(p.periods))
	for i, period := range p.periods {
		labels[i] = period.Label
	}
	return labels
}

func (p *Periods) Has(label string) bool {
	_, err := p.URL(label)
	return err == nil
}

func (p *Periods) URL(label string) (string, error) {
	for _, period := range p.periods {
		if period.Label == label {
			return p.baseURL + "/" + period.File, nil
		}
	}
	return "", fmt.Errorf("period %q: %w", label, buckets.ErrUnknownOption)
}

func (p *Periods) MustURL(label string) string {
	url, err := p.URL(label)
	if err != nil {
		panic(err)
	}
	return url
}

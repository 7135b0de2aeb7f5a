package dropdown

// Dropdown is a selection widget whose first option is a fixed default.
type Dropdown interface {
	ID() string
	ClearOptionsBelowDefault()
	AppendOption(label string)
}

// Populate replaces every option below the default with labels, in order.
func Populate(d Dropdown, labels []string) {
	d.ClearOptionsBelowDefault()
	for _, label := range labels {
		d.AppendOption(label)
	}
}

const (
	PeriodID    = "selectTimePeriod"
	MagnitudeID = "selectMagnitude"
	DepthID     = "selectDepth"
)

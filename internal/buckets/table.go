// Package buckets holds the compiled-in magnitude and depth option tables
// and the pure functions that derive dropdown options and filter features
// against them.
package buckets

import (
	"errors"
	"fmt"
	"math"
)

var ErrUnknownOption = errors.New("unknown option")

// Range is an inclusive numeric interval.
type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Unbounded spans every representable value.
var Unbounded = Range{Low: math.Inf(-1), High: math.Inf(1)}

func (r Range) Contains(v float64) bool {
	return v >= r.Low && v <= r.High
}

func (r Range) IsUnbounded() bool {
	return math.IsInf(r.Low, -1) && math.IsInf(r.High, 1)
}

type Entry struct {
	Label string
	Range Range
}

// Table is an ordered label→range mapping. The first entry is the sentinel
// ("no filter selected") and always carries the Unbounded range.
type Table struct {
	name    string
	entries []Entry
	index   map[string]int
}

// NewTable builds a table whose sentinel is the given label. It panics on
// duplicate labels since tables are compiled-in data.
func NewTable(name, sentinel string, entries ...Entry) *Table {
	t := &Table{
		name:    name,
		entries: make([]Entry, 0, len(entries)+1),
		index:   make(map[string]int, len(entries)+1),
	}
	all := append([]Entry{{Label: sentinel, Range: Unbounded}}, entries...)
	for _, e := range all {
		if _, dup := t.index[e.Label]; dup {
			panic(fmt.Sprintf("buckets: duplicate label %q in %s table", e.Label, name))
		}
		t.index[e.Label] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t
}

func (t *Table) Name() string { return t.name }

func (t *Table) Sentinel() string { return t.entries[0].Label }

func (t *Table) IsSentinel(label string) bool { return label == t.Sentinel() }

// Entries returns the non-sentinel entries in table order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries)-1)
	copy(out, t.entries[1:])
	return out
}

// Labels returns every label, sentinel first.
func (t *Table) Labels() []string {
	labels := make([]string, len(t.entries))
	for i, e := range t.entries {
		labels[i] = e.Label
	}
	return labels
}

func (t *Table) Has(label string) bool {
	_, ok := t.index[label]
	return ok
}

func (t *Table) Range(label string) (Range, error) {
	i, ok := t.index[label]
	if !ok {
		return Range{}, fmt.Errorf("%s %q: %w", t.name, label, ErrUnknownOption)
	}
	return t.entries[i].Range, nil
}

// MustRange is Range for labels that are known to come from the table.
func (t *Table) MustRange(label string) Range {
	r, err := t.Range(label)
	if err != nil {
		panic(err)
	}
	return r
}

// Magnitude buckets. 6.1-6.9 is deliberately not covered.
var Magnitude = NewTable("magnitude", "Magnitude",
	Entry{"<2.5", Range{-20.0, 2.4}},
	Entry{"2.5-5.4", Range{2.5, 5.4}},
	Entry{"5.5-6.0", Range{5.5, 6.0}},
	Entry{"7.0-7.9", Range{7.0, 7.9}},
	Entry{"8.0+", Range{8.0, 20.0}},
)

var Depth = NewTable("depth", "Depth",
	Entry{"-10-10", Range{-10.0, 9.9}},
	Entry{"10-30", Range{10.0, 29.9}},
	Entry{"30-50", Range{30.0, 49.9}},
	Entry{"50-70", Range{50.0, 69.9}},
	Entry{"70-90", Range{70.0, 89.9}},
	Entry{"90+", Range{90.0, 1000.0}},
)

package dropdown

import (
	"fmt"
	"html"

	"github.com/PuerkitoBio/goquery"
)

// HTMLSelect is a Dropdown backed by a <select> element of a parsed page.
type HTMLSelect struct {
	id  string
	sel *goquery.Selection
}

func FindSelect(doc *goquery.Document, id string) (*HTMLSelect, error) {
	sel := doc.Find("select#" + id)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("select %q not found", id)
	}
	return &HTMLSelect{id: id, sel: sel.First()}, nil
}

func (s *HTMLSelect) ID() string { return s.id }

func (s *HTMLSelect) ClearOptionsBelowDefault() {
	opts := s.sel.Find("option")
	if opts.Length() > 1 {
		opts.Slice(1, goquery.ToEnd).Remove()
	}
}

func (s *HTMLSelect) AppendOption(label string) {
	v := html.EscapeString(label)
	s.sel.AppendHtml(`<option value="` + v + `">` + v + `</option>`)
}

// Select marks the option with the given value as selected.
func (s *HTMLSelect) Select(label string) {
	s.sel.Find("option").Each(func(_ int, o *goquery.Selection) {
		if v, _ := o.Attr("value"); v == label {
			o.SetAttr("selected", "selected")
		} else {
			o.RemoveAttr("selected")
		}
	})
}

// Options returns the option values, default first.
func (s *HTMLSelect) Options() []string {
	var out []string
	s.sel.Find("option").Each(func(_ int, o *goquery.Selection) {
		v, _ := o.Attr("value")
		out = append(out, v)
	})
	return out
}

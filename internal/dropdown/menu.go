package dropdown

// Menu is an in-memory Dropdown. Revision counts how many times the options
// below the default were rebuilt so clients can skip unchanged menus.
type Menu struct {
	id       string
	def      string
	options  []string
	revision uint64
}

func NewMenu(id, defaultLabel string) *Menu {
	return &Menu{id: id, def: defaultLabel}
}

func (m *Menu) ID() string { return m.id }

func (m *Menu) Default() string { return m.def }

func (m *Menu) ClearOptionsBelowDefault() {
	m.options = m.options[:0]
	m.revision++
}

func (m *Menu) AppendOption(label string) {
	m.options = append(m.options, label)
}

// Options returns the options below the default.
func (m *Menu) Options() []string {
	out := make([]string, len(m.options))
	copy(out, m.options)
	return out
}

// All returns every option, default first.
func (m *Menu) All() []string {
	return append([]string{m.def}, m.options...)
}

func (m *Menu) Revision() uint64 { return m.revision }

// Contains reports whether label is currently selectable.
func (m *Menu) Contains(label string) bool {
	if label == m.def {
		return true
	}
	for _, o := range m.options {
		if o == label {
			return true
		}
	}
	return false
}

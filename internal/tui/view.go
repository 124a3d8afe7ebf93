package tui

// Focus represents which pane receives key input.
type Focus int

const (
	FocusSearch Focus = iota
	FocusResults
	FocusNewsletter
)

// String returns the lowercase name of the pane.
func (f Focus) String() string {
	switch f {
	case FocusSearch:
		return "search"
	case FocusResults:
		return "results"
	case FocusNewsletter:
		return "newsletter"
	default:
		return "unknown"
	}
}

func (f Focus) next() Focus {
	return (f + 1) % 3
}

package ui

// InputMode selects how key presses are interpreted.
type InputMode int

const (
	// ModeNormal treats single letters as shortcuts.
	ModeNormal InputMode = iota
	// ModeEditing sends printable keys to the input buffer.
	ModeEditing
)

func (m InputMode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeEditing:
		return "editing"
	default:
		return "unknown"
	}
}

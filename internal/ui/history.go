package ui

// History keeps submitted queries, oldest first, and a recall cursor for
// walking back through them.
type History struct {
	entries []string
	limit   int
	// pos == len(entries) means nothing is being recalled
	pos   int
	draft string
}

func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Add records q unless it is empty or repeats the most recent entry, and
// resets recall.
func (h *History) Add(q string) {
	if n := len(h.entries); q != "" && (n == 0 || h.entries[n-1] != q) {
		h.entries = append(h.entries, q)
		if h.limit > 0 && len(h.entries) > h.limit {
			h.entries = append([]string(nil), h.entries[len(h.entries)-h.limit:]...)
		}
	}
	h.pos = len(h.entries)
	h.draft = ""
}

// Prev steps back one entry. current becomes the draft that Next restores
// past the newest entry, either when recall starts or when current is an
// edited recalled entry.
func (h *History) Prev(current string) (string, bool) {
	if h.pos == 0 {
		return "", false
	}
	h.keep(current)
	h.pos--
	return h.entries[h.pos], true
}

// Next steps forward; past the newest entry it returns the draft.
func (h *History) Next(current string) (string, bool) {
	if h.pos >= len(h.entries) {
		return "", false
	}
	h.keep(current)
	h.pos++
	if h.pos == len(h.entries) {
		return h.draft, true
	}
	return h.entries[h.pos], true
}

// Entries returns a copy of the recorded queries.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}

func (h *History) keep(current string) {
	if h.pos == len(h.entries) || current != h.entries[h.pos] {
		h.draft = current
	}
}

package textbuf

// History keeps snapshots of the text for undo and redo.
type History struct {
	states  []string
	current int
	max     int
}

// NewHistory keeps at most max snapshots, 100 when max is not positive.
func NewHistory(max int) *History {
	if max <= 0 {
		max = 100
	}
	return &History{
		current: -1,
		max:     max,
	}
}

// Save records text as the newest state and drops anything that could be redone.
func (h *History) Save(text string) {
	if h.current >= 0 && h.states[h.current] == text {
		return
	}
	h.states = append(h.states[:h.current+1], text)
	if len(h.states) > h.max {
		h.states = h.states[1:]
	}
	h.current = len(h.states) - 1
}

func (h *History) CanUndo() bool {
	return h.current > 0
}

func (h *History) CanRedo() bool {
	return h.current < len(h.states)-1
}

func (h *History) Undo() (string, bool) {
	if !h.CanUndo() {
		return "", false
	}
	h.current--
	return h.states[h.current], true
}

func (h *History) Redo() (string, bool) {
	if !h.CanRedo() {
		return "", false
	}
	h.current++
	return h.states[h.current], true
}

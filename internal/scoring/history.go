package scoring

// history is a fixed-capacity ring of records in insertion order. Once
// full, each push evicts the oldest record.
type history struct {
	buf   []Record
	start int
	size  int
}

func newHistory(capacity int) *history {
	if capacity < 1 {
		capacity = 1
	}
	return &history{buf: make([]Record, capacity)}
}

func (h *history) push(r Record) {
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = r
		h.size++
		return
	}
	h.buf[h.start] = r
	h.start = (h.start + 1) % len(h.buf)
}

// records returns the history oldest first.
func (h *history) records() []Record {
	out := make([]Record, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

func (h *history) len() int { return h.size }

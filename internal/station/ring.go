package station

import "line_supervisor/internal/models"

// logRing is a fixed-size buffer of log entries, oldest overwritten first.
type logRing struct {
	buf  []models.LogEntry
	next int
	full bool
}

func newLogRing(capacity int) *logRing {
	if capacity < 1 {
		capacity = 1
	}
	return &logRing{buf: make([]models.LogEntry, capacity)}
}

func (r *logRing) push(e models.LogEntry) {
	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// entries returns a copy ordered oldest to newest.
func (r *logRing) entries() []models.LogEntry {
	if !r.full {
		out := make([]models.LogEntry, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]models.LogEntry, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

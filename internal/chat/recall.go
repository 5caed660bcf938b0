package chat

// RecallEntry is one broadcast message kept for replay. Immutable once
// appended; the author's name is captured at send time because the
// author may rename or leave before the entry is replayed.
type RecallEntry struct {
	AuthorID    byte
	AuthorName  string
	TargetID    byte // always the broadcast id; kept for wire symmetry
	TimestampMs int64
	Text        string
}

// RecallBuffer is a bounded FIFO of broadcast messages used to backfill
// newly handshaked clients.
type RecallBuffer struct {
	max     int
	entries []RecallEntry
}

// NewRecallBuffer returns a buffer keeping at most max entries. A max
// of zero (or less) disables recall entirely.
func NewRecallBuffer(max int) *RecallBuffer {
	if max < 0 {
		max = 0
	}
	return &RecallBuffer{max: max}
}

// Add appends an entry, evicting the oldest ones once the buffer
// exceeds its maximum.
func (b *RecallBuffer) Add(e RecallEntry) {
	if b.max == 0 {
		return
	}
	b.entries = append(b.entries, e)
	if len(b.entries) > b.max {
		b.entries = b.entries[len(b.entries)-b.max:]
	}
}

// Entries returns the retained entries, oldest first. The returned
// slice is the buffer's own storage; callers must not mutate it.
func (b *RecallBuffer) Entries() []RecallEntry {
	return b.entries
}

// Len reports how many entries are retained.
func (b *RecallBuffer) Len() int {
	return len(b.entries)
}

package history

// Roles for conversation entries.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one role-tagged text unit of the conversation.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Log is the append-only conversation history of one session. The full log is
// kept for client-visible echo; only a bounded suffix is handed to the model.
//
// A Log is owned exclusively by its session's connection task and is not safe
// for concurrent use.
type Log struct {
	entries []Entry
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(role, content string) {
	l.entries = append(l.entries, Entry{Role: role, Content: content})
}

// Replace swaps the stored history for a client-supplied one.
func (l *Log) Replace(entries []Entry) {
	l.entries = append(l.entries[:0:0], entries...)
}

func (l *Log) Len() int {
	return len(l.entries)
}

// Window returns the most recent n entries as a fresh slice. The stored
// sequence is never mutated; the window is recomputed per call.
func (l *Log) Window(n int) []Entry {
	if n <= 0 || len(l.entries) == 0 {
		return nil
	}
	start := len(l.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]Entry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// Snapshot returns a copy of the full stored history.
func (l *Log) Snapshot() []Entry {
	if len(l.entries) == 0 {
		return []Entry{}
	}
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

package history

import "testing"

func TestWindowBoundsSuffix(t *testing.T) {
	l := NewLog()
	for i := 0; i < 8; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		l.Append(role, "entry")
	}

	w := l.Window(5)
	if len(w) != 5 {
		t.Fatalf("Window(5) len = %d, want 5", len(w))
	}
	if l.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", l.Len())
	}
}

func TestWindowSmallerLogReturnsAll(t *testing.T) {
	l := NewLog()
	l.Append(RoleUser, "hi")
	l.Append(RoleAssistant, "hello")

	w := l.Window(5)
	if len(w) != 2 {
		t.Fatalf("Window(5) len = %d, want 2", len(w))
	}
	if w[0].Role != RoleUser || w[1].Role != RoleAssistant {
		t.Fatalf("unexpected window order: %+v", w)
	}
}

func TestWindowDoesNotAliasLog(t *testing.T) {
	l := NewLog()
	l.Append(RoleUser, "original")

	w := l.Window(1)
	w[0].Content = "mutated"

	if got := l.Snapshot()[0].Content; got != "original" {
		t.Fatalf("stored content = %q, want %q", got, "original")
	}
}

func TestReplaceSwapsStoredHistory(t *testing.T) {
	l := NewLog()
	l.Append(RoleUser, "old")

	l.Replace([]Entry{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
	})
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	if l.Snapshot()[0].Content != "a" {
		t.Fatalf("unexpected first entry after Replace: %+v", l.Snapshot()[0])
	}
}

func TestSnapshotEmptyLogIsNonNil(t *testing.T) {
	l := NewLog()
	if s := l.Snapshot(); s == nil || len(s) != 0 {
		t.Fatalf("Snapshot() = %v, want empty non-nil slice", s)
	}
}

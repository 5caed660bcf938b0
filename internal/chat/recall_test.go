package chat

import "testing"

func entryTexts(b *RecallBuffer) []string {
	var out []string
	for _, e := range b.Entries() {
		out = append(out, e.Text)
	}
	return out
}

func TestRecallBufferFIFOBound(t *testing.T) {
	b := NewRecallBuffer(3)
	for _, text := range []string{"one", "two", "three", "four", "five"} {
		b.Add(RecallEntry{AuthorID: 1, AuthorName: "a", Text: text})
	}

	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	want := []string{"three", "four", "five"}
	got := entryTexts(b)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q (oldest entries must evict first)", i, got[i], want[i])
		}
	}
}

func TestRecallBufferUnderCapacity(t *testing.T) {
	b := NewRecallBuffer(10)
	b.Add(RecallEntry{Text: "only"})
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
	if b.Entries()[0].Text != "only" {
		t.Errorf("entry = %q, want %q", b.Entries()[0].Text, "only")
	}
}

func TestRecallBufferDisabled(t *testing.T) {
	for _, max := range []int{0, -1} {
		b := NewRecallBuffer(max)
		b.Add(RecallEntry{Text: "dropped"})
		if b.Len() != 0 {
			t.Errorf("max %d: Len() = %d, want 0", max, b.Len())
		}
	}
}

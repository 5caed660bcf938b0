package chat

import (
	"errors"
	"testing"
)

func TestAllocateIDSequence(t *testing.T) {
	r := NewRegistry()
	for want := byte(1); want <= 10; want++ {
		id, err := r.AllocateID()
		if err != nil {
			t.Fatalf("AllocateID() failed: %v", err)
		}
		if id != want {
			t.Errorf("AllocateID() = %d, want %d", id, want)
		}
	}
}

func TestAllocateIDNeverDuplicates(t *testing.T) {
	r := NewRegistry()
	seen := make(map[byte]bool)
	for i := 0; i < 254; i++ {
		id, err := r.AllocateID()
		if err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
		if id < 1 || id > 254 {
			t.Fatalf("id %d outside assignable range", id)
		}
		if seen[id] {
			t.Fatalf("id %d allocated twice", id)
		}
		seen[id] = true
	}
}

func TestAllocateIDFullLobby(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 254; i++ {
		if _, err := r.AllocateID(); err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
	}
	if _, err := r.AllocateID(); !errors.Is(err, ErrLobbyFull) {
		t.Errorf("expected ErrLobbyFull, got %v", err)
	}
}

func TestReleaseIDMakesIDAvailable(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 254; i++ {
		if _, err := r.AllocateID(); err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
	}

	r.ReleaseID(42)
	id, err := r.AllocateID()
	if err != nil {
		t.Fatalf("AllocateID() after release failed: %v", err)
	}
	if id != 42 {
		t.Errorf("AllocateID() = %d, want released id 42", id)
	}
}

func TestAllocateIDCursorRotates(t *testing.T) {
	r := NewRegistry()
	first, _ := r.AllocateID()
	r.ReleaseID(first)

	// The cursor moved past the released id, so the next allocation
	// does not immediately reuse it.
	next, err := r.AllocateID()
	if err != nil {
		t.Fatalf("AllocateID() failed: %v", err)
	}
	if next == first {
		t.Errorf("cursor did not advance: got %d again", next)
	}
}

func TestReserveNameDisambiguates(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		request string
		want    string
	}{
		{"Anna", "Anna"},
		{"Anna", "Anna (2)"},
		{"Anna", "Anna (3)"},
		{"Bob", "Bob"},
		{"Anna (2)", "Anna (2) (2)"},
	}
	for _, tc := range tests {
		if got := r.ReserveName(tc.request); got != tc.want {
			t.Errorf("ReserveName(%q) = %q, want %q", tc.request, got, tc.want)
		}
	}
}

func TestReleaseNameFreesVariant(t *testing.T) {
	r := NewRegistry()
	r.ReserveName("Anna")
	r.ReserveName("Anna")

	r.ReleaseName("Anna (2)")
	if got := r.ReserveName("Anna"); got != "Anna (2)" {
		t.Errorf("ReserveName() after release = %q, want %q", got, "Anna (2)")
	}

	// Releasing a never-reserved name is a no-op.
	r.ReleaseName("Charlie")
}

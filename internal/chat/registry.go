package chat

import (
	"errors"
	"fmt"
)

// Id space bounds. Zero is the broadcast sentinel and the top byte
// value is excluded from allocation, so ids run 1..254.
const (
	minUserID = 1
	maxUserID = 254
)

// ErrLobbyFull is reported when every assignable user id is in use.
var ErrLobbyFull = errors.New("chat: no free user id")

// Registry owns the id and display-name spaces. Every id or name
// mutation in the server goes through it; that is what makes the
// uniqueness invariants hold.
type Registry struct {
	ids    map[byte]struct{}
	names  map[string]struct{}
	cursor byte // next id candidate; avoids rescanning from 1 every time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ids:    make(map[byte]struct{}),
		names:  make(map[string]struct{}),
		cursor: minUserID,
	}
}

// AllocateID returns the first unused id at or after the rotating
// cursor, wrapping at the top of the range. Returns ErrLobbyFull when
// all 254 ids are taken.
func (r *Registry) AllocateID() (byte, error) {
	candidate := r.cursor
	for i := 0; i < maxUserID; i++ {
		if candidate < minUserID || candidate > maxUserID {
			candidate = minUserID
		}
		if _, taken := r.ids[candidate]; !taken {
			r.ids[candidate] = struct{}{}
			r.cursor = candidate + 1
			return candidate, nil
		}
		candidate++
	}
	return 0, ErrLobbyFull
}

// ReleaseID frees an id. The cursor is left alone; the freed id is
// picked up again by the normal scan.
func (r *Registry) ReleaseID(id byte) {
	delete(r.ids, id)
}

// ReserveName returns candidate if unused, otherwise the first free
// variant of the form "candidate (2)", "candidate (3)", …. The chosen
// name is marked used.
func (r *Registry) ReserveName(candidate string) string {
	name := candidate
	for n := 2; ; n++ {
		if _, taken := r.names[name]; !taken {
			r.names[name] = struct{}{}
			return name
		}
		name = fmt.Sprintf("%s (%d)", candidate, n)
	}
}

// ReleaseName frees a name. No-op if the name was never reserved.
func (r *Registry) ReleaseName(name string) {
	delete(r.names, name)
}

// IDCount reports how many ids are allocated.
func (r *Registry) IDCount() int {
	return len(r.ids)
}

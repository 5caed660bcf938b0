// Package chat implements the wirechat session orchestration core: the
// registry of live sessions, the bounded recall buffer, and the
// single-threaded dispatch loop that drives accepts, liveness checks,
// packet routing, and delivery.
package chat

import (
	"time"

	"github.com/vovakirdan/wirechat/internal/transport"
)

// state is a session's position in its lifecycle. A freshly accepted
// socket becomes a pending session in the same step; the terminal state
// is removal from the session table, so it needs no value here.
type state int

const (
	// statePending: id assigned, no display name yet. Pending sessions
	// never receive broadcasts and have not seen the replay.
	statePending state = iota

	// stateActive: handshake complete, name reserved, replay delivered.
	stateActive
)

func (s state) String() string {
	if s == stateActive {
		return "active"
	}
	return "pending"
}

// session is the server-side state for one connected client. The conn
// is exclusively owned by the session and closed exactly once, when the
// session is removed.
type session struct {
	id    byte
	name  string
	state state

	// lastActive is advanced on any inbound packet and on any outbound
	// send; the liveness policy compares against it every tick.
	lastActive time.Time

	// acceptedTick is the dispatch iteration that registered this
	// session; the liveness and read phases skip it on that iteration.
	acceptedTick uint64

	conn transport.Conn
}

func (s *session) idle(now time.Time) time.Duration {
	return now.Sub(s.lastActive)
}

package chat

import (
	"time"

	"github.com/vovakirdan/wirechat/internal/protocol"
)

// replay synchronizes a freshly handshaked client: recalled history
// with each author introduced before their first message, retractions
// for recalled authors who have since left, the rest of the live
// roster, and finally the message of the day. Every historical author
// is therefore known to the client before any message attributed to
// them arrives.
func (s *Server) replay(joiner *session, now time.Time) {
	// deliver sends one packet and reports whether the joiner survived
	// the write; a failure mid-replay aborts the rest.
	deliver := func(pkt protocol.Packet) bool {
		s.send(joiner, pkt, now)
		_, live := s.sessions[joiner.id]
		return live
	}

	// Identities already sent, in first-appearance order.
	introduced := make(map[byte]struct{})
	var order []byte

	for _, entry := range s.recall.Entries() {
		if _, seen := introduced[entry.AuthorID]; !seen {
			introduced[entry.AuthorID] = struct{}{}
			order = append(order, entry.AuthorID)
			if !deliver(protocol.UserInfo{ID: entry.AuthorID, Name: entry.AuthorName}) {
				return
			}
		}
		ok := deliver(protocol.Message{
			AuthorID:    entry.AuthorID,
			TargetID:    entry.TargetID,
			TimestampMs: entry.TimestampMs,
			Text:        entry.Text,
		})
		if !ok {
			return
		}
	}

	// Retract recalled authors who are no longer present.
	for _, id := range order {
		if sess, ok := s.sessions[id]; ok && sess.state == stateActive {
			continue
		}
		if !deliver(protocol.UserLeft{ID: id}) {
			return
		}
	}

	// Complete the live roster with actives that had no recalled
	// message. The joiner already knows itself from AssignID.
	for _, id := range s.sessionIDs() {
		sess := s.sessions[id]
		if sess == nil || sess.state != stateActive || sess.id == joiner.id {
			continue
		}
		if _, seen := introduced[sess.id]; seen {
			continue
		}
		if !deliver(protocol.UserInfo{ID: sess.id, Name: sess.name}) {
			return
		}
	}

	if s.cfg.MOTD != "" {
		deliver(protocol.LogNotice{TimestampMs: now.UnixMilli(), Text: s.cfg.MOTD})
	}
}

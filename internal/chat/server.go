package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/wirechat/internal/config"
	"github.com/vovakirdan/wirechat/internal/protocol"
	"github.com/vovakirdan/wirechat/internal/transport"
)

// Server is the chat core. All session, id, name, and recall state is
// owned by the single dispatch goroutine that calls Tick; no locks are
// needed because nothing else touches it.
type Server struct {
	cfg       config.ServerConfig
	logger    *log.Logger
	acceptors []transport.Acceptor

	registry *Registry
	recall   *RecallBuffer
	sessions map[byte]*session

	// tickSeq numbers dispatch iterations; sessions remember the tick
	// that accepted them so they are never pinged or read in it.
	tickSeq uint64

	// now is swappable so liveness tests can drive a fake clock.
	now func() time.Time
}

// New creates a server pulling new connections from the given
// acceptors. A nil logger disables logging without changing behavior.
func New(cfg config.ServerConfig, logger *log.Logger, acceptors ...transport.Acceptor) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
		logger.SetLevel(log.FatalLevel + 1)
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		acceptors: acceptors,
		registry:  NewRegistry(),
		recall:    NewRecallBuffer(cfg.RecallLimit),
		sessions:  make(map[byte]*session),
		now:       time.Now,
	}
}

// Tick runs one dispatch iteration: accept new connections, evaluate
// the liveness policy, then read and route at most one inbound packet
// per session. Phase order is load-bearing: a session accepted this
// tick is never pinged or read in the same tick.
func (s *Server) Tick() {
	now := s.now()
	s.tickSeq++
	s.tickAccept(now)
	s.tickLiveness(now)
	s.tickRead(now)
}

// Run drives Tick at the configured cadence until ctx is cancelled,
// then drops every remaining session.
func (s *Server) Run(ctx context.Context) error {
	interval := s.cfg.TickInterval.Std()
	if interval <= 0 {
		return fmt.Errorf("chat: tick interval must be positive, got %v", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("chat server running", "tick", interval,
		"handshake_timeout", s.cfg.HandshakeTimeout.Std(),
		"activity_timeout", s.cfg.ActivityTimeout.Std(),
		"recall_limit", s.cfg.RecallLimit)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// SessionCount reports how many sessions are live. Not safe to call
// concurrently with Tick.
func (s *Server) SessionCount() int {
	return len(s.sessions)
}

func (s *Server) shutdown() {
	s.logger.Info("shutting down", "sessions", len(s.sessions))
	for _, id := range s.sessionIDs() {
		if sess, ok := s.sessions[id]; ok {
			s.removeSession(sess, "server shutdown", false)
		}
	}
}

// sessionIDs returns live session ids in ascending order, so every
// phase visits sessions deterministically.
func (s *Server) sessionIDs() []byte {
	ids := make([]byte, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// tickAccept drains every acceptor and registers or rejects each new
// connection. The id assignment packet goes out immediately.
func (s *Server) tickAccept(now time.Time) {
	for _, acceptor := range s.acceptors {
		for _, conn := range acceptor.Poll() {
			s.acceptConn(conn, now)
		}
	}
}

func (s *Server) acceptConn(conn transport.Conn, now time.Time) {
	id, err := s.registry.AllocateID()
	if err != nil {
		// Full lobby: close the socket without a packet, register
		// nothing. Existing sessions are unaffected.
		s.logger.Warn("lobby full, rejecting connection", "remote", conn.RemoteAddr())
		_ = conn.Close()
		return
	}

	sess := &session{
		id:           id,
		state:        statePending,
		lastActive:   now,
		conn:         conn,
		acceptedTick: s.tickSeq,
	}
	s.sessions[id] = sess
	s.logger.Info("client connected", "id", id, "remote", conn.RemoteAddr())
	s.send(sess, protocol.AssignID{ID: id}, now)
}

// tickLiveness applies the timeout/ping policy to every session.
func (s *Server) tickLiveness(now time.Time) {
	for _, id := range s.sessionIDs() {
		sess, ok := s.sessions[id]
		if !ok || sess.acceptedTick == s.tickSeq {
			continue // removed earlier this phase, or accepted just now
		}
		idle := sess.idle(now)
		if sess.state == statePending && idle > s.cfg.HandshakeTimeout.Std() {
			s.logger.Info("handshake timed out", "id", sess.id, "idle", idle)
			s.removeSession(sess, "handshake timeout", true)
			continue
		}
		if idle > s.cfg.ActivityTimeout.Std() {
			// A ping never disconnects by itself; only a failed write
			// does, inside send.
			s.logger.Debug("pinging idle client", "id", sess.id, "idle", idle)
			s.send(sess, protocol.Ping{}, now)
		}
	}
}

// tickRead reads at most one packet per session and routes it. A
// session with no queued packets and a dead transport is removed here.
func (s *Server) tickRead(now time.Time) {
	for _, id := range s.sessionIDs() {
		sess, ok := s.sessions[id]
		if !ok || sess.acceptedTick == s.tickSeq {
			continue
		}
		if n := sess.conn.Anomalies(); n > 0 {
			s.logger.Warn("ignoring unknown packets", "id", sess.id, "count", n)
		}
		pkt, ok := sess.conn.Poll()
		if !ok {
			if err := sess.conn.Err(); err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, transport.ErrClosed) {
					s.logger.Info("read failed", "id", sess.id, "error", err)
				}
				s.removeSession(sess, "connection lost", true)
			}
			continue
		}
		sess.lastActive = now
		s.dispatch(sess, pkt, now)
	}
}

// dispatch routes one decoded client packet to its handler.
func (s *Server) dispatch(sess *session, pkt protocol.Packet, now time.Time) {
	switch p := pkt.(type) {
	case protocol.ChangeName:
		s.handleChangeName(sess, p.Name, now)
	case protocol.SendMessage:
		s.handleSendMessage(sess, p, now)
	case protocol.Disconnect:
		s.logger.Info("client disconnecting", "id", sess.id, "name", sess.name)
		s.removeSession(sess, "client request", true)
	default:
		// Server-to-client packets echoed back, or anything else a
		// confused client sends: logged and ignored.
		s.logger.Warn("unexpected packet from client", "id", sess.id, "tag", pkt.Tag().String())
	}
}

// handleChangeName completes the handshake on the first request and
// renames on subsequent ones. The reserved name may differ from the
// requested one when it collides.
func (s *Server) handleChangeName(sess *session, requested string, now time.Time) {
	if sess.state == statePending {
		name := s.registry.ReserveName(requested)
		sess.name = name
		sess.state = stateActive
		s.logger.Info("handshake complete", "id", sess.id, "name", name)

		s.broadcastNotice(fmt.Sprintf("%s joined", name), sess.id, now)
		s.broadcast(protocol.UserInfo{ID: sess.id, Name: name}, sess.id, now)
		s.replay(sess, now)
		return
	}

	old := sess.name
	s.registry.ReleaseName(old)
	name := s.registry.ReserveName(requested)
	sess.name = name
	s.logger.Info("client renamed", "id", sess.id, "old", old, "new", name)

	s.broadcastNotice(fmt.Sprintf("%s is now known as %s", old, name), sess.id, now)
	s.broadcast(protocol.UserInfo{ID: sess.id, Name: name}, sess.id, now)
}

// handleSendMessage routes chat text. Broadcasts are recorded in the
// recall buffer and go to every active session including the author;
// direct messages are echoed to the author and delivered to the target
// when it is still live.
func (s *Server) handleSendMessage(sess *session, p protocol.SendMessage, now time.Time) {
	if sess.state != stateActive {
		s.logger.Warn("dropping message from session without a name", "id", sess.id)
		return
	}

	msg := protocol.Message{
		AuthorID:    sess.id,
		TargetID:    p.TargetID,
		TimestampMs: now.UnixMilli(),
		Text:        p.Text,
	}

	if p.TargetID == protocol.BroadcastID {
		s.recall.Add(RecallEntry{
			AuthorID:    sess.id,
			AuthorName:  sess.name,
			TargetID:    protocol.BroadcastID,
			TimestampMs: msg.TimestampMs,
			Text:        p.Text,
		})
		for _, id := range s.sessionIDs() {
			target, ok := s.sessions[id]
			if !ok || target.state != stateActive {
				continue
			}
			s.send(target, msg, now)
		}
		return
	}

	// Echo first so the author's client renders its own line even when
	// the target is gone.
	s.send(sess, msg, now)
	target, ok := s.sessions[p.TargetID]
	if !ok {
		s.logger.Info("direct message to absent user", "from", sess.id, "to", p.TargetID)
		return
	}
	if target != sess {
		s.send(target, msg, now)
	}
}

// send is the single outbound primitive: it advances lastActive, then
// writes. A transport failure disconnects exactly the affected session
// and never propagates further.
func (s *Server) send(sess *session, pkt protocol.Packet, now time.Time) {
	sess.lastActive = now
	if err := sess.conn.WritePacket(pkt); err != nil {
		s.logger.Info("write failed", "id", sess.id, "tag", pkt.Tag().String(), "error", err)
		s.removeSession(sess, "write failure", true)
	}
}

// broadcast delivers a packet to every active session except the one
// identified by except. Pending sessions never receive broadcasts.
func (s *Server) broadcast(pkt protocol.Packet, except byte, now time.Time) {
	for _, id := range s.sessionIDs() {
		sess, ok := s.sessions[id]
		if !ok || sess.state != stateActive || sess.id == except {
			continue
		}
		s.send(sess, pkt, now)
	}
}

func (s *Server) broadcastNotice(text string, except byte, now time.Time) {
	s.broadcast(protocol.LogNotice{TimestampMs: now.UnixMilli(), Text: text}, except, now)
}

// removeSession tears a session down: id and name released, socket
// closed once, and, when the session had completed its handshake, a
// departure notice for the others. Removing an already-absent session
// is a logged no-op.
func (s *Server) removeSession(sess *session, reason string, notify bool) {
	if current, ok := s.sessions[sess.id]; !ok || current != sess {
		s.logger.Debug("session already removed", "id", sess.id)
		return
	}
	delete(s.sessions, sess.id)
	s.registry.ReleaseID(sess.id)

	wasActive := sess.state == stateActive
	if wasActive {
		s.registry.ReleaseName(sess.name)
	}
	_ = sess.conn.Close()
	s.logger.Info("client removed", "id", sess.id, "name", sess.name, "reason", reason)

	if wasActive && notify {
		now := s.now()
		s.broadcast(protocol.UserLeft{ID: sess.id}, sess.id, now)
		s.broadcastNotice(fmt.Sprintf("%s left", sess.name), sess.id, now)
	}
}

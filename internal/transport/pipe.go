package transport

import (
	"sync"

	"github.com/vovakirdan/wirechat/internal/protocol"
)

// PipeConn is an in-memory Conn whose peer lives in the same process.
// Both ends implement Conn, so a client and the server can be wired
// together without sockets; tests and in-process tooling use this.
type PipeConn struct {
	peer *PipeConn
	addr string

	mu       sync.Mutex
	inbound  []protocol.Packet
	readErr  error
	writeErr error
	closed   bool
}

// Pipe returns two connected in-memory connections. Packets written to
// one side become pollable on the other.
func Pipe() (*PipeConn, *PipeConn) {
	a := &PipeConn{addr: "pipe:a"}
	b := &PipeConn{addr: "pipe:b"}
	a.peer = b
	b.peer = a
	return a, b
}

// Poll returns at most one queued inbound packet.
func (c *PipeConn) Poll() (protocol.Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbound) == 0 {
		return nil, false
	}
	pkt := c.inbound[0]
	c.inbound = c.inbound[1:]
	return pkt, true
}

// Err reports an injected or peer-close read failure.
func (c *PipeConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Anomalies always reports zero; pipes carry decoded packets, so no
// framing anomalies can occur.
func (c *PipeConn) Anomalies() uint64 { return 0 }

// WritePacket delivers the packet to the peer's inbound queue.
func (c *PipeConn) WritePacket(p protocol.Packet) error {
	c.mu.Lock()
	if c.writeErr != nil {
		err := c.writeErr
		c.mu.Unlock()
		return err
	}
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	peer := c.peer
	c.mu.Unlock()

	peer.mu.Lock()
	if !peer.closed {
		peer.inbound = append(peer.inbound, p)
	}
	peer.mu.Unlock()
	return nil
}

// Close marks this end closed and surfaces ErrClosed as the peer's
// read error, mirroring a dropped socket.
func (c *PipeConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	peer := c.peer
	c.mu.Unlock()

	peer.mu.Lock()
	if peer.readErr == nil {
		peer.readErr = ErrClosed
	}
	peer.mu.Unlock()
	return nil
}

// RemoteAddr identifies the pipe end.
func (c *PipeConn) RemoteAddr() string { return c.addr }

// FailWrites makes subsequent WritePacket calls fail with err,
// simulating a broken transport.
func (c *PipeConn) FailWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

// FailReads surfaces err from Err, simulating a reader-side failure
// without closing the connection.
func (c *PipeConn) FailReads(err error) {
	c.mu.Lock()
	c.readErr = err
	c.mu.Unlock()
}

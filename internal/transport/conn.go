// Package transport carries wirechat protocol frames over stream
// transports. Each connection runs one reader goroutine that decodes
// frames into a bounded queue; the dispatch loop polls the queue
// without ever blocking, so one silent client cannot stall the rest.
package transport

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vovakirdan/wirechat/internal/protocol"
)

// Conn is one client connection as seen by the dispatch loop.
// WritePacket is called only from the dispatch goroutine; Poll and Err
// observe the reader goroutine's state without blocking.
type Conn interface {
	// Poll returns at most one decoded inbound packet, never blocking.
	Poll() (protocol.Packet, bool)

	// Err reports a sticky transport failure observed while reading.
	// Packets queued before the failure are still delivered by Poll.
	Err() error

	// Anomalies returns the number of unknown-tag frames skipped since
	// the last call.
	Anomalies() uint64

	// WritePacket encodes and sends one frame.
	WritePacket(p protocol.Packet) error

	// Close releases the connection. Safe to call more than once.
	Close() error

	// RemoteAddr identifies the peer for logging.
	RemoteAddr() string
}

const defaultQueueSize = 32

// ErrClosed is reported by a connection closed on our side.
var ErrClosed = errors.New("transport: connection closed")

// streamConn adapts a net.Conn to the Conn interface.
type streamConn struct {
	nc    net.Conn
	queue chan protocol.Packet
	done  chan struct{}

	writeTimeout time.Duration
	anomalies    atomic.Uint64

	mu      sync.Mutex
	readErr error
	closed  bool
}

// NewStreamConn wraps a stream socket and starts its reader goroutine.
// queueSize bounds how many decoded packets may wait for the dispatch
// loop; zero or negative selects a default.
func NewStreamConn(nc net.Conn, queueSize int) Conn {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	c := &streamConn{
		nc:           nc,
		queue:        make(chan protocol.Packet, queueSize),
		done:         make(chan struct{}),
		writeTimeout: 10 * time.Second,
	}
	go c.readLoop()
	return c
}

func (c *streamConn) readLoop() {
	br := bufio.NewReader(c.nc)
	for {
		pkt, err := protocol.ReadPacket(br)
		if err != nil {
			var unknown *protocol.UnknownPacketError
			if errors.As(err, &unknown) {
				c.anomalies.Add(1)
				continue
			}
			c.mu.Lock()
			if c.readErr == nil {
				c.readErr = err
			}
			c.mu.Unlock()
			return
		}
		select {
		case c.queue <- pkt:
		case <-c.done:
			return
		}
	}
}

func (c *streamConn) Poll() (protocol.Packet, bool) {
	select {
	case pkt := <-c.queue:
		return pkt, true
	default:
		return nil, false
	}
}

func (c *streamConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

func (c *streamConn) Anomalies() uint64 {
	return c.anomalies.Swap(0)
}

func (c *streamConn) WritePacket(p protocol.Packet) error {
	if c.writeTimeout > 0 {
		_ = c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.nc.Write(protocol.Encode(p))
	return err
}

func (c *streamConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	close(c.done)
	return c.nc.Close()
}

func (c *streamConn) RemoteAddr() string {
	if addr := c.nc.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

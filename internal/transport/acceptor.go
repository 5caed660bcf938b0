package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/charmbracelet/log"
)

// Acceptor hands newly connected clients to the dispatch loop. Poll
// drains whatever arrived since the last call and never blocks.
type Acceptor interface {
	Poll() []Conn
	Addr() string
	Close() error
}

const acceptBacklog = 64

// connQueue is the shared bounded accept queue behind the TCP and
// WebSocket acceptors.
type connQueue struct {
	ch chan Conn
}

func newConnQueue() *connQueue {
	return &connQueue{ch: make(chan Conn, acceptBacklog)}
}

// push enqueues a connection, dropping it (closed) when the dispatch
// loop has fallen more than a full backlog behind.
func (q *connQueue) push(c Conn) bool {
	select {
	case q.ch <- c:
		return true
	default:
		_ = c.Close()
		return false
	}
}

func (q *connQueue) drain() []Conn {
	var out []Conn
	for {
		select {
		case c := <-q.ch:
			out = append(out, c)
		default:
			return out
		}
	}
}

// TCPAcceptor listens on a TCP address and queues accepted sockets as
// frame connections.
type TCPAcceptor struct {
	listener net.Listener
	queue    *connQueue
	logger   *log.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// NewTCPAcceptor starts listening on addr. The logger may be nil.
func NewTCPAcceptor(addr string, logger *log.Logger) (*TCPAcceptor, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen on %s: %w", addr, err)
	}
	a := &TCPAcceptor{
		listener: listener,
		queue:    newConnQueue(),
		logger:   ensureLogger(logger),
		closed:   make(chan struct{}),
	}
	go a.acceptLoop()
	return a, nil
}

func (a *TCPAcceptor) acceptLoop() {
	for {
		nc, err := a.listener.Accept()
		if err != nil {
			select {
			case <-a.closed:
			default:
				if !errors.Is(err, net.ErrClosed) {
					a.logger.Error("accept failed", "error", err)
				}
			}
			return
		}
		if !a.queue.push(NewStreamConn(nc, 0)) {
			a.logger.Warn("accept backlog full, dropping connection", "remote", nc.RemoteAddr())
		}
	}
}

// Poll returns connections accepted since the last call.
func (a *TCPAcceptor) Poll() []Conn {
	return a.queue.drain()
}

// Addr returns the bound listen address.
func (a *TCPAcceptor) Addr() string {
	return a.listener.Addr().String()
}

// Close stops accepting. Queued but unclaimed connections are closed.
func (a *TCPAcceptor) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.closed)
		err = a.listener.Close()
		for _, c := range a.queue.drain() {
			_ = c.Close()
		}
	})
	return err
}

// ensureLogger substitutes a discard logger so call sites never need
// nil checks.
func ensureLogger(logger *log.Logger) *log.Logger {
	if logger != nil {
		return logger
	}
	l := log.New(io.Discard)
	l.SetLevel(log.FatalLevel + 1)
	return l
}

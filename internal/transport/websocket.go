package transport

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/wirechat/internal/protocol"
)

// WSAcceptor bridges WebSocket clients into the chat server. Each
// binary WebSocket message carries exactly one protocol frame, so
// browser clients speak the same wire format as TCP clients.
type WSAcceptor struct {
	server   *http.Server
	listener net.Listener
	queue    *connQueue
	logger   *log.Logger

	closeOnce sync.Once
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The protocol carries no credentials or cookies, so cross-origin
	// connections are as safe as plain TCP ones.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewWSAcceptor serves WebSocket upgrades at /ws on addr.
func NewWSAcceptor(addr string, logger *log.Logger) (*WSAcceptor, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen on %s: %w", addr, err)
	}

	a := &WSAcceptor{
		listener: listener,
		queue:    newConnQueue(),
		logger:   ensureLogger(logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", a.handleUpgrade)
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("websocket server stopped", "error", err)
		}
	}()
	return a, nil
}

func (a *WSAcceptor) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "websocket endpoint only accepts GET", http.StatusMethodNotAllowed)
		return
	}
	ws, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	if !a.queue.push(newWSConn(ws)) {
		a.logger.Warn("accept backlog full, dropping websocket client", "remote", r.RemoteAddr)
	}
}

// Poll returns connections upgraded since the last call.
func (a *WSAcceptor) Poll() []Conn {
	return a.queue.drain()
}

// Addr returns the bound listen address.
func (a *WSAcceptor) Addr() string {
	return a.listener.Addr().String()
}

// Close stops accepting and closes queued, unclaimed connections.
func (a *WSAcceptor) Close() error {
	var err error
	a.closeOnce.Do(func() {
		err = a.server.Close()
		for _, c := range a.queue.drain() {
			_ = c.Close()
		}
	})
	return err
}

// wsConn adapts a websocket connection to the Conn interface.
type wsConn struct {
	ws    *websocket.Conn
	queue chan protocol.Packet
	done  chan struct{}

	anomalies atomic.Uint64

	mu      sync.Mutex
	readErr error
	closed  bool
}

func newWSConn(ws *websocket.Conn) *wsConn {
	c := &wsConn{
		ws:    ws,
		queue: make(chan protocol.Packet, defaultQueueSize),
		done:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *wsConn) readLoop() {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.readErr == nil {
				c.readErr = err
			}
			c.mu.Unlock()
			return
		}
		if kind != websocket.BinaryMessage {
			c.anomalies.Add(1)
			continue
		}
		// One message, one frame; trailing bytes are an anomaly but the
		// leading frame still counts.
		pkt, err := protocol.ReadPacket(bytes.NewReader(data))
		if err != nil {
			c.anomalies.Add(1)
			continue
		}
		select {
		case c.queue <- pkt:
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) Poll() (protocol.Packet, bool) {
	select {
	case pkt := <-c.queue:
		return pkt, true
	default:
		return nil, false
	}
}

func (c *wsConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

func (c *wsConn) Anomalies() uint64 {
	return c.anomalies.Swap(0)
}

func (c *wsConn) WritePacket(p protocol.Packet) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteMessage(websocket.BinaryMessage, protocol.Encode(p))
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	close(c.done)
	return c.ws.Close()
}

func (c *wsConn) RemoteAddr() string {
	if addr := c.ws.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

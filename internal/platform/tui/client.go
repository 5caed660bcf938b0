// Package tui provides the interactive terminal chat client.
package tui

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/wirechat/internal/protocol"
)

// ClientConfig configures a chat client session.
type ClientConfig struct {
	// Addr is the server's TCP address.
	Addr string

	// Name is requested as the display name on connect; the server may
	// disambiguate it.
	Name string
}

// packetMsg delivers one decoded server packet into the Bubble Tea loop.
type packetMsg struct {
	pkt protocol.Packet
}

// connLostMsg reports that the reader goroutine stopped.
type connLostMsg struct {
	err error
}

// ClientModel is the Bubble Tea model for the chat client.
type ClientModel struct {
	cfg  ClientConfig
	conn net.Conn

	// packets feeds decoded server frames from the reader goroutine.
	packets chan tea.Msg

	viewport viewport.Model
	input    textinput.Model

	selfID byte
	roster map[byte]string
	lines  []string

	connClosed bool
	quitting   bool
	err        error
	ready      bool
	width      int
	height     int
}

// NewClientModel dials the server and returns a ready-to-run model.
func NewClientModel(cfg ClientConfig) (*ClientModel, error) {
	conn, err := net.DialTimeout("tcp", cfg.Addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("tui: connect to %s: %w", cfg.Addr, err)
	}

	input := textinput.New()
	input.Placeholder = "message (/name, /msg <id>, /quit)"
	input.CharLimit = protocol.MaxStringBytes
	input.Focus()

	m := &ClientModel{
		cfg:     cfg,
		conn:    conn,
		packets: make(chan tea.Msg, 64),
		input:   input,
		roster:  make(map[byte]string),
	}
	go m.readLoop()
	return m, nil
}

// readLoop decodes server frames until the connection drops.
func (m *ClientModel) readLoop() {
	br := bufio.NewReader(m.conn)
	for {
		pkt, err := protocol.ReadPacket(br)
		if err != nil {
			var unknown *protocol.UnknownPacketError
			if errors.As(err, &unknown) {
				continue // tolerate unknown frames from newer servers
			}
			m.packets <- connLostMsg{err: err}
			return
		}
		m.packets <- packetMsg{pkt: pkt}
	}
}

// Init sends the name request and starts waiting for server traffic.
func (m *ClientModel) Init() tea.Cmd {
	if err := m.write(protocol.ChangeName{Name: m.cfg.Name}); err != nil {
		return func() tea.Msg { return connLostMsg{err: err} }
	}
	return tea.Batch(m.waitForPacket(), textinput.Blink)
}

func (m *ClientModel) waitForPacket() tea.Cmd {
	return func() tea.Msg {
		return <-m.packets
	}
}

func (m *ClientModel) write(pkt protocol.Packet) error {
	_, err := m.conn.Write(protocol.Encode(pkt))
	return err
}

// Update handles key presses, terminal resizes, and server packets.
func (m *ClientModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerH := 1
		footerH := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerH-footerH)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerH - footerH
		}
		m.input.Width = msg.Width - 4
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m.quit()
		case tea.KeyEnter:
			return m.submitInput()
		}

	case packetMsg:
		m.handlePacket(msg.pkt)
		return m, m.waitForPacket()

	case connLostMsg:
		m.connClosed = true
		if m.quitting {
			return m, tea.Quit
		}
		m.err = msg.err
		m.appendLine("* connection lost")
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *ClientModel) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if !m.connClosed {
		_ = m.write(protocol.Disconnect{})
		_ = m.conn.Close()
	}
	return m, tea.Quit
}

// submitInput parses the input line as a command or a chat message.
func (m *ClientModel) submitInput() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if line == "" {
		return m, nil
	}

	switch {
	case line == "/quit":
		return m.quit()

	case strings.HasPrefix(line, "/name "):
		name := strings.TrimSpace(strings.TrimPrefix(line, "/name "))
		if name != "" {
			if err := m.write(protocol.ChangeName{Name: name}); err != nil {
				return m.connFailed(err)
			}
		}

	case strings.HasPrefix(line, "/msg "):
		target, text, err := parseDirect(strings.TrimPrefix(line, "/msg "))
		if err != nil {
			m.appendLine("* " + err.Error())
			return m, nil
		}
		if err := m.write(protocol.SendMessage{TargetID: target, Text: text}); err != nil {
			return m.connFailed(err)
		}

	case strings.HasPrefix(line, "/"):
		m.appendLine("* unknown command: " + line)

	default:
		if err := m.write(protocol.SendMessage{TargetID: protocol.BroadcastID, Text: line}); err != nil {
			return m.connFailed(err)
		}
	}
	return m, nil
}

func (m *ClientModel) connFailed(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.connClosed = true
	m.appendLine("* connection lost")
	return m, nil
}

// parseDirect splits "<id> <text>" into its parts.
func parseDirect(rest string) (byte, string, error) {
	fields := strings.SplitN(strings.TrimSpace(rest), " ", 2)
	if len(fields) < 2 || fields[1] == "" {
		return 0, "", fmt.Errorf("usage: /msg <id> <text>")
	}
	id, err := strconv.ParseUint(fields[0], 10, 8)
	if err != nil || id == 0 {
		return 0, "", fmt.Errorf("invalid user id %q", fields[0])
	}
	return byte(id), fields[1], nil
}

// handlePacket folds one server packet into the model's state.
func (m *ClientModel) handlePacket(pkt protocol.Packet) {
	switch p := pkt.(type) {
	case protocol.AssignID:
		m.selfID = p.ID

	case protocol.UserInfo:
		if old, known := m.roster[p.ID]; known && old != p.Name {
			m.appendLine(fmt.Sprintf("* %s is now %s", old, p.Name))
		}
		m.roster[p.ID] = p.Name

	case protocol.UserLeft:
		delete(m.roster, p.ID)

	case protocol.Message:
		m.appendLine(formatMessage(p, m.userName(p.AuthorID), m.selfID))

	case protocol.LogNotice:
		m.appendLine(fmt.Sprintf("%s * %s", formatClock(p.TimestampMs), p.Text))

	case protocol.Ping:
		// Informational; any outbound traffic already counts as life.
	}
}

func (m *ClientModel) userName(id byte) string {
	if name, ok := m.roster[id]; ok {
		return name
	}
	if id == m.selfID {
		return "me"
	}
	return fmt.Sprintf("user %d", id)
}

func (m *ClientModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refreshViewport()
}

func (m *ClientModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// formatMessage renders one chat line. Direct messages are marked so
// they are not mistaken for room traffic.
func formatMessage(p protocol.Message, author string, selfID byte) string {
	clock := formatClock(p.TimestampMs)
	if p.TargetID == protocol.BroadcastID {
		return fmt.Sprintf("%s %s: %s", clock, author, p.Text)
	}
	if p.AuthorID == selfID {
		return fmt.Sprintf("%s [dm to %d] %s", clock, p.TargetID, p.Text)
	}
	return fmt.Sprintf("%s [dm] %s: %s", clock, author, p.Text)
}

func formatClock(tsMillis int64) string {
	return time.UnixMilli(tsMillis).Format("15:04")
}

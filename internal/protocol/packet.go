// Package protocol defines the wirechat wire format: type-tagged binary
// frames with big-endian integers and one-byte length-prefixed UTF-8 strings.
package protocol

// Tag is the one-byte packet type identifier that starts every frame.
type Tag byte

// Server-to-client packet tags.
const (
	TagAssignID  Tag = 0x01
	TagUserInfo  Tag = 0x02
	TagUserLeft  Tag = 0x03
	TagMessage   Tag = 0x04
	TagLogNotice Tag = 0x05
	TagPing      Tag = 0x06
)

// Client-to-server packet tags.
const (
	TagChangeName  Tag = 0x10
	TagSendMessage Tag = 0x11
	TagDisconnect  Tag = 0x12
)

// String returns a human-readable name for the tag.
func (t Tag) String() string {
	switch t {
	case TagAssignID:
		return "AssignID"
	case TagUserInfo:
		return "UserInfo"
	case TagUserLeft:
		return "UserLeft"
	case TagMessage:
		return "Message"
	case TagLogNotice:
		return "LogNotice"
	case TagPing:
		return "Ping"
	case TagChangeName:
		return "ChangeName"
	case TagSendMessage:
		return "SendMessage"
	case TagDisconnect:
		return "Disconnect"
	default:
		return "Unknown"
	}
}

// BroadcastID is the reserved user id meaning "everyone" when used as a
// message target. It is never assigned to a session.
const BroadcastID byte = 0

// Packet is one decoded frame. Concrete packet structs live in this
// package; the server and client switch on the concrete type.
type Packet interface {
	Tag() Tag
}

// AssignID tells a freshly accepted client which user id it was given.
type AssignID struct {
	ID byte
}

func (AssignID) Tag() Tag { return TagAssignID }

// UserInfo announces a user's id and current display name.
type UserInfo struct {
	ID   byte
	Name string
}

func (UserInfo) Tag() Tag { return TagUserInfo }

// UserLeft announces that a user id is no longer present.
type UserLeft struct {
	ID byte
}

func (UserLeft) Tag() Tag { return TagUserLeft }

// Message carries chat text from one user to another, or to everyone
// when TargetID is BroadcastID.
type Message struct {
	AuthorID    byte
	TargetID    byte
	TimestampMs int64
	Text        string
}

func (Message) Tag() Tag { return TagMessage }

// LogNotice is a server-generated informational line (joins, renames,
// departures, message of the day).
type LogNotice struct {
	TimestampMs int64
	Text        string
}

func (LogNotice) Tag() Tag { return TagLogNotice }

// Ping asks an idle client to show a sign of life. It has no payload
// and requires no explicit reply; any traffic counts.
type Ping struct{}

func (Ping) Tag() Tag { return TagPing }

// ChangeName requests a display name. The first one completes the
// handshake; later ones rename the user.
type ChangeName struct {
	Name string
}

func (ChangeName) Tag() Tag { return TagChangeName }

// SendMessage submits chat text addressed to TargetID, or to everyone
// when TargetID is BroadcastID.
type SendMessage struct {
	TargetID byte
	Text     string
}

func (SendMessage) Tag() Tag { return TagSendMessage }

// Disconnect announces a graceful client departure.
type Disconnect struct{}

func (Disconnect) Tag() Tag { return TagDisconnect }

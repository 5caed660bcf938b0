package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// MaxStringBytes is the longest encoded string a frame can carry,
// imposed by the one-byte length prefix.
const MaxStringBytes = 255

// UnknownPacketError reports a frame whose type tag is not part of the
// protocol. Only the tag byte has been consumed, so the caller may keep
// reading from the same stream.
type UnknownPacketError struct {
	TagByte byte
}

func (e *UnknownPacketError) Error() string {
	return fmt.Sprintf("protocol: unknown packet tag 0x%02x", e.TagByte)
}

// Encode serializes a packet into a self-contained frame.
func Encode(p Packet) []byte {
	buf := []byte{byte(p.Tag())}
	switch pkt := p.(type) {
	case AssignID:
		buf = append(buf, pkt.ID)
	case UserInfo:
		buf = append(buf, pkt.ID)
		buf = appendString(buf, pkt.Name)
	case UserLeft:
		buf = append(buf, pkt.ID)
	case Message:
		buf = append(buf, pkt.AuthorID, pkt.TargetID)
		buf = binary.BigEndian.AppendUint64(buf, uint64(pkt.TimestampMs))
		buf = appendString(buf, pkt.Text)
	case LogNotice:
		buf = binary.BigEndian.AppendUint64(buf, uint64(pkt.TimestampMs))
		buf = appendString(buf, pkt.Text)
	case Ping, Disconnect:
		// Tag only.
	case ChangeName:
		buf = appendString(buf, pkt.Name)
	case SendMessage:
		buf = append(buf, pkt.TargetID)
		buf = appendString(buf, pkt.Text)
	default:
		panic(fmt.Sprintf("protocol: cannot encode packet type %T", p))
	}
	return buf
}

// appendString appends a one-byte length prefix and the string bytes,
// truncating at a rune boundary if the encoding exceeds MaxStringBytes.
func appendString(buf []byte, s string) []byte {
	b := []byte(s)
	if len(b) > MaxStringBytes {
		b = b[:MaxStringBytes]
		for len(b) > 0 && !utf8.Valid(b) {
			b = b[:len(b)-1]
		}
	}
	buf = append(buf, byte(len(b)))
	return append(buf, b...)
}

// ReadPacket reads and decodes exactly one frame. It blocks until a
// full frame is available. An unrecognized tag yields an
// *UnknownPacketError with the stream positioned after the tag byte;
// any other failure means the stream is no longer usable.
func ReadPacket(r io.Reader) (Packet, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return nil, err
	}

	switch Tag(tag[0]) {
	case TagAssignID:
		id, err := readByte(r)
		if err != nil {
			return nil, err
		}
		return AssignID{ID: id}, nil

	case TagUserInfo:
		id, err := readByte(r)
		if err != nil {
			return nil, err
		}
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		return UserInfo{ID: id, Name: name}, nil

	case TagUserLeft:
		id, err := readByte(r)
		if err != nil {
			return nil, err
		}
		return UserLeft{ID: id}, nil

	case TagMessage:
		var hdr [10]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, truncated(err)
		}
		text, err := readString(r)
		if err != nil {
			return nil, err
		}
		return Message{
			AuthorID:    hdr[0],
			TargetID:    hdr[1],
			TimestampMs: int64(binary.BigEndian.Uint64(hdr[2:])),
			Text:        text,
		}, nil

	case TagLogNotice:
		var ts [8]byte
		if _, err := io.ReadFull(r, ts[:]); err != nil {
			return nil, truncated(err)
		}
		text, err := readString(r)
		if err != nil {
			return nil, err
		}
		return LogNotice{
			TimestampMs: int64(binary.BigEndian.Uint64(ts[:])),
			Text:        text,
		}, nil

	case TagPing:
		return Ping{}, nil

	case TagChangeName:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		return ChangeName{Name: name}, nil

	case TagSendMessage:
		target, err := readByte(r)
		if err != nil {
			return nil, err
		}
		text, err := readString(r)
		if err != nil {
			return nil, err
		}
		return SendMessage{TargetID: target, Text: text}, nil

	case TagDisconnect:
		return Disconnect{}, nil

	default:
		return nil, &UnknownPacketError{TagByte: tag[0]}
	}
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, truncated(err)
	}
	return b[0], nil
}

func readString(r io.Reader) (string, error) {
	n, err := readByte(r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", truncated(err)
	}
	return string(b), nil
}

// truncated maps a mid-frame EOF to ErrUnexpectedEOF so callers see a
// single error for a frame cut short.
func truncated(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadPacketRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  Packet
	}{
		{"assign id", AssignID{ID: 7}},
		{"user info", UserInfo{ID: 3, Name: "Anna"}},
		{"user left", UserLeft{ID: 200}},
		{"broadcast message", Message{AuthorID: 1, TargetID: 0, TimestampMs: 1700000000123, Text: "hi"}},
		{"direct message", Message{AuthorID: 5, TargetID: 9, TimestampMs: -1, Text: "psst"}},
		{"log notice", LogNotice{TimestampMs: 42, Text: "Anna joined"}},
		{"ping", Ping{}},
		{"change name", ChangeName{Name: "Борис"}},
		{"send message", SendMessage{TargetID: 0, Text: "hello all"}},
		{"disconnect", Disconnect{}},
		{"empty string payload", ChangeName{Name: ""}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			frame := Encode(tc.pkt)
			got, err := ReadPacket(bytes.NewReader(frame))
			if err != nil {
				t.Fatalf("ReadPacket() failed: %v", err)
			}
			if got != tc.pkt {
				t.Errorf("round trip mismatch: got %#v, want %#v", got, tc.pkt)
			}
		})
	}
}

func TestReadPacketConsecutiveFrames(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(Encode(ChangeName{Name: "Bob"}))
	stream.Write(Encode(SendMessage{TargetID: 0, Text: "hi"}))
	stream.Write(Encode(Disconnect{}))

	want := []Tag{TagChangeName, TagSendMessage, TagDisconnect}
	for i, tag := range want {
		pkt, err := ReadPacket(&stream)
		if err != nil {
			t.Fatalf("frame %d: ReadPacket() failed: %v", i, err)
		}
		if pkt.Tag() != tag {
			t.Errorf("frame %d: got tag %v, want %v", i, pkt.Tag(), tag)
		}
	}
	if _, err := ReadPacket(&stream); err != io.EOF {
		t.Errorf("expected clean EOF after last frame, got %v", err)
	}
}

func TestReadPacketUnknownTag(t *testing.T) {
	stream := bytes.NewReader(append([]byte{0xEE}, Encode(Ping{})...))

	_, err := ReadPacket(stream)
	var unknown *UnknownPacketError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownPacketError, got %v", err)
	}
	if unknown.TagByte != 0xEE {
		t.Errorf("TagByte = 0x%02x, want 0xEE", unknown.TagByte)
	}

	// Framing resumes after the bad tag byte.
	pkt, err := ReadPacket(stream)
	if err != nil {
		t.Fatalf("ReadPacket() after unknown tag failed: %v", err)
	}
	if pkt.Tag() != TagPing {
		t.Errorf("got tag %v, want Ping", pkt.Tag())
	}
}

func TestReadPacketTruncatedFrame(t *testing.T) {
	frame := Encode(Message{AuthorID: 1, TimestampMs: 99, Text: "cut short"})
	for _, n := range []int{1, 2, 5, len(frame) - 1} {
		if _, err := ReadPacket(bytes.NewReader(frame[:n])); err != io.ErrUnexpectedEOF {
			t.Errorf("prefix of %d bytes: got %v, want ErrUnexpectedEOF", n, err)
		}
	}
}

func TestEncodeTruncatesLongStrings(t *testing.T) {
	// 300 two-byte runes; the 255-byte cap falls mid-rune and must be
	// pulled back to a boundary.
	long := strings.Repeat("é", 300)
	frame := Encode(ChangeName{Name: long})

	pkt, err := ReadPacket(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("ReadPacket() failed: %v", err)
	}
	name := pkt.(ChangeName).Name
	if len(name) > MaxStringBytes {
		t.Errorf("encoded string is %d bytes, cap is %d", len(name), MaxStringBytes)
	}
	if len(name) != 254 {
		t.Errorf("expected truncation at rune boundary (254 bytes), got %d", len(name))
	}
	if !strings.HasPrefix(long, name) {
		t.Error("truncated name is not a prefix of the original")
	}
}

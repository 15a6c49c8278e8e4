// Package protocol frames envelope text for stream transports such as TCP.
//
// A stream has no message boundaries, so every envelope is preceded by a fixed 9-byte
// header carrying its length. The receiver reads the header first, then exactly
// bodyLen bytes.
//
// Frame format:
//
//	0      3  4  5         9
//	┌──────┬──┬──┬─────────┬───────────────┐
//	│magic │v │mt│ bodyLen │    body ...    │
//	│ srp  │01│  │ uint32  │ bodyLen bytes  │
//	└──────┴──┴──┴─────────┴───────────────┘
//
// There is no sequence number: a connection carries one request and then its response.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic number bytes: "srp" (stub request protocol).
const (
	MagicNumber byte   = 0x73 // 's'
	MagicByte2  byte   = 0x72 // 'r'
	MagicByte3  byte   = 0x70 // 'p'
	Version     byte   = 0x01
	HeaderSize  int    = 9        // 3 (magic) + 1 (version) + 1 (msgType) + 4 (bodyLen)
	MaxBodySize uint32 = 16 << 20 // 16 MiB
)

// MsgType distinguishes request and response frames.
type MsgType byte

const (
	MsgTypeRequest  MsgType = 0 // Stub → service
	MsgTypeResponse MsgType = 1 // Service → stub
)

func (t MsgType) String() string {
	switch t {
	case MsgTypeRequest:
		return "request"
	case MsgTypeResponse:
		return "response"
	default:
		return fmt.Sprintf("MsgType(%d)", byte(t))
	}
}

// Header represents the fixed 9-byte frame header.
type Header struct {
	MsgType MsgType
	BodyLen uint32
}

// Encode writes a complete frame (header + body) to w.
// The caller must hold a write lock if multiple goroutines share the same writer.
func Encode(w io.Writer, t MsgType, body []byte) error {
	if uint64(len(body)) > uint64(MaxBodySize) {
		return fmt.Errorf("frame body too large: %d bytes", len(body))
	}
	buf := make([]byte, HeaderSize+len(body))

	copy(buf[0:3], []byte{MagicNumber, MagicByte2, MagicByte3})
	buf[3] = Version
	buf[4] = byte(t)
	// Body length: big-endian (network byte order)
	binary.BigEndian.PutUint32(buf[5:9], uint32(len(body)))
	copy(buf[HeaderSize:], body)

	// One Write per frame so a frame is never split between writers.
	_, err := w.Write(buf)
	return err
}

// Decode reads a complete frame from r and validates magic, version and message type.
// Uses io.ReadFull to guarantee exactly N bytes are read, preventing partial reads.
func Decode(r io.Reader) (*Header, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, nil, err
	}

	if headerBuf[0] != MagicNumber || headerBuf[1] != MagicByte2 || headerBuf[2] != MagicByte3 {
		return nil, nil, fmt.Errorf("invalid magic number: %x", headerBuf[0:3])
	}
	if headerBuf[3] != Version {
		return nil, nil, fmt.Errorf("unsupported version: %d", headerBuf[3])
	}
	msgType := MsgType(headerBuf[4])
	if msgType != MsgTypeRequest && msgType != MsgTypeResponse {
		return nil, nil, fmt.Errorf("unsupported message type: %d", headerBuf[4])
	}

	bodyLen := binary.BigEndian.Uint32(headerBuf[5:9])
	if bodyLen > MaxBodySize {
		return nil, nil, fmt.Errorf("frame body too large: %d bytes", bodyLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}

	return &Header{MsgType: msgType, BodyLen: bodyLen}, body, nil
}

// ReadText reads one frame and checks it has the expected type.
func ReadText(r io.Reader, want MsgType) (string, error) {
	h, body, err := Decode(r)
	if err != nil {
		return "", err
	}
	if h.MsgType != want {
		return "", fmt.Errorf("expected %s frame, got %s", want, h.MsgType)
	}
	return string(body), nil
}

// WriteText writes text as a single frame of type t.
func WriteText(w io.Writer, t MsgType, text string) error {
	return Encode(w, t, []byte(text))
}

package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Response is a decoded response frame. Payload is only meaningful when
// HasPayload is set; a GET hit always carries one. Stats is filled for a
// successful STATUS reply.
type Response struct {
	Status     byte
	Payload    string
	HasPayload bool
	Stats      Stats
}

// OK reports whether the server accepted the request.
func (r Response) OK() bool {
	return r.Status == StatusOK
}

// Stats is the body of a successful STATUS reply:
// [entries:8][memtable size:8][sstables:8][version string], little-endian.
type Stats struct {
	Entries      uint64 `json:"entries"`
	MemtableSize uint64 `json:"memtable_size"`
	SSTables     uint64 `json:"sstables"`
	Version      string `json:"version"`
}

// StatsHeaderSize is status (1) + three counters (24) + version length (4).
const StatsHeaderSize = 1 + 3*8 + lenSize

// Framing selects how replies other than a GET hit and a STATUS success are
// delimited on the wire.
type Framing uint8

const (
	// FramingMessage is [status][len][message] for every reply: "OK" for
	// PUT and DELETE, "PONG" for PING, an error text for failures.
	FramingMessage Framing = iota
	// FramingStatusOnly allows acks and failures to be a lone status byte.
	FramingStatusOnly
)

func (f Framing) String() string {
	switch f {
	case FramingMessage:
		return "message"
	case FramingStatusOnly:
		return "status-only"
	default:
		return fmt.Sprintf("Framing(%d)", uint8(f))
	}
}

// ParseFraming parses "message" or "status-only". An empty string is
// FramingMessage.
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "message":
		return FramingMessage, nil
	case "status-only", "status":
		return FramingStatusOnly, nil
	default:
		return FramingMessage, fmt.Errorf("unknown framing %q (expected message or status-only)", s)
	}
}

// DecodeResponse parses [status][optional length-prefixed string].
//
// An empty buffer means the peer closed the connection before answering.
// A buffer of 2 to 4 bytes holds a truncated length field, and a payload
// shorter than its declared length is rejected rather than cut short.
func DecodeResponse(data []byte) (Response, error) {
	switch {
	case len(data) == 0:
		return Response{}, fmt.Errorf("%w: empty response (connection closed mid-read)", ErrProtocol)
	case len(data) == 1:
		return Response{Status: data[0]}, nil
	case len(data) < ResponseHeaderSize:
		return Response{}, fmt.Errorf("%w: truncated length field (%d bytes)", ErrProtocol, len(data))
	}

	payload, end, err := DecodeString(data, 1)
	if err != nil {
		return Response{}, err
	}
	if end != len(data) {
		return Response{}, fmt.Errorf("%w: %d trailing bytes after response payload", ErrProtocol, len(data)-end)
	}
	return Response{Status: data[0], Payload: payload, HasPayload: true}, nil
}

// DecodeReply parses the response to op. A successful STATUS reply is decoded
// into Stats; everything else goes through DecodeResponse.
func DecodeReply(op Opcode, data []byte) (Response, error) {
	if op != OpStatus || len(data) == 0 || data[0] != StatusOK {
		return DecodeResponse(data)
	}

	if len(data) < StatsHeaderSize {
		return Response{}, fmt.Errorf("%w: STATUS reply too short (%d bytes)", ErrProtocol, len(data))
	}
	stats := Stats{
		Entries:      binary.LittleEndian.Uint64(data[1:9]),
		MemtableSize: binary.LittleEndian.Uint64(data[9:17]),
		SSTables:     binary.LittleEndian.Uint64(data[17:25]),
	}
	version, end, err := DecodeString(data, 25)
	if err != nil {
		return Response{}, err
	}
	if end != len(data) {
		return Response{}, fmt.Errorf("%w: %d trailing bytes after STATUS reply", ErrProtocol, len(data)-end)
	}
	stats.Version = version
	return Response{Status: StatusOK, Stats: stats}, nil
}

// EncodeResponse builds a response frame. Used by servers and tests.
func EncodeResponse(r Response) []byte {
	if !r.HasPayload {
		return []byte{r.Status}
	}
	buf := make([]byte, 0, ResponseHeaderSize+len(r.Payload))
	buf = append(buf, r.Status)
	return EncodeString(buf, r.Payload)
}

// EncodeStats builds a successful STATUS reply.
func EncodeStats(s Stats) []byte {
	buf := make([]byte, 0, StatsHeaderSize+len(s.Version))
	buf = append(buf, StatusOK)
	buf = binary.LittleEndian.AppendUint64(buf, s.Entries)
	buf = binary.LittleEndian.AppendUint64(buf, s.MemtableSize)
	buf = binary.LittleEndian.AppendUint64(buf, s.SSTables)
	return EncodeString(buf, s.Version)
}

// EncodeReply builds the response frame to op, the inverse of DecodeReply.
func EncodeReply(op Opcode, r Response) []byte {
	if op == OpStatus && r.OK() {
		return EncodeStats(r.Stats)
	}
	return EncodeResponse(r)
}

// FrameSize reports the total length of the response to op whose first bytes
// are head. known is false while more bytes are needed to decide.
//
// A STATUS success is sized by its fixed counters and version length. Any
// other reply is sized by its length field once five bytes are present. Only
// FramingStatusOnly commits a lone status byte, and never for a GET hit.
func (f Framing) FrameSize(op Opcode, head []byte) (size int, known bool) {
	if len(head) == 0 {
		return 0, false
	}
	if op == OpStatus && head[0] == StatusOK {
		if len(head) < StatsHeaderSize {
			return 0, false
		}
		return StatsHeaderSize + int(binary.LittleEndian.Uint32(head[25:StatsHeaderSize])), true
	}
	if len(head) >= ResponseHeaderSize {
		return ResponseHeaderSize + int(binary.LittleEndian.Uint32(head[1:ResponseHeaderSize])), true
	}
	if f == FramingStatusOnly && len(head) == 1 && (op != OpGet || head[0] != StatusOK) {
		return 1, true
	}
	return 0, false
}

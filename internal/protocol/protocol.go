// Package protocol implements the key-value server's binary wire format.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
)

// Opcode identifies a request type on the wire.
type Opcode uint8

// Request opcodes. 0x04 is not assigned.
const (
	OpPut    Opcode = 0x01 // key, value
	OpDelete Opcode = 0x02 // key
	OpGet    Opcode = 0x03 // key
	OpPing   Opcode = 0x05 // no payload
	OpStatus Opcode = 0x06 // no payload; answered with Stats
)

// Status codes carried in the first byte of a response.
const (
	StatusOK       byte = 0x00
	StatusNotFound byte = 0x01
)

const (
	// HeaderSize is opcode (1) + payload length (4).
	HeaderSize = 1 + 4
	// ResponseHeaderSize is status (1) + string length (4).
	ResponseHeaderSize = 1 + 4
	lenSize            = 4
)

// ErrProtocol is wrapped by every framing or decoding failure.
var ErrProtocol = errors.New("protocol error")

// Opcodes returns every opcode the protocol defines.
func Opcodes() []Opcode {
	return []Opcode{OpPut, OpDelete, OpGet, OpPing, OpStatus}
}

func (o Opcode) String() string {
	switch o {
	case OpPut:
		return "PUT"
	case OpDelete:
		return "DELETE"
	case OpGet:
		return "GET"
	case OpPing:
		return "PING"
	case OpStatus:
		return "STATUS"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(o))
	}
}

// Valid reports whether o is part of the protocol.
func (o Opcode) Valid() bool {
	return slices.Contains(Opcodes(), o)
}

// fieldCount returns the number of string fields the opcode's payload carries,
// or -1 for an unknown opcode.
func (o Opcode) fieldCount() int {
	switch o {
	case OpPut:
		return 2
	case OpDelete, OpGet:
		return 1
	case OpPing, OpStatus:
		return 0
	default:
		return -1
	}
}

// Request is a decoded request frame.
type Request struct {
	Op    Opcode
	Key   string
	Value string
}

// Put builds a request storing value under key.
func Put(key, value string) Request { return Request{Op: OpPut, Key: key, Value: value} }

// Get builds a lookup of key.
func Get(key string) Request { return Request{Op: OpGet, Key: key} }

// Delete builds a removal of key.
func Delete(key string) Request { return Request{Op: OpDelete, Key: key} }

// Ping builds a liveness check.
func Ping() Request { return Request{Op: OpPing} }

// Status builds a server statistics request.
func Status() Request { return Request{Op: OpStatus} }

// Fields returns the string fields in payload order.
func (r Request) Fields() []string {
	switch r.Op.fieldCount() {
	case 2:
		return []string{r.Key, r.Value}
	case 1:
		return []string{r.Key}
	default:
		return nil
	}
}

// Encode returns the request's wire frame.
func (r Request) Encode() ([]byte, error) {
	return EncodeRequest(r.Op, r.Fields()...)
}

// EncodeString appends s to dst as a 4-byte little-endian byte length
// followed by its UTF-8 bytes.
func EncodeString(dst []byte, s string) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// EncodePayload concatenates the encoded fields.
func EncodePayload(fields ...string) []byte {
	size := 0
	for _, f := range fields {
		size += lenSize + len(f)
	}
	payload := make([]byte, 0, size)
	for _, f := range fields {
		payload = EncodeString(payload, f)
	}
	return payload
}

// EncodeFrame wraps an already encoded payload in the request header.
func EncodeFrame(op Opcode, payload []byte) []byte {
	frame := make([]byte, 0, HeaderSize+len(payload))
	frame = append(frame, byte(op))
	frame = binary.LittleEndian.AppendUint32(frame, uint32(len(payload)))
	return append(frame, payload...)
}

// EncodeRequest builds the frame [op][payload length][payload] for op.
// The number of fields must match the opcode: two for PUT, one for GET and
// DELETE, none for PING and STATUS.
func EncodeRequest(op Opcode, fields ...string) ([]byte, error) {
	want := op.fieldCount()
	if want < 0 {
		return nil, fmt.Errorf("unknown opcode 0x%02x", uint8(op))
	}
	if len(fields) != want {
		return nil, fmt.Errorf("%s takes %d fields, got %d", op, want, len(fields))
	}

	size := 0
	for _, f := range fields {
		size += lenSize + len(f)
	}
	if uint64(size) > math.MaxUint32 {
		return nil, fmt.Errorf("%s payload of %d bytes exceeds 32-bit length", op, size)
	}

	return EncodeFrame(op, EncodePayload(fields...)), nil
}

// DecodeString reads a length-prefixed string starting at offset and returns
// it along with the offset just past it.
func DecodeString(data []byte, offset int) (string, int, error) {
	if offset < 0 || len(data)-offset < lenSize {
		return "", offset, fmt.Errorf("%w: buffer underflow reading string length at %d", ErrProtocol, offset)
	}
	n := binary.LittleEndian.Uint32(data[offset:])
	offset += lenSize

	if uint64(len(data)-offset) < uint64(n) {
		return "", offset, fmt.Errorf("%w: string truncated: declared %d bytes, %d available", ErrProtocol, n, len(data)-offset)
	}
	end := offset + int(n)
	return string(data[offset:end]), end, nil
}

// DecodeRequest parses a complete request frame.
func DecodeRequest(data []byte) (Request, error) {
	if len(data) < HeaderSize {
		return Request{}, fmt.Errorf("%w: request too short (%d bytes)", ErrProtocol, len(data))
	}

	op := Opcode(data[0])
	if !op.Valid() {
		return Request{}, fmt.Errorf("%w: unknown opcode 0x%02x", ErrProtocol, data[0])
	}
	payloadLen := binary.LittleEndian.Uint32(data[1:HeaderSize])
	if uint64(len(data)-HeaderSize) < uint64(payloadLen) {
		return Request{}, fmt.Errorf("%w: payload truncated: declared %d bytes, %d available", ErrProtocol, payloadLen, len(data)-HeaderSize)
	}
	payload := data[HeaderSize : HeaderSize+int(payloadLen)]

	req := Request{Op: op}
	offset := 0
	var err error
	switch op.fieldCount() {
	case 2:
		if req.Key, offset, err = DecodeString(payload, offset); err != nil {
			return Request{}, err
		}
		if req.Value, offset, err = DecodeString(payload, offset); err != nil {
			return Request{}, err
		}
	case 1:
		if req.Key, offset, err = DecodeString(payload, offset); err != nil {
			return Request{}, err
		}
	}
	if offset != len(payload) {
		return Request{}, fmt.Errorf("%w: %d trailing payload bytes for %s", ErrProtocol, len(payload)-offset, op)
	}
	return req, nil
}

// RequestFrameSize reports the total size of the request frame whose first
// bytes are head, once the header is available.
func RequestFrameSize(head []byte) (int, bool) {
	if len(head) < HeaderSize {
		return 0, false
	}
	return HeaderSize + int(binary.LittleEndian.Uint32(head[1:HeaderSize])), true
}

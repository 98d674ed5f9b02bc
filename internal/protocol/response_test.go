package protocol

import (
	"errors"
	"testing"
)

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    Response
		wantErr bool
	}{
		{"empty", nil, Response{}, true},
		{"status only ok", []byte{0x00}, Response{Status: StatusOK}, false},
		{"status only failure", []byte{0x01}, Response{Status: StatusNotFound}, false},
		{"truncated length", []byte{0x00, 0x01, 0x00}, Response{}, true},
		{"value", EncodeResponse(Response{Payload: "hello", HasPayload: true}), Response{Payload: "hello", HasPayload: true}, false},
		{"empty value", []byte{0x00, 0, 0, 0, 0}, Response{HasPayload: true}, false},
		{"short payload", []byte{0x00, 5, 0, 0, 0, 'h', 'e'}, Response{}, true},
		{"trailing bytes", []byte{0x00, 1, 0, 0, 0, 'h', 'x'}, Response{}, true},
		{"error message", EncodeResponse(Response{Status: 0x02, Payload: "boom", HasPayload: true}), Response{Status: 0x02, Payload: "boom", HasPayload: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeResponse(tt.data)
			if tt.wantErr {
				if !errors.Is(err, ErrProtocol) {
					t.Errorf("expected ErrProtocol, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResponseRoundTripMultiByte(t *testing.T) {
	for _, v := range []string{"", "ascii", "ünïcödé", "絵文字🙂"} {
		frame := EncodeResponse(Response{Payload: v, HasPayload: true})
		resp, err := DecodeResponse(frame)
		if err != nil {
			t.Fatalf("DecodeResponse(%q) failed: %v", v, err)
		}
		if !resp.OK() || resp.Payload != v {
			t.Errorf("expected ok response with %q, got %+v", v, resp)
		}
	}
}

func TestFrameSize(t *testing.T) {
	hit := EncodeResponse(Response{Payload: "value", HasPayload: true})
	ack := EncodeResponse(Response{Payload: "OK", HasPayload: true})
	miss := EncodeResponse(Response{Status: StatusNotFound, Payload: "Not found", HasPayload: true})
	stats := EncodeStats(Stats{Entries: 1000, MemtableSize: 4096, SSTables: 2, Version: "1.0"})

	tests := []struct {
		name      string
		framing   Framing
		op        Opcode
		head      []byte
		wantSize  int
		wantKnown bool
	}{
		{"nothing read", FramingMessage, OpPut, nil, 0, false},
		{"ack status byte alone", FramingMessage, OpPut, ack[:1], 0, false},
		{"ack partial length", FramingMessage, OpPut, ack[:3], 0, false},
		{"ack header", FramingMessage, OpPut, ack[:5], len(ack), true},
		{"miss status byte alone", FramingMessage, OpGet, miss[:1], 0, false},
		{"miss header", FramingMessage, OpGet, miss[:5], len(miss), true},
		{"get hit status only", FramingMessage, OpGet, hit[:1], 0, false},
		{"get hit header", FramingMessage, OpGet, hit[:5], len(hit), true},
		{"get hit full", FramingMessage, OpGet, hit, len(hit), true},
		{"status counters partial", FramingMessage, OpStatus, stats[:20], 0, false},
		{"status header", FramingMessage, OpStatus, stats[:StatsHeaderSize], len(stats), true},
		{"status failure header", FramingMessage, OpStatus, miss[:5], len(miss), true},
		{"status-only ack", FramingStatusOnly, OpPut, []byte{0x00}, 1, true},
		{"status-only get miss", FramingStatusOnly, OpGet, []byte{0x01}, 1, true},
		{"status-only get hit waits", FramingStatusOnly, OpGet, hit[:1], 0, false},
		{"status-only ack with message", FramingStatusOnly, OpPut, ack[:5], len(ack), true},
		{"status-only partial length", FramingStatusOnly, OpPut, []byte{0x00, 0x02}, 0, false},
		{"status-only stats waits", FramingStatusOnly, OpStatus, stats[:1], 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, known := tt.framing.FrameSize(tt.op, tt.head)
			if known != tt.wantKnown || size != tt.wantSize {
				t.Errorf("FrameSize = (%d, %v), want (%d, %v)", size, known, tt.wantSize, tt.wantKnown)
			}
		})
	}
}

func TestStatusReply(t *testing.T) {
	want := Stats{Entries: 1 << 40, MemtableSize: 65536, SSTables: 3, Version: "mydb 0.1"}
	frame := EncodeReply(OpStatus, Response{Status: StatusOK, Stats: want})
	if len(frame) != StatsHeaderSize+len(want.Version) {
		t.Fatalf("expected frame length %d, got %d", StatsHeaderSize+len(want.Version), len(frame))
	}

	resp, err := DecodeReply(OpStatus, frame)
	if err != nil {
		t.Fatalf("DecodeReply failed: %v", err)
	}
	if !resp.OK() || resp.Stats != want {
		t.Errorf("got %+v, want stats %+v", resp, want)
	}

	// 失敗時は通常のエラー応答
	failure := EncodeResponse(Response{Status: 0x02, Payload: "Database not initialized", HasPayload: true})
	resp, err = DecodeReply(OpStatus, failure)
	if err != nil || resp.OK() || resp.Payload != "Database not initialized" {
		t.Errorf("unexpected failure decode: %+v, %v", resp, err)
	}

	for _, bad := range [][]byte{frame[:10], frame[:len(frame)-1], append(frame, 0)} {
		if _, err := DecodeReply(OpStatus, bad); !errors.Is(err, ErrProtocol) {
			t.Errorf("expected ErrProtocol for %d-byte reply, got %v", len(bad), err)
		}
	}
}

func TestDecodeReplyNonStatus(t *testing.T) {
	frame := EncodeReply(OpPing, Response{Payload: "PONG", HasPayload: true})
	resp, err := DecodeReply(OpPing, frame)
	if err != nil || !resp.OK() || resp.Payload != "PONG" {
		t.Errorf("unexpected PING decode: %+v, %v", resp, err)
	}
}

func TestParseFraming(t *testing.T) {
	tests := []struct {
		in      string
		want    Framing
		wantErr bool
	}{
		{"", FramingMessage, false},
		{"message", FramingMessage, false},
		{" Status-Only ", FramingStatusOnly, false},
		{"status", FramingStatusOnly, false},
		{"lines", FramingMessage, true},
	}
	for _, tt := range tests {
		got, err := ParseFraming(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFraming(%q) = %v, %v", tt.in, got, err)
		}
	}
	if FramingStatusOnly.String() != "status-only" {
		t.Errorf("unexpected String(): %s", FramingStatusOnly)
	}
}

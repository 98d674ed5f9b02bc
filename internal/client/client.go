// Package client provides a synchronous session against a key-value server.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"kvbench/internal/logger"
	"kvbench/internal/protocol"
)

var (
	// ErrConnection wraps dial, write and read failures at the socket level.
	ErrConnection = errors.New("connection error")
	// ErrTimeout is returned when an operation exceeds Config.Timeout.
	ErrTimeout = errors.New("operation timed out")
)

// Config はセッションの設定
type Config struct {
	DialTimeout    time.Duration    // 接続タイムアウト（0で無制限）
	Timeout        time.Duration    // 1操作あたりのタイムアウト（0で無制限）
	ReadBufferSize int              // 1回の読み込みサイズ
	Framing        protocol.Framing // 応答の区切り方（既定は常にメッセージ付き）
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		DialTimeout:    5 * time.Second,
		Timeout:        0,
		ReadBufferSize: 4096,
		Framing:        protocol.FramingMessage,
	}
}

// Session owns one connection to the server. Requests are strictly
// request-then-response; a Session must not be used from more than one
// goroutine at a time. It cannot be reopened after Close.
type Session struct {
	addr    string
	conn    net.Conn
	config  Config
	readBuf []byte
}

// Addr joins host and port into a dial address.
func Addr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Connect dials host:port. A refused or unreachable target yields an error
// wrapping ErrConnection; nothing is retried.
func Connect(ctx context.Context, host string, port int, config Config) (*Session, error) {
	addr := Addr(host, port)
	dialer := net.Dialer{
		Timeout: config.DialTimeout,
		Control: controlSocket,
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConnection, addr, err)
	}
	return NewWithConn(conn, config), nil
}

// NewWithConn wraps an established connection.
func NewWithConn(conn net.Conn, config Config) *Session {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = DefaultConfig().ReadBufferSize
	}

	addr := "unknown"
	if remote := conn.RemoteAddr(); remote != nil {
		addr = remote.String()
	}

	logger.Debug(addr, "Session opened")
	return &Session{
		addr:    addr,
		conn:    conn,
		config:  config,
		readBuf: make([]byte, config.ReadBufferSize),
	}
}

// Addr returns the remote address.
func (s *Session) Addr() string {
	return s.addr
}

// Close releases the connection. Closing a closed or never-opened session
// is a no-op.
func (s *Session) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	logger.Debug(s.addr, "Session closed")
	return err
}

// Exchange writes one request frame and returns the raw response frame.
//
// The first read is bounded by the read buffer size. When it does not hold
// the whole frame, reads continue until the size given by Config.Framing is
// in hand. Cancelling ctx interrupts a blocked write or read; the connection
// is then dropped and the error wraps ctx.Err().
func (s *Session) Exchange(ctx context.Context, op protocol.Opcode, payload []byte) ([]byte, error) {
	if s.conn == nil {
		return nil, fmt.Errorf("%w: session closed", ErrConnection)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, s.addr, err)
	}

	// キャンセル後に残った過去の期限もここで上書きする
	var deadline time.Time
	if s.config.Timeout > 0 {
		deadline = time.Now().Add(s.config.Timeout)
	}
	if err := s.conn.SetDeadline(deadline); err != nil {
		return nil, s.fail(ctx, "set deadline", err)
	}

	conn := s.conn
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := s.writeFull(ctx, protocol.EncodeFrame(op, payload)); err != nil {
		return nil, err
	}
	return s.readFrame(ctx, op)
}

// writeFull retries short writes until the frame is out or the socket fails.
func (s *Session) writeFull(ctx context.Context, frame []byte) error {
	for written := 0; written < len(frame); {
		n, err := s.conn.Write(frame[written:])
		written += n
		if err != nil {
			return s.fail(ctx, "write", err)
		}
	}
	return nil
}

func (s *Session) readFrame(ctx context.Context, op protocol.Opcode) ([]byte, error) {
	n, err := s.conn.Read(s.readBuf)
	if n == 0 && err != nil {
		if errors.Is(err, io.EOF) {
			s.drop()
			return nil, fmt.Errorf("%w: connection closed before response", protocol.ErrProtocol)
		}
		return nil, s.fail(ctx, "read", err)
	}
	frame := append([]byte(nil), s.readBuf[:n]...)

	for {
		size, known := s.config.Framing.FrameSize(op, frame)
		if known && len(frame) >= size {
			if len(frame) > size {
				s.drop()
				return nil, fmt.Errorf("%w: %d unexpected bytes after %s response", protocol.ErrProtocol, len(frame)-size, op)
			}
			return frame, nil
		}

		n, err = s.conn.Read(s.readBuf)
		frame = append(frame, s.readBuf[:n]...)
		if err != nil && n == 0 {
			if errors.Is(err, io.EOF) {
				s.drop()
				return nil, fmt.Errorf("%w: connection closed mid-frame after %d bytes", protocol.ErrProtocol, len(frame))
			}
			return nil, s.fail(ctx, "read", err)
		}
	}
}

// fail classifies a socket error and drops the connection, which is no
// longer in a known framing state. A deadline forced by cancellation is
// reported as ctx.Err().
func (s *Session) fail(ctx context.Context, stage string, err error) error {
	s.drop()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s %s interrupted: %w", stage, s.addr, ctxErr)
	}
	var netErr net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s %s after %v", ErrTimeout, stage, s.addr, s.config.Timeout)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrConnection, stage, s.addr, err)
}

func (s *Session) drop() {
	if s.conn != nil {
		logger.Warn(s.addr, "Dropping connection")
		_ = s.conn.Close()
		s.conn = nil
	}
}

// Do encodes req, exchanges it and decodes the response.
func (s *Session) Do(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	if !req.Op.Valid() {
		return protocol.Response{}, fmt.Errorf("unknown opcode 0x%02x", uint8(req.Op))
	}
	raw, err := s.Exchange(ctx, req.Op, protocol.EncodePayload(req.Fields()...))
	if err != nil {
		return protocol.Response{}, err
	}
	resp, err := protocol.DecodeReply(req.Op, raw)
	if err != nil {
		s.drop()
		return protocol.Response{}, err
	}
	return resp, nil
}

// Put stores value under key and reports whether the server accepted it.
func (s *Session) Put(ctx context.Context, key, value string) (bool, error) {
	resp, err := s.Do(ctx, protocol.Put(key, value))
	if err != nil {
		return false, err
	}
	return resp.OK(), nil
}

// Get returns the value stored under key. found is false when the server
// answers with a failure status.
func (s *Session) Get(ctx context.Context, key string) (value string, found bool, err error) {
	resp, err := s.Do(ctx, protocol.Get(key))
	if err != nil {
		return "", false, err
	}
	if !resp.OK() {
		return "", false, nil
	}
	if !resp.HasPayload {
		s.drop()
		return "", false, fmt.Errorf("%w: GET success without payload", protocol.ErrProtocol)
	}
	return resp.Payload, true, nil
}

// Delete removes key and reports whether the server accepted it.
func (s *Session) Delete(ctx context.Context, key string) (bool, error) {
	resp, err := s.Do(ctx, protocol.Delete(key))
	if err != nil {
		return false, err
	}
	return resp.OK(), nil
}

// Ping checks that the server answers.
func (s *Session) Ping(ctx context.Context) (bool, error) {
	resp, err := s.Do(ctx, protocol.Ping())
	if err != nil {
		return false, err
	}
	return resp.OK(), nil
}

// Status returns the server's statistics. ok is false when the server
// rejects the request; the returned Stats are then zero.
func (s *Session) Status(ctx context.Context) (stats protocol.Stats, ok bool, err error) {
	resp, err := s.Do(ctx, protocol.Status())
	if err != nil {
		return protocol.Stats{}, false, err
	}
	return resp.Stats, resp.OK(), nil
}

package node

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"kvbench/internal/logger"
	"kvbench/internal/protocol"
)

// Store はKVSの基本操作を定義するインターフェース
type Store interface {
	Get(key string) (string, bool)
	Set(key string, value string)
	Delete(key string) bool
	Keys() []string
	Size() int
}

// Ensure Node implements Store
var _ Store = (*Node)(nil)

// Status はノードの状態を表す
type Status int

const (
	StatusStopped Status = iota
	StatusRunning
	StatusSuspended
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusRunning:
		return "running"
	case StatusSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// Node はワイヤプロトコルを話すインメモリKVSの単一ノード
// ベンチマークの接続先としてテストで使う
type Node struct {
	id      string
	status  Status
	delay   time.Duration
	chunked bool
	framing protocol.Framing

	mu     sync.RWMutex
	data   map[string]string
	counts map[protocol.Opcode]uint64

	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

// New は新しいノードを作成する
func New(id string) *Node {
	return &Node{
		id:     id,
		status: StatusStopped,
		data:   make(map[string]string),
		counts: make(map[protocol.Opcode]uint64),
		conns:  make(map[net.Conn]struct{}),
	}
}

// ID はノードIDを返す
func (n *Node) ID() string {
	return n.id
}

// Start はループバックの空きポートで待ち受けを開始する
func (n *Node) Start(ctx context.Context) error {
	return n.Listen(ctx, "127.0.0.1:0")
}

// Listen は指定アドレスで待ち受けを開始する
func (n *Node) Listen(ctx context.Context, addr string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status != StatusStopped {
		return fmt.Errorf("node %s is already running", n.id)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("node %s: listen %s: %w", n.id, addr, err)
	}

	ctx, n.cancel = context.WithCancel(ctx)
	n.listener = ln
	n.status = StatusRunning

	n.wg.Add(1)
	go n.acceptLoop(ctx, ln)
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	logger.Info(n.id, "Node listening on %s", ln.Addr())
	return nil
}

// Stop は待ち受けを止め、全ての接続を閉じる
func (n *Node) Stop() error {
	n.mu.Lock()
	if n.status == StatusStopped {
		n.mu.Unlock()
		return fmt.Errorf("node %s is already stopped", n.id)
	}
	n.cancel()
	_ = n.listener.Close()
	for c := range n.conns {
		_ = c.Close()
	}
	n.status = StatusStopped
	n.mu.Unlock()

	n.wg.Wait()
	logger.Info(n.id, "Node stopped")
	return nil
}

// Addr は待ち受けアドレスを返す（停止中は空文字）
func (n *Node) Addr() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.listener == nil {
		return ""
	}
	return n.listener.Addr().String()
}

// HostPort は待ち受けアドレスをホストとポートに分けて返す
func (n *Node) HostPort() (string, int) {
	host, portStr, err := net.SplitHostPort(n.Addr())
	if err != nil {
		return "", 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

// Status はノードの現在のステータスを返す
func (n *Node) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// Suspend はノードを一時停止する
// 一時停止中もリクエストは受け取るが応答は返さない
func (n *Node) Suspend() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status != StatusRunning {
		return fmt.Errorf("node %s is not running", n.id)
	}

	n.status = StatusSuspended
	logger.Info(n.id, "Node suspended")
	return nil
}

// Resume は一時停止中のノードを再開する
func (n *Node) Resume() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status != StatusSuspended {
		return fmt.Errorf("node %s is not suspended", n.id)
	}

	n.status = StatusRunning
	logger.Info(n.id, "Node resumed")
	return nil
}

// SetDelay はレスポンス遅延を設定する
func (n *Node) SetDelay(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delay = d
}

// Delay は現在の遅延設定を返す
func (n *Node) Delay() time.Duration {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.delay
}

// SetChunked を有効にすると応答を1バイトずつ書き込む
// クライアントのフレーム組み立てを検証するため
func (n *Node) SetChunked(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chunked = enabled
}

// SetFraming は応答の形を切り替える
// 既定の FramingMessage は全ての応答に "OK" / "PONG" / "Not found" を付ける。
// FramingStatusOnly では GET ヒット以外をステータス1バイトで返す。
func (n *Node) SetFraming(f protocol.Framing) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.framing = f
}

// Framing は現在の応答の形を返す
func (n *Node) Framing() protocol.Framing {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.framing
}

// Version は STATUS 応答で返すバージョン文字列
const Version = "kvbench-node 1.0"

// Stats は STATUS 応答の内容を返す
// MemtableSize はキーと値のバイト数の合計、SSTables は常に0
func (n *Node) Stats() protocol.Stats {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var size uint64
	for k, v := range n.data {
		size += uint64(len(k) + len(v))
	}
	return protocol.Stats{
		Entries:      uint64(len(n.data)),
		MemtableSize: size,
		Version:      Version,
	}
}

// Count はオペコード別の受信リクエスト数を返す
func (n *Node) Count(op protocol.Opcode) uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.counts[op]
}

// Get はキーに対応する値を取得する
func (n *Node) Get(key string) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	value, exists := n.data[key]
	return value, exists
}

// Set はキーに値を設定する
func (n *Node) Set(key string, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.data[key] = value
}

// Delete はキーを削除し、存在していたかを返す
func (n *Node) Delete(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, exists := n.data[key]
	delete(n.data, key)
	return exists
}

// Keys は全てのキーを返す
func (n *Node) Keys() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	keys := make([]string, 0, len(n.data))
	for k := range n.data {
		keys = append(keys, k)
	}
	return keys
}

// Size はデータストアのサイズを返す
func (n *Node) Size() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.data)
}

// Handle は1リクエストを処理して応答を返す
//
// PUT/DELETE/PING は "OK" / "PONG" 付き、GET のヒットは値付き、ミスと存在
// しないキーの DELETE は StatusNotFound と "Not found"、STATUS は Stats を
// 返す。FramingStatusOnly ではメッセージを付けない。
func (n *Node) Handle(req protocol.Request) protocol.Response {
	n.mu.Lock()
	n.counts[req.Op]++
	n.mu.Unlock()

	switch req.Op {
	case protocol.OpPut:
		n.Set(req.Key, req.Value)
		return n.reply(protocol.StatusOK, "OK")
	case protocol.OpGet:
		if value, ok := n.Get(req.Key); ok {
			return protocol.Response{Status: protocol.StatusOK, Payload: value, HasPayload: true}
		}
		return n.reply(protocol.StatusNotFound, "Not found")
	case protocol.OpDelete:
		if n.Delete(req.Key) {
			return n.reply(protocol.StatusOK, "OK")
		}
		return n.reply(protocol.StatusNotFound, "Not found")
	case protocol.OpStatus:
		return protocol.Response{Status: protocol.StatusOK, Stats: n.Stats()}
	default:
		return n.reply(protocol.StatusOK, "PONG")
	}
}

func (n *Node) reply(status byte, msg string) protocol.Response {
	if n.Framing() == protocol.FramingStatusOnly {
		return protocol.Response{Status: status}
	}
	return protocol.Response{Status: status, Payload: msg, HasPayload: true}
}

func (n *Node) acceptLoop(ctx context.Context, ln net.Listener) {
	defer n.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				logger.Warn(n.id, "Accept failed: %v", err)
			}
			return
		}

		n.mu.Lock()
		if ctx.Err() != nil {
			n.mu.Unlock()
			_ = conn.Close()
			return
		}
		n.conns[conn] = struct{}{}
		n.mu.Unlock()

		n.wg.Add(1)
		go n.serveConn(conn)
	}
}

func (n *Node) serveConn(conn net.Conn) {
	defer n.wg.Done()
	defer func() {
		n.mu.Lock()
		delete(n.conns, conn)
		n.mu.Unlock()
		_ = conn.Close()
	}()

	r := bufio.NewReader(conn)
	for {
		frame, err := readRequestFrame(r)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Debug(n.id, "Connection closed: %v", err)
			}
			return
		}

		req, err := protocol.DecodeRequest(frame)
		if err != nil {
			logger.Warn(n.id, "Bad request: %v", err)
			return
		}

		if d := n.Delay(); d > 0 {
			time.Sleep(d)
		}

		resp := n.Handle(req)
		if n.Status() == StatusSuspended {
			continue
		}
		if err := n.write(conn, protocol.EncodeReply(req.Op, resp)); err != nil {
			return
		}
	}
}

func (n *Node) write(conn net.Conn, frame []byte) error {
	n.mu.RLock()
	chunked := n.chunked
	n.mu.RUnlock()

	if !chunked {
		_, err := conn.Write(frame)
		return err
	}
	for i := range frame {
		if _, err := conn.Write(frame[i : i+1]); err != nil {
			return err
		}
	}
	return nil
}

// readRequestFrame reads one length-prefixed request frame.
func readRequestFrame(r *bufio.Reader) ([]byte, error) {
	header := make([]byte, protocol.HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	size, _ := protocol.RequestFrameSize(header)
	frame := make([]byte, size)
	copy(frame, header)
	if _, err := io.ReadFull(r, frame[protocol.HeaderSize:]); err != nil {
		return nil, err
	}
	return frame, nil
}

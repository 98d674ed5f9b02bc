// Package client provides the transport session used by every benchmark
// operation.
//
// A Session owns exactly one TCP connection. Its lifecycle is
// connect, many request/response exchanges, close. Exchanges are synchronous:
// the whole request frame is written, then the response frame is read, and
// nothing is pipelined.
//
// # Basic Usage
//
//	s, err := client.Connect(ctx, "127.0.0.1", 6379, client.DefaultConfig())
//	if err != nil {
//	    return err // wraps client.ErrConnection
//	}
//	defer s.Close()
//
//	if ok, err := s.Ping(ctx); err != nil || !ok {
//	    return fmt.Errorf("server not ready")
//	}
//	ok, err := s.Put(ctx, "key", "value")
//	value, found, err := s.Get(ctx, "key")
//	stats, ok, err := s.Status(ctx)
//
// # Errors
//
//   - client.ErrConnection: dial, write or read failure. Not retried.
//   - client.ErrTimeout: Config.Timeout expired during an exchange.
//   - protocol.ErrProtocol: the response could not be framed or decoded.
//   - ctx.Err(): the context was cancelled while an exchange was blocked.
//
// A server rejecting a request (nonzero status) is not an error: Put, Delete
// and Ping report false and Get reports found=false. After any error the
// connection is dropped and the session stays closed.
//
// # Framing
//
// The first read is bounded by Config.ReadBufferSize. If the response's
// length field declares more bytes than arrived, Exchange keeps reading until
// the declared frame is complete.
//
// With the default protocol.FramingMessage every reply carries
// [status][len][message] ("OK", "PONG", "Not found"), so a status byte that
// arrives alone is never taken as a whole reply. Servers that answer acks and
// misses with a lone status byte need protocol.FramingStatusOnly. A STATUS
// success is always [status][entries][memtable size][sstables][version].
package client

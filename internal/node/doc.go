// Package node provides an in-memory key-value node that speaks the binary
// wire protocol over TCP.
//
// It is a benchmark target for tests, not a production server: data lives in
// a map, and a few knobs shape its behavior so client and runner edge cases
// can be exercised.
//
// # Basic Usage
//
//	n := node.New("target")
//	if err := n.Start(ctx); err != nil { // 127.0.0.1 on a free port
//	    t.Fatal(err)
//	}
//	defer n.Stop()
//
//	host, port := n.HostPort()
//	s, err := client.Connect(ctx, host, port, client.DefaultConfig())
//
// # Fault Knobs
//
//   - SetDelay: sleep before answering each request.
//   - Suspend/Resume: keep reading requests but send no responses.
//   - SetChunked: write responses one byte at a time.
//   - SetFraming: FramingMessage (default) attaches "OK", "PONG" or
//     "Not found" to every reply; FramingStatusOnly answers acks and misses
//     with a lone status byte. STATUS always returns the Stats body.
//
// # Node Lifecycle
//
// Stopped -> Running <-> Suspended -> Stopped.
package node

//go:build linux

package client

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// controlSocket enables TCP_QUICKACK so the kernel acknowledges responses
// immediately instead of holding the ACK for the next request.
func controlSocket(network, _ string, c syscall.RawConn) error {
	if network != "tcp" && network != "tcp4" && network != "tcp6" {
		return nil
	}
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

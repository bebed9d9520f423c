//go:build !linux

package session

import (
	"net"
	"time"
)

// Tune applies per-connection socket options using only the portable net API.
func Tune(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}

	tc.SetNoDelay(true)
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(30 * time.Second)
}

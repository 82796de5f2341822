//go:build !windows

package rpc

import (
	"net"
	"os"
	"time"
)

func listenBroker(socketPath string) (net.Listener, error) {
	return net.Listen("unix", socketPath)
}

func dialBroker(socketPath string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", socketPath, timeout)
}

func endpointExists(socketPath string) bool {
	_, err := os.Stat(socketPath)
	return err == nil
}

// halfCloseWrite signals end of requests while keeping the read side open.
func halfCloseWrite(conn net.Conn) error {
	if uc, ok := conn.(*net.UnixConn); ok {
		return uc.CloseWrite()
	}
	return nil
}

//go:build windows

package rpc

import (
	"net"
	"os"
	"time"
)

// Windows 10+ supports AF_UNIX sockets through the standard net package.
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

func halfCloseWrite(conn net.Conn) error {
	type closeWriter interface{ CloseWrite() error }
	if cw, ok := conn.(closeWriter); ok {
		return cw.CloseWrite()
	}
	return nil
}

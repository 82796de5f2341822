package rpc

import (
	"bufio"
	"io"
	"time"
)

// Proxy bridges a stdio MCP client to the broker socket: lines from in are
// forwarded to the daemon and responses are copied back to out, byte for
// byte. It returns true on a clean shutdown (stdin EOF or daemon close)
// and false if the daemon was unreachable.
func Proxy(socketPath string, in io.Reader, out io.Writer) bool {
	conn, err := dialBroker(socketPath, DialTimeout)
	if err != nil {
		return false
	}
	defer func() { _ = conn.Close() }()

	done := make(chan struct{}, 2)

	// stdin -> socket
	go func() {
		defer func() { done <- struct{}{} }()
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			if err := conn.SetWriteDeadline(time.Now().Add(30 * time.Second)); err != nil {
				return
			}
			if _, err := conn.Write(append(line, '\n')); err != nil {
				return
			}
		}
		// stdin closed; let the daemon flush pending responses.
		_ = halfCloseWrite(conn)
	}()

	// socket -> stdout
	go func() {
		defer func() { done <- struct{}{} }()
		reader := bufio.NewReader(conn)
		writer := bufio.NewWriter(out)
		defer func() { _ = writer.Flush() }()
		for {
			line, err := reader.ReadBytes('\n')
			if len(line) > 0 {
				if _, werr := writer.Write(line); werr != nil {
					return
				}
				if werr := writer.Flush(); werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	// Block until both pumps exit: stdin EOF half-closes the write side,
	// then the read pump drains until the daemon closes its end. Closing
	// the socket any earlier would discard in-flight responses.
	<-done
	<-done
	return true
}

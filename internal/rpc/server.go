package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/mod/semver"
)

// ServerVersion is the broker's version, set from main so CLI and daemon
// builds stay in lockstep.
var ServerVersion = "0.3.0"

// Handler serves one JSON-RPC method. A nil *Error means success.
type Handler func(ctx context.Context, params json.RawMessage) (interface{}, *Error)

// Server is the MCP broker: it owns the local socket and multiplexes
// concurrent line-delimited JSON-RPC connections onto registered handlers.
// The routing table is read-only once Start is called.
type Server struct {
	socketPath string
	handlers   map[string]Handler

	mu       sync.RWMutex
	listener net.Listener
	shutdown bool
	conns    map[net.Conn]struct{}

	shutdownChan chan struct{}
	stopOnce     sync.Once
	doneChan     chan struct{}
	readyChan    chan struct{}

	maxConns       int
	activeConns    int32
	connSemaphore  chan struct{}
	requestTimeout time.Duration

	metrics *Metrics
}

// NewServer creates a broker for socketPath. Register handlers before Start.
func NewServer(socketPath string) *Server {
	maxConns := 100
	if env := os.Getenv("CURATOR_DAEMON_MAX_CONNS"); env != "" {
		var n int
		if _, err := fmt.Sscanf(env, "%d", &n); err == nil && n > 0 {
			maxConns = n
		}
	}

	requestTimeout := 30 * time.Second
	if env := os.Getenv("CURATOR_DAEMON_REQUEST_TIMEOUT"); env != "" {
		if d, err := time.ParseDuration(env); err == nil && d > 0 {
			requestTimeout = d
		}
	}

	return &Server{
		socketPath:     socketPath,
		handlers:       make(map[string]Handler),
		conns:          make(map[net.Conn]struct{}),
		shutdownChan:   make(chan struct{}),
		doneChan:       make(chan struct{}),
		readyChan:      make(chan struct{}),
		maxConns:       maxConns,
		connSemaphore:  make(chan struct{}, maxConns),
		requestTimeout: requestTimeout,
		metrics:        NewMetrics(),
	}
}

// Register adds a handler for method. Must be called before Start; the
// routing table is not safe to mutate once the accept loop runs.
func (s *Server) Register(method string, h Handler) {
	s.handlers[method] = h
}

// Metrics exposes the broker's counters.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// SocketPath returns the socket path the broker binds.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start binds the socket and accepts connections until Stop. Blocks; run it
// in its own goroutine. Each accepted connection is served concurrently so
// one slow or malformed client never blocks others.
func (s *Server) Start(_ context.Context) error {
	if err := s.removeStaleSocket(); err != nil {
		return fmt.Errorf("failed to prepare socket path: %w", err)
	}

	listener, err := listenBroker(s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to bind broker socket: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(s.socketPath, 0600); err != nil {
			_ = listener.Close()
			_ = os.Remove(s.socketPath)
			return fmt.Errorf("failed to set socket permissions: %w", err)
		}
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	close(s.readyChan)
	go s.handleSignals()

	defer close(s.doneChan)

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.RLock()
			shutdown := s.shutdown
			s.mu.RUnlock()
			if shutdown {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		select {
		case s.connSemaphore <- struct{}{}:
			s.metrics.RecordConnection()
			s.trackConn(conn, true)
			go func(c net.Conn) {
				defer func() { <-s.connSemaphore }()
				defer s.trackConn(c, false)
				atomic.AddInt32(&s.activeConns, 1)
				defer atomic.AddInt32(&s.activeConns, -1)
				s.handleConnection(c)
			}(conn)
		default:
			s.metrics.RecordRejectedConnection()
			_ = conn.Close()
		}
	}
}

// WaitReady returns a channel closed once the broker is accepting.
func (s *Server) WaitReady() <-chan struct{} {
	return s.readyChan
}

// Stop stops accepting, closes all open connections, closes the listener and
// removes the socket path. Safe to call at any time and more than once.
// Post-condition: the socket path does not exist.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.shutdown = true
		listener := s.listener
		s.listener = nil
		open := make([]net.Conn, 0, len(s.conns))
		for c := range s.conns {
			open = append(open, c)
		}
		s.mu.Unlock()

		close(s.shutdownChan)

		for _, c := range open {
			_ = c.Close()
		}

		if listener != nil {
			if closeErr := listener.Close(); closeErr != nil {
				err = fmt.Errorf("failed to close listener: %w", closeErr)
			}
		}

		if removeErr := os.Remove(s.socketPath); removeErr != nil && !os.IsNotExist(removeErr) {
			err = fmt.Errorf("failed to remove socket: %w", removeErr)
		}
	})

	// Wait for the accept loop to unwind, bounded.
	select {
	case <-s.doneChan:
	case <-time.After(5 * time.Second):
	}

	return err
}

// removeStaleSocket clears a leftover socket file, refusing to clobber one
// that a live broker still answers on.
func (s *Server) removeStaleSocket() error {
	if !endpointExists(s.socketPath) {
		return nil
	}

	conn, err := dialBroker(s.socketPath, 500*time.Millisecond)
	if err == nil {
		_ = conn.Close()
		return fmt.Errorf("socket %s is in use by another daemon", s.socketPath)
	}

	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Server) handleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, brokerSignals...)
	defer signal.Stop(sigChan)
	select {
	case <-sigChan:
		_ = s.Stop()
	case <-s.shutdownChan:
	}
}

func (s *Server) trackConn(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.requestTimeout)); err != nil {
			return
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			// One bad line poisons only this connection.
			resp := errorResponse(nil, Errorf(CodeParseError, "parse error: %v", err))
			s.writeResponse(conn, writer, resp)
			return
		}

		resp := s.dispatch(&req)
		if !s.writeResponse(conn, writer, resp) {
			return
		}
	}
}

func (s *Server) dispatch(req *Request) Response {
	start := time.Now()

	if req.JSONRPC != Version {
		return errorResponse(req.ID, Errorf(CodeInvalidRequest, "unsupported jsonrpc version %q", req.JSONRPC))
	}
	if req.Method == "" {
		return errorResponse(req.ID, Errorf(CodeInvalidRequest, "missing method"))
	}

	var resp Response
	if req.Method == "ping" {
		resp = s.handlePing(req)
	} else {
		handler, ok := s.handlers[req.Method]
		if !ok {
			resp = errorResponse(req.ID, Errorf(CodeMethodNotFound, "unknown method: %s", req.Method))
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
			result, rpcErr := handler(ctx, req.Params)
			cancel()
			if rpcErr != nil {
				resp = errorResponse(req.ID, rpcErr)
			} else {
				resp = resultResponse(req.ID, result)
			}
		}
	}

	s.metrics.RecordRequest(req.Method, time.Since(start), resp.Error != nil)
	return resp
}

type pingParams struct {
	ClientVersion string `json:"client_version,omitempty"`
}

type pingResult struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
}

// handlePing answers liveness probes and gates incompatible clients.
func (s *Server) handlePing(req *Request) Response {
	var params pingParams
	if err := req.UnmarshalParams(&params); err != nil {
		return errorResponse(req.ID, Errorf(CodeInvalidParams, "bad ping params: %v", err))
	}
	if rpcErr := CheckClientVersion(ServerVersion, params.ClientVersion); rpcErr != nil {
		return errorResponse(req.ID, rpcErr)
	}
	return resultResponse(req.ID, pingResult{OK: true, Version: ServerVersion})
}

// CheckClientVersion enforces major-version agreement between a client and
// the daemon. Empty or non-semver versions are allowed through (dev builds).
func CheckClientVersion(serverVersion, clientVersion string) *Error {
	if clientVersion == "" {
		return nil
	}

	serverVer := serverVersion
	if !strings.HasPrefix(serverVer, "v") {
		serverVer = "v" + serverVer
	}
	clientVer := clientVersion
	if !strings.HasPrefix(clientVer, "v") {
		clientVer = "v" + clientVer
	}
	if !semver.IsValid(serverVer) || !semver.IsValid(clientVer) {
		return nil
	}

	if semver.Major(serverVer) != semver.Major(clientVer) {
		return Errorf(CodeInvalidRequest,
			"incompatible versions: client %s, daemon %s; restart the daemon after upgrading",
			clientVersion, serverVersion)
	}
	return nil
}

func (s *Server) writeResponse(conn net.Conn, writer *bufio.Writer, resp Response) bool {
	data, err := json.Marshal(resp)
	if err != nil {
		return false
	}
	if err := conn.SetWriteDeadline(time.Now().Add(s.requestTimeout)); err != nil {
		return false
	}
	if _, err := writer.Write(data); err != nil {
		return false
	}
	if err := writer.WriteByte('\n'); err != nil {
		return false
	}
	return writer.Flush() == nil
}

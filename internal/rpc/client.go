package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// Client is a line-delimited JSON-RPC client for the broker socket.
// Safe for concurrent use; calls are serialized on the wire.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	nextID  int64
	timeout time.Duration
}

// DialTimeout is how long Dial waits for the broker to answer.
const DialTimeout = 2 * time.Second

// Dial connects to the broker at socketPath.
func Dial(socketPath string) (*Client, error) {
	conn, err := dialBroker(socketPath, DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon socket: %w", err)
	}
	return &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		nextID:  1,
		timeout: 30 * time.Second,
	}, nil
}

// TryDial connects to the broker if its socket exists and answers.
// Returns (nil, nil) when no daemon appears to be running.
func TryDial(socketPath string) (*Client, error) {
	if !endpointExists(socketPath) {
		return nil, nil
	}
	client, err := Dial(socketPath)
	if err != nil {
		return nil, nil
	}
	return client, nil
}

// Call issues one request and decodes the result into out (which may be nil).
// A JSON-RPC error response is returned as *Error.
func (c *Client) Call(method string, params interface{}, out interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++

	req, err := NewRequest(id, method, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return nil
}

// Ping checks daemon liveness and version compatibility.
func (c *Client) Ping(clientVersion string) (string, error) {
	var result pingResult
	if err := c.Call("ping", pingParams{ClientVersion: clientVersion}, &result); err != nil {
		return "", err
	}
	return result.Version, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

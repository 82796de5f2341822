// Package rpc implements the broker protocol: newline-delimited JSON-RPC 2.0
// over a local socket. The broker multiplexes many short-lived CLI and MCP
// client processes onto the single daemon session.
package rpc

import (
	"encoding/json"
	"fmt"
)

// Version is the JSON-RPC protocol version spoken on the wire.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is one JSON-RPC request line.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is one JSON-RPC response line.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object. It doubles as a Go error so handlers
// and clients can pass it around directly.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Errorf builds an Error with a formatted message.
func Errorf(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewRequest builds a request with marshaled params.
func NewRequest(id int64, method string, params interface{}) (*Request, error) {
	req := &Request{JSONRPC: Version, Method: method}

	idJSON, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	req.ID = idJSON

	if params != nil {
		paramsJSON, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("cannot marshal params: %w", err)
		}
		req.Params = paramsJSON
	}
	return req, nil
}

// UnmarshalParams decodes the request params into v.
func (r *Request) UnmarshalParams(v interface{}) error {
	if len(r.Params) == 0 {
		return nil
	}
	return json.Unmarshal(r.Params, v)
}

// resultResponse builds a success response echoing the request id.
func resultResponse(id json.RawMessage, result interface{}) Response {
	resp := Response{JSONRPC: Version, ID: normalizeID(id)}
	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = Errorf(CodeInternalError, "cannot marshal result: %v", err)
		return resp
	}
	resp.Result = data
	return resp
}

// errorResponse builds an error response echoing the request id.
func errorResponse(id json.RawMessage, rpcErr *Error) Response {
	return Response{JSONRPC: Version, ID: normalizeID(id), Error: rpcErr}
}

// normalizeID substitutes an explicit null for absent ids so error
// responses always carry the id key, per JSON-RPC 2.0.
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

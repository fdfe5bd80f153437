// Package mcp implements a line-oriented JSON-RPC 2.0 tool server in the shape
// of the Model Context Protocol.
//
// A host launches the server as a subprocess and exchanges one JSON object per
// line over stdin and stdout. The server answers a handshake, lists the tools
// in its [Registry], and runs them on request.
//
// # Basic Usage
//
//	registry := mcp.NewRegistry()
//	if err := registry.Register(myTool); err != nil {
//	    log.Fatal(err)
//	}
//
//	server, err := mcp.NewServer(registry, mcp.Implementation{
//	    Name:    "my-server",
//	    Version: "1.0.0",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
//
// # Protocol Details
//
// Supported methods:
//   - initialize: handshake and capability exchange
//   - ping: connection health check
//   - tools/list: enumerate available tools
//   - tools/call: execute a tool
//   - notifications/initialized: client ready notification (no response)
//
// Requests are served strictly one at a time and responses are written in the
// order the requests were read. A line that cannot be decoded ends the session.
package mcp

import (
	"encoding/json"

	"github.com/bpowers/toolwire/schema"
	"github.com/bpowers/toolwire/tool"
)

// ProtocolVersion is the protocol version advertised during the handshake.
const ProtocolVersion = "2024-11-05"

// JSONRPCVersion is the protocol tag carried by every message.
const JSONRPCVersion = "2.0"

// Request represents a JSON-RPC 2.0 request message.
// The ID field is omitted for notification requests that don't expect a response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitzero"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitzero"`
}

// IsNotification reports whether the request carries no id.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response represents a JSON-RPC 2.0 response message.
// Either Result or Error will be set, but not both.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitzero"`
	Error   *Error          `json:"error,omitzero"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitzero"`
}

// Implementation identifies a server or client implementation.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolDefinition describes a tool's interface as returned by tools/list.
type ToolDefinition struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	InputSchema *schema.JSON `json:"inputSchema"`
}

// ToolCapabilities describes the server's tool-related capabilities.
type ToolCapabilities struct {
	ListChanged bool `json:"listChanged,omitzero"`
}

// ServerCapabilities describes what features the server supports.
type ServerCapabilities struct {
	Tools *ToolCapabilities `json:"tools,omitzero"`
}

// InitializeResult is returned by the initialize method during handshake.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitzero"`
}

// ListToolsResult is returned by the tools/list method.
type ListToolsResult struct {
	Tools []ToolDefinition `json:"tools"`
}

// CallToolResult is returned by the tools/call method.
// IsError is true if the tool itself failed (distinct from JSON-RPC errors).
type CallToolResult struct {
	Content []tool.Content `json:"content"`
	IsError bool           `json:"isError,omitzero"`
}

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/toolwire/tool"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	registry := NewRegistry()
	require.NoError(t, registry.Register(echoTool()))
	require.NoError(t, registry.Register(strictTool()))
	server, err := NewServer(registry, Implementation{Name: "test-mcp-server", Version: "1.0.0"}, opts...)
	require.NoError(t, err)
	return server
}

func dispatch(t *testing.T, server *Server, raw string) *Response {
	t.Helper()
	req, err := DecodeRequest([]byte(raw))
	require.NoError(t, err)
	return server.Dispatch(context.Background(), req)
}

func TestNewServerNilRegistry(t *testing.T) {
	_, err := NewServer(nil, Implementation{Name: "test", Version: "1.0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry is required")
}

func TestNewServerEmptyName(t *testing.T) {
	_, err := NewServer(NewRegistry(), Implementation{Name: "", Version: "1.0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server name is required")
}

func TestNewServerEmptyVersion(t *testing.T) {
	_, err := NewServer(NewRegistry(), Implementation{Name: "test", Version: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server version is required")
}

func TestNewServerWithEmptyProtocolVersion(t *testing.T) {
	_, err := NewServer(
		NewRegistry(),
		Implementation{Name: "test", Version: "1.0"},
		WithProtocolVersion(""),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "protocol version is required")
}

func TestInitialize(t *testing.T) {
	server := newTestServer(t)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":"X-1","method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"host","version":"0.1"},"capabilities":{}}}`)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)
	assert.Equal(t, json.RawMessage(`"X-1"`), resp.ID)

	result, ok := resp.Result.(InitializeResult)
	require.True(t, ok)
	assert.Equal(t, "2024-11-05", result.ProtocolVersion)
	assert.NotNil(t, result.Capabilities.Tools)
	assert.Equal(t, Implementation{Name: "test-mcp-server", Version: "1.0.0"}, result.ServerInfo)
	assert.Empty(t, result.Instructions)

	encoded, err := EncodeResponse(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"X-1","result":{"protocolVersion":"2024-11-05","capabilities":{"tools":{}},"serverInfo":{"name":"test-mcp-server","version":"1.0.0"}}}`, string(encoded))
}

func TestInitializeWithoutParams(t *testing.T) {
	server := newTestServer(t)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	require.Nil(t, resp.Error)
	_, ok := resp.Result.(InitializeResult)
	assert.True(t, ok)
}

func TestInitializeWithOptions(t *testing.T) {
	server := newTestServer(t,
		WithInstructions("Use this server to do things"),
		WithProtocolVersion("custom-2025"),
	)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(InitializeResult)
	require.True(t, ok)
	assert.Equal(t, "custom-2025", result.ProtocolVersion)
	assert.Equal(t, "Use this server to do things", result.Instructions)
}

func TestPing(t *testing.T) {
	server := newTestServer(t)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":9,"method":"ping"}`)
	require.Nil(t, resp.Error)
	encoded, err := EncodeResponse(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":9,"result":{}}`, string(encoded))
}

func TestListTools(t *testing.T) {
	server := newTestServer(t)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, json.RawMessage("2"), resp.ID)

	result, ok := resp.Result.(ListToolsResult)
	require.True(t, ok)
	require.Len(t, result.Tools, 2)
	assert.Equal(t, "test_echo", result.Tools[0].Name)
	assert.Equal(t, "strict", result.Tools[1].Name)

	encoded, err := EncodeResponse(resp)
	require.NoError(t, err)
	var wire struct {
		Result struct {
			Tools []map[string]any `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(encoded, &wire))
	echo := wire.Result.Tools[0]
	assert.Equal(t, "test_echo", echo["name"])
	assert.Equal(t, map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to echo back",
			},
		},
		"required": []any{"message"},
	}, echo["inputSchema"])
}

func TestListToolsIsIdempotent(t *testing.T) {
	server := newTestServer(t)

	first := dispatch(t, server, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	dispatch(t, server, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"test_echo","arguments":{"message":"x"}}}`)
	second := dispatch(t, server, `{"jsonrpc":"2.0","id":3,"method":"tools/list","params":{"cursor":"abc"}}`)

	assert.Equal(t, first.Result, second.Result)
}

func TestCallToolEcho(t *testing.T) {
	server := newTestServer(t)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"test_echo","arguments":{"message":"hi"}}}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, json.RawMessage("4"), resp.ID)

	result, ok := resp.Result.(CallToolResult)
	require.True(t, ok)
	assert.Equal(t, []tool.Content{{Type: tool.TextContent, Text: "Echo: hi"}}, result.Content)
	assert.False(t, result.IsError)

	encoded, err := EncodeResponse(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":4,"result":{"content":[{"type":"text","text":"Echo: hi"}]}}`, string(encoded))
}

func TestCallToolEchoDefaults(t *testing.T) {
	server := newTestServer(t)

	for _, params := range []string{
		`{"name":"test_echo"}`,
		`{"name":"test_echo","arguments":null}`,
		`{"name":"test_echo","arguments":{}}`,
		`{"name":"test_echo","arguments":{"message":null}}`,
	} {
		t.Run(params, func(t *testing.T) {
			resp := dispatch(t, server, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":`+params+`}`)
			require.Nil(t, resp.Error)
			result := resp.Result.(CallToolResult)
			assert.Equal(t, "Echo: No message provided", result.Content[0].Text)
		})
	}
}

func TestCallToolUnknown(t *testing.T) {
	server := newTestServer(t)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"nonexistent","arguments":{}}}`)
	require.NotNil(t, resp.Error)
	assert.Nil(t, resp.Result)
	assert.Equal(t, json.RawMessage("6"), resp.ID)
	assert.Equal(t, -1, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "nonexistent")
	assert.Equal(t, "Unknown tool: nonexistent", resp.Error.Message)
}

func TestCallToolMissingName(t *testing.T) {
	server := newTestServer(t)

	for _, raw := range []string{
		`{"jsonrpc":"2.0","id":7,"method":"tools/call"}`,
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"arguments":{}}}`,
	} {
		resp := dispatch(t, server, raw)
		require.NotNil(t, resp.Error)
		assert.Equal(t, errInvalidParams, resp.Error.Code)
		assert.Equal(t, "tool name is required", resp.Error.Data)
		assert.Equal(t, json.RawMessage("7"), resp.ID)
	}
}

func TestCallToolInvalidParams(t *testing.T) {
	server := newTestServer(t)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":8,"method":"tools/call","params":["test_echo"]}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, errInvalidParams, resp.Error.Code)

	resp = dispatch(t, server, `{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"test_echo","arguments":"hi"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, errInvalidParams, resp.Error.Code)
}

func TestCallToolNonStringArguments(t *testing.T) {
	server := newTestServer(t)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"test_echo","arguments":{"message":42}}}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, "Echo: 42", resp.Result.(CallToolResult).Content[0].Text)
}

func TestCallToolFailClosed(t *testing.T) {
	server := newTestServer(t)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":10,"method":"tools/call","params":{"name":"strict","arguments":{}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, errInvalidParams, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, `"name"`)

	resp = dispatch(t, server, `{"jsonrpc":"2.0","id":11,"method":"tools/call","params":{"name":"strict","arguments":{"name":"ada"}}}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, "hello ada", resp.Result.(CallToolResult).Content[0].Text)
}

func TestCallToolExecutionError(t *testing.T) {
	registry := NewRegistry()
	stub := newStubTool("failing", "fails")
	stub.err = assert.AnError
	require.NoError(t, registry.Register(stub))
	server, err := NewServer(registry, Implementation{Name: "test", Version: "1.0"})
	require.NoError(t, err)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":12,"method":"tools/call","params":{"name":"failing"}}`)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(CallToolResult)
	require.True(t, ok)
	assert.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Contains(t, result.Content[0].Text, assert.AnError.Error())
}

func TestCallToolPanicRecovery(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(panicTool{}))
	server, err := NewServer(registry, Implementation{Name: "test", Version: "1.0"})
	require.NoError(t, err)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":13,"method":"tools/call","params":{"name":"PanicTool"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, errInternal, resp.Error.Code)
	assert.Equal(t, "tool panic", resp.Error.Message)
	assert.Contains(t, resp.Error.Data, "intentional panic for testing")
	assert.Equal(t, json.RawMessage("13"), resp.ID)
}

func TestUnknownMethod(t *testing.T) {
	server := newTestServer(t)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":100,"method":"resources/list"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, errUnknown, resp.Error.Code)
	assert.Equal(t, "Unknown method: resources/list", resp.Error.Message)
	assert.Equal(t, json.RawMessage("100"), resp.ID)
}

func TestNotificationsGetNoResponse(t *testing.T) {
	server := newTestServer(t)

	for _, raw := range []string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":1}}`,
		`{"jsonrpc":"2.0","method":"tools/list"}`,
	} {
		assert.Nil(t, dispatch(t, server, raw), raw)
	}
}

func TestNullIDIsARequest(t *testing.T) {
	server := newTestServer(t)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":null,"method":"ping"}`)
	require.NotNil(t, resp)
	encoded, err := EncodeResponse(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"result":{}}`, string(encoded))
}

func TestPermissiveHandshakeAcceptsAnyOrder(t *testing.T) {
	server := newTestServer(t)

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"test_echo","arguments":{"message":"early"}}}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, "Echo: early", resp.Result.(CallToolResult).Content[0].Text)

	resp = dispatch(t, server, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	assert.Nil(t, resp.Error)
}

func TestStrictHandshakeRejectsBeforeInitialize(t *testing.T) {
	server := newTestServer(t, WithHandshakePolicy(Strict))

	resp := dispatch(t, server, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, errNotInitialized, resp.Error.Code)
	assert.Equal(t, "Server not initialized", resp.Error.Message)
	assert.Equal(t, json.RawMessage("1"), resp.ID)

	resp = dispatch(t, server, `{"jsonrpc":"2.0","id":2,"method":"ping"}`)
	assert.Nil(t, resp.Error)

	resp = dispatch(t, server, `{"jsonrpc":"2.0","id":3,"method":"initialize","params":{}}`)
	require.Nil(t, resp.Error)

	resp = dispatch(t, server, `{"jsonrpc":"2.0","id":4,"method":"tools/list"}`)
	assert.Nil(t, resp.Error)
}

func TestStrictHandshakeResetsPerSession(t *testing.T) {
	server := newTestServer(t, WithHandshakePolicy(Strict))

	first := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	}, "\n")
	out := &bytes.Buffer{}
	require.NoError(t, server.Serve(context.Background(), strings.NewReader(first), out))
	responses := readResponses(t, out)
	require.Len(t, responses, 2)
	assert.Nil(t, responses[1].Error)

	out.Reset()
	require.NoError(t, server.Serve(context.Background(), strings.NewReader(`{"jsonrpc":"2.0","id":3,"method":"tools/list"}`), out))
	responses = readResponses(t, out)
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, errNotInitialized, responses[0].Error.Code)
}

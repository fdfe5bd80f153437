package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/bpowers/toolwire/internal/logging"
	"github.com/bpowers/toolwire/journal"
	"github.com/bpowers/toolwire/tool"
)

const (
	// errUnknown is returned for unrecognized methods and tools.
	errUnknown        = -1
	errNotInitialized = -32002
	errInvalidParams  = -32602
	errInternal       = -32603
)

// HandshakePolicy controls whether methods are accepted before initialize.
type HandshakePolicy int

const (
	// Permissive accepts any method at any time.
	Permissive HandshakePolicy = iota
	// Strict rejects everything except initialize and ping until the
	// handshake has completed.
	Strict
)

type Option func(*Server)

type handler func(ctx context.Context, req Request) *Response

type Server struct {
	registry        *Registry
	invoker         *Invoker
	info            Implementation
	protocolVersion string
	instructions    string
	handshake       HandshakePolicy
	journal         journal.Store
	handlers        map[string]handler

	// per-session state, reset by Serve
	sessionID   string
	initialized bool
}

func NewServer(registry *Registry, info Implementation, opts ...Option) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("new server: registry is required")
	}
	if info.Name == "" {
		return nil, fmt.Errorf("new server: server name is required")
	}
	if info.Version == "" {
		return nil, fmt.Errorf("new server: server version is required")
	}

	server := &Server{
		registry:        registry,
		invoker:         NewInvoker(registry),
		info:            info,
		protocolVersion: ProtocolVersion,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(server)
		}
	}

	if server.protocolVersion == "" {
		return nil, fmt.Errorf("new server: protocol version is required")
	}

	server.handlers = map[string]handler{
		"initialize": server.handleInitialize,
		"ping":       server.handlePing,
		"tools/list": server.handleListTools,
		"tools/call": server.handleCallTool,
	}

	return server, nil
}

func WithInstructions(instructions string) Option {
	return func(server *Server) {
		server.instructions = instructions
	}
}

func WithProtocolVersion(version string) Option {
	return func(server *Server) {
		server.protocolVersion = version
	}
}

func WithHandshakePolicy(policy HandshakePolicy) Option {
	return func(server *Server) {
		server.handshake = policy
	}
}

// WithJournal records every exchange of a session in store.
func WithJournal(store journal.Store) Option {
	return func(server *Server) {
		server.journal = store
	}
}

// Serve runs one session: it reads requests from in, one per line, and writes
// each response to out as soon as it is produced. It returns nil when in is
// exhausted, and an error on a read, decode or write failure or when ctx is
// canceled, including while waiting for input.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	if s == nil {
		return fmt.Errorf("serve: server is nil")
	}
	if in == nil {
		return fmt.Errorf("serve: input reader is nil")
	}
	if out == nil {
		return fmt.Errorf("serve: output writer is nil")
	}

	s.sessionID = uuid.NewString()
	s.initialized = false

	log := logging.Logger().With("session", s.sessionID)
	log.Info("session started", "server", s.info.Name, "protocolVersion", s.protocolVersion)

	lines := newLineFeed(NewLineReader(in))
	defer lines.close()
	writer := bufio.NewWriter(out)

	for seq := 1; ; seq++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("serve: %w", ctx.Err())
		default:
		}

		line, err := lines.next(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				log.Info("session canceled", "requests", seq-1)
				return fmt.Errorf("serve: %w", err)
			}
			if errors.Is(err, io.EOF) {
				log.Info("session ended", "requests", seq-1)
				return nil
			}
			return fmt.Errorf("serve: read failed: %w", err)
		}

		started := time.Now()
		req, err := DecodeRequest(line)
		if err != nil {
			log.Error("undecodable input", "seq", seq, "error", err)
			return fmt.Errorf("serve: decode failed: %w", err)
		}

		resp := s.Dispatch(ctx, req)

		var encoded []byte
		if resp != nil {
			encoded, err = EncodeResponse(resp)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			if err := writeLine(writer, out, encoded); err != nil {
				return fmt.Errorf("serve: writing response: %w", err)
			}
		}

		s.record(seq, req, line, encoded, resp, started)
	}
}

// writeLine writes one encoded response and flushes it through to the host.
func writeLine(w *bufio.Writer, out io.Writer, line []byte) error {
	if _, err := w.Write(line); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if f, ok := out.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (s *Server) record(seq int, req Request, line, encoded []byte, resp *Response, started time.Time) {
	if s.journal == nil {
		return
	}

	ex := journal.Exchange{
		Seq:       seq,
		Method:    req.Method,
		RequestID: string(req.ID),
		Request:   string(line),
		Response:  string(bytes.TrimSpace(encoded)),
		IsError:   resp != nil && resp.Error != nil,
		Duration:  time.Since(started),
		Timestamp: started,
	}
	if _, err := s.journal.Append(s.sessionID, ex); err != nil {
		logging.Logger().Warn("journal append failed", "session", s.sessionID, "seq", seq, "error", err)
	}
}

// Dispatch routes req to its handler and returns the response to send, or nil
// for notifications. Every failure is reported as an error response carrying
// the request's id.
func (s *Server) Dispatch(ctx context.Context, req Request) *Response {
	if req.IsNotification() {
		s.handleNotification(req)
		return nil
	}

	logging.Logger().Debug("dispatch", "method", req.Method, "id", string(req.ID))

	if s.handshake == Strict && !s.initialized && req.Method != "initialize" && req.Method != "ping" {
		return errorResponse(req.ID, errNotInitialized, "Server not initialized", nil)
	}

	h, ok := s.handlers[req.Method]
	if !ok {
		return errorResponse(req.ID, errUnknown, "Unknown method: "+req.Method, nil)
	}
	return h(ctx, req)
}

func (s *Server) handleNotification(req Request) {
	switch req.Method {
	case "notifications/initialized":
		logging.Logger().Debug("client initialized")
	default:
		logging.Logger().Debug("ignoring notification", "method", req.Method)
	}
}

func (s *Server) handleInitialize(_ context.Context, req Request) *Response {
	if len(req.Params) > 0 {
		var params struct {
			ProtocolVersion string         `json:"protocolVersion"`
			ClientInfo      Implementation `json:"clientInfo"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			logging.Logger().Debug("unreadable initialize params", "error", err)
		} else {
			logging.Logger().Info("client connected",
				"client", params.ClientInfo.Name,
				"clientVersion", params.ClientInfo.Version,
				"protocolVersion", params.ProtocolVersion)
		}
	}

	s.initialized = true

	result := InitializeResult{
		ProtocolVersion: s.protocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolCapabilities{},
		},
		ServerInfo:   s.info,
		Instructions: s.instructions,
	}
	return resultResponse(req.ID, result)
}

func (s *Server) handlePing(_ context.Context, req Request) *Response {
	return resultResponse(req.ID, struct{}{})
}

func (s *Server) handleListTools(_ context.Context, req Request) *Response {
	// Pagination is not implemented; a cursor param is ignored.
	return resultResponse(req.ID, ListToolsResult{
		Tools: s.registry.List(),
	})
}

func (s *Server) handleCallTool(ctx context.Context, req Request) *Response {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, errInvalidParams, "invalid params", err.Error())
		}
	}
	if params.Name == "" {
		return errorResponse(req.ID, errInvalidParams, "invalid params", "tool name is required")
	}

	args, err := tool.ParseArgs(params.Arguments)
	if err != nil {
		return errorResponse(req.ID, errInvalidParams, "invalid params", err.Error())
	}

	content, err := s.invoker.Invoke(ctx, params.Name, args)
	if err != nil {
		var unknown *UnknownToolError
		var missing *tool.MissingArgumentError
		var panicked *panicError
		switch {
		case errors.As(err, &unknown):
			return errorResponse(req.ID, errUnknown, unknown.Error(), nil)
		case errors.As(err, &missing):
			return errorResponse(req.ID, errInvalidParams, missing.Error(), nil)
		case errors.As(err, &panicked):
			logging.Logger().Error("tool panic", "tool", params.Name, "panic", panicked.value)
			return errorResponse(req.ID, errInternal, "tool panic", panicked.Error())
		default:
			return resultResponse(req.ID, CallToolResult{
				Content: tool.Text(err.Error()),
				IsError: true,
			})
		}
	}

	return resultResponse(req.ID, CallToolResult{Content: content})
}

func resultResponse(id json.RawMessage, result any) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
	}
}

func errorResponse(id json.RawMessage, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

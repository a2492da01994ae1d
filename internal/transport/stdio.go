package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
)

// NewlineDelimitedStream implements jsonrpc2.ObjectStream using newline
// delimited JSON, the framing MCP hosts use over stdio.
type NewlineDelimitedStream struct {
	in  *bufio.Reader
	out *bufio.Writer
	mu  sync.Mutex
}

// NewNewlineDelimitedStream creates a stream over the given reader and writer.
func NewNewlineDelimitedStream(in io.Reader, out io.Writer) *NewlineDelimitedStream {
	return &NewlineDelimitedStream{
		in:  bufio.NewReader(in),
		out: bufio.NewWriter(out),
	}
}

// NewStdioStream creates a stream over stdin and stdout.
func NewStdioStream() *NewlineDelimitedStream {
	return NewNewlineDelimitedStream(os.Stdin, os.Stdout)
}

// WriteObject writes one JSON object followed by a newline.
func (s *NewlineDelimitedStream) WriteObject(obj any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if _, err := s.out.Write(data); err != nil {
		return err
	}
	if err := s.out.WriteByte('\n'); err != nil {
		return err
	}
	return s.out.Flush()
}

// ReadObject reads one newline-delimited JSON object.
func (s *NewlineDelimitedStream) ReadObject(v any) error {
	line, err := s.in.ReadBytes('\n')
	if err != nil {
		if len(line) == 0 {
			return err
		}
	}
	return json.Unmarshal(line, v)
}

// Close implements jsonrpc2.ObjectStream. The underlying stdio handles are
// owned by the process, so there is nothing to close.
func (s *NewlineDelimitedStream) Close() error {
	return nil
}

// StdioServer serves the MCP protocol over a newline-delimited JSON-RPC
// stream, typically stdin/stdout.
type StdioServer struct {
	registry *Registry
	logger   *slog.Logger
}

// NewStdioServer creates a stdio MCP server dispatching to the given registry.
func NewStdioServer(registry *Registry, logger *slog.Logger) *StdioServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StdioServer{
		registry: registry,
		logger:   logger,
	}
}

// Run serves the stream until the peer disconnects or the context is
// cancelled.
func (s *StdioServer) Run(ctx context.Context, stream jsonrpc2.ObjectStream) error {
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(s))
	defer conn.Close()

	s.logger.Info("stdio transport started")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-conn.DisconnectNotify():
		s.logger.Info("stdio transport disconnected")
		return nil
	}
}

// Handle dispatches one JSON-RPC request.
func (s *StdioServer) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(ctx, conn, req)
	case "initialized", "notifications/initialized":
		// Notification, no reply.
	case "tools/list":
		s.reply(ctx, conn, req, ToolsListResult{Tools: s.registry.List()})
	case "tools/call":
		s.handleToolsCall(ctx, conn, req)
	default:
		if req.Notif {
			return
		}
		s.replyError(ctx, conn, req, ErrorCodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *StdioServer) handleInitialize(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params MCPInitializeParams
	if req.Params != nil {
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			s.replyError(ctx, conn, req, ErrorCodeInvalidParams, "invalid initialize params")
			return
		}
	}

	s.logger.Info("MCP initialize",
		slog.String("client", params.ClientInfo.Name),
		slog.String("client_version", params.ClientInfo.Version),
		slog.String("protocol_version", params.ProtocolVersion),
	)

	s.reply(ctx, conn, req, MCPInitializeResult{
		ProtocolVersion: MCPProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{
				ListChanged: true,
			},
		},
		ServerInfo: ServerInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
	})
}

func (s *StdioServer) handleToolsCall(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params ToolCallParams
	if req.Params == nil {
		s.replyError(ctx, conn, req, ErrorCodeInvalidParams, "missing tool call params")
		return
	}
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		s.replyError(ctx, conn, req, ErrorCodeInvalidParams, "invalid tool call params")
		return
	}

	s.logger.Info("tool call",
		slog.String("tool", params.Name),
	)

	payload, err := s.registry.Call(ctx, params.Name, params.Arguments)
	if errors.Is(err, ErrToolNotFound) {
		s.replyError(ctx, conn, req, ErrorCodeInvalidParams, fmt.Sprintf("tool '%s' not found", params.Name))
		return
	}
	if err != nil {
		s.logger.Error("tool call failed",
			slog.String("tool", params.Name),
			slog.Any("error", err),
		)
	}

	s.reply(ctx, conn, req, newToolCallResult(payload, err))
}

func (s *StdioServer) reply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, result any) {
	if req.Notif {
		return
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		s.logger.Error("failed to send reply",
			slog.String("method", req.Method),
			slog.Any("error", err),
		)
	}
}

func (s *StdioServer) replyError(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, code int64, message string) {
	if req.Notif {
		return
	}
	rpcErr := &jsonrpc2.Error{Code: code, Message: message}
	if err := conn.ReplyWithError(ctx, req.ID, rpcErr); err != nil {
		s.logger.Error("failed to send error reply",
			slog.String("method", req.Method),
			slog.Any("error", err),
		)
	}
}

package transport

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
)

func TestNewlineDelimitedStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	stream := NewNewlineDelimitedStream(&buf, &buf)

	if err := stream.WriteObject(map[string]string{"hello": "world"}); err != nil {
		t.Fatalf("WriteObject() error = %v", err)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Errorf("output = %q, want trailing newline", buf.String())
	}

	var got map[string]string
	if err := stream.ReadObject(&got); err != nil {
		t.Fatalf("ReadObject() error = %v", err)
	}
	if got["hello"] != "world" {
		t.Errorf("got = %v, want hello=world", got)
	}
}

func TestNewlineDelimitedStreamMultipleObjects(t *testing.T) {
	var buf bytes.Buffer
	stream := NewNewlineDelimitedStream(&buf, &buf)

	for _, msg := range []string{"one", "two", "three"} {
		if err := stream.WriteObject(map[string]string{"msg": msg}); err != nil {
			t.Fatalf("WriteObject(%q) error = %v", msg, err)
		}
	}

	for _, want := range []string{"one", "two", "three"} {
		var got map[string]string
		if err := stream.ReadObject(&got); err != nil {
			t.Fatalf("ReadObject() error = %v", err)
		}
		if got["msg"] != want {
			t.Errorf("msg = %q, want %q", got["msg"], want)
		}
	}
}

type noopClientHandler struct{}

func (noopClientHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {}

// startStdioServer runs a stdio server over one end of a pipe and returns a
// jsonrpc2 client connected to the other end.
func startStdioServer(t *testing.T) *jsonrpc2.Conn {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	srv := NewStdioServer(testRegistry(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Run(ctx, NewNewlineDelimitedStream(serverConn, serverConn))

	client := jsonrpc2.NewConn(ctx, NewNewlineDelimitedStream(clientConn, clientConn), noopClientHandler{})
	t.Cleanup(func() {
		client.Close()
		cancel()
		serverConn.Close()
		clientConn.Close()
	})
	return client
}

func callContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStdioInitialize(t *testing.T) {
	client := startStdioServer(t)

	var result MCPInitializeResult
	err := client.Call(callContext(t), "initialize", MCPInitializeParams{
		ProtocolVersion: MCPProtocolVersion,
		ClientInfo:      ClientInfo{Name: "test-client", Version: "1.0.0"},
	}, &result)
	if err != nil {
		t.Fatalf("initialize error = %v", err)
	}

	if result.ProtocolVersion != MCPProtocolVersion {
		t.Errorf("protocolVersion = %q, want %q", result.ProtocolVersion, MCPProtocolVersion)
	}
	if result.ServerInfo.Name != ServerName {
		t.Errorf("server name = %q, want %q", result.ServerInfo.Name, ServerName)
	}
	if result.Capabilities.Tools == nil {
		t.Error("tools capability missing")
	}
}

func TestStdioToolsList(t *testing.T) {
	client := startStdioServer(t)

	var result ToolsListResult
	if err := client.Call(callContext(t), "tools/list", nil, &result); err != nil {
		t.Fatalf("tools/list error = %v", err)
	}

	if len(result.Tools) != 2 {
		t.Fatalf("len(tools) = %d, want 2", len(result.Tools))
	}
	if result.Tools[0].Name != "echo" {
		t.Errorf("first tool = %q, want echo", result.Tools[0].Name)
	}
}

func TestStdioToolsCall(t *testing.T) {
	client := startStdioServer(t)

	var result ToolCallResult
	err := client.Call(callContext(t), "tools/call", ToolCallParams{
		Name:      "echo",
		Arguments: []byte(`{"message":"hi"}`),
	}, &result)
	if err != nil {
		t.Fatalf("tools/call error = %v", err)
	}

	if result.IsError {
		t.Error("IsError = true, want false")
	}
	if len(result.Content) != 1 || !strings.Contains(result.Content[0].Text, `"message":"hi"`) {
		t.Errorf("content = %v, want echoed message", result.Content)
	}
}

func TestStdioToolsCallHandlerError(t *testing.T) {
	client := startStdioServer(t)

	var result ToolCallResult
	err := client.Call(callContext(t), "tools/call", ToolCallParams{
		Name:      "broken",
		Arguments: []byte(`{}`),
	}, &result)
	if err != nil {
		t.Fatalf("tool failure should not be a protocol error, got %v", err)
	}

	if !result.IsError {
		t.Error("IsError = false, want true")
	}
	if !strings.Contains(result.Content[0].Text, `"success":false`) {
		t.Errorf("content = %q, want success:false payload", result.Content[0].Text)
	}
}

func TestStdioToolsCallUnknownTool(t *testing.T) {
	client := startStdioServer(t)

	var result ToolCallResult
	err := client.Call(callContext(t), "tools/call", ToolCallParams{
		Name: "does_not_exist",
	}, &result)
	if err == nil {
		t.Fatal("expected protocol error")
	}

	var rpcErr *jsonrpc2.Error
	if !asJSONRPCError(err, &rpcErr) {
		t.Fatalf("error = %T, want *jsonrpc2.Error", err)
	}
	if rpcErr.Code != ErrorCodeInvalidParams {
		t.Errorf("error code = %d, want %d", rpcErr.Code, ErrorCodeInvalidParams)
	}
}

func asJSONRPCError(err error, target **jsonrpc2.Error) bool {
	rpcErr, ok := err.(*jsonrpc2.Error)
	if ok {
		*target = rpcErr
	}
	return ok
}

func TestStdioUnknownMethod(t *testing.T) {
	client := startStdioServer(t)

	var result any
	err := client.Call(callContext(t), "resources/list", nil, &result)
	if err == nil {
		t.Fatal("expected protocol error")
	}

	var rpcErr *jsonrpc2.Error
	if !asJSONRPCError(err, &rpcErr) {
		t.Fatalf("error = %T, want *jsonrpc2.Error", err)
	}
	if rpcErr.Code != ErrorCodeMethodNotFound {
		t.Errorf("error code = %d, want %d", rpcErr.Code, ErrorCodeMethodNotFound)
	}
}

func TestStdioInitializedNotification(t *testing.T) {
	client := startStdioServer(t)
	ctx := callContext(t)

	if err := client.Notify(ctx, "notifications/initialized", nil); err != nil {
		t.Fatalf("notify error = %v", err)
	}

	// The connection must still answer calls after the notification.
	var result ToolsListResult
	if err := client.Call(ctx, "tools/list", nil, &result); err != nil {
		t.Fatalf("tools/list after notification error = %v", err)
	}
	if len(result.Tools) != 2 {
		t.Errorf("len(tools) = %d, want 2", len(result.Tools))
	}
}

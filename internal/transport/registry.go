package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrToolNotFound is returned by Call for unregistered tool names.
var ErrToolNotFound = errors.New("tool not found")

// ToolHandler executes one tool call and returns its result payload.
type ToolHandler func(ctx context.Context, arguments json.RawMessage) (any, error)

// InputSchema is the JSON schema for a tool's arguments.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes one argument in an input schema.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
}

// ToolDefinition is the externally visible description of a tool.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// Registry holds the tool definitions and handlers shared by the stdio and
// HTTP transports.
type Registry struct {
	mu       sync.RWMutex
	defs     []ToolDefinition
	handlers map[string]ToolHandler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]ToolHandler),
	}
}

// Register adds a tool. Registering the same name twice replaces the handler
// but keeps a single definition.
func (r *Registry) Register(def ToolDefinition, handler ToolHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[def.Name]; !exists {
		r.defs = append(r.defs, def)
	}
	r.handlers[def.Name] = handler
}

// List returns the registered tool definitions in registration order.
func (r *Registry) List() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ToolDefinition(nil), r.defs...)
}

// Call dispatches a tool call to its handler.
func (r *Registry) Call(ctx context.Context, name string, arguments json.RawMessage) (any, error) {
	r.mu.RLock()
	handler, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return handler(ctx, arguments)
}

// errorPayload is the {success:false, error} result shape used for any tool
// call the server could not answer.
type errorPayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ToolCallResult represents the result of a tool call.
type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock represents a content block in tool results.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// newToolCallResult wraps a tool outcome as an MCP content block. Handler
// errors become the {success:false, error} payload rather than a protocol
// error, so hosts always receive one result shape per call.
func newToolCallResult(payload any, err error) ToolCallResult {
	if err != nil {
		payload = errorPayload{Success: false, Error: err.Error()}
	}

	data, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		data, _ = json.Marshal(errorPayload{
			Success: false,
			Error:   fmt.Sprintf("failed to encode result: %v", marshalErr),
		})
		err = marshalErr
	}

	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: string(data)}},
		IsError: err != nil,
	}
}

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRegistryListOrder(t *testing.T) {
	r := testRegistry()

	defs := r.List()
	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d, want 2", len(defs))
	}
	if defs[0].Name != "echo" || defs[1].Name != "broken" {
		t.Errorf("definitions out of registration order: %s, %s", defs[0].Name, defs[1].Name)
	}
}

func TestRegistryReregisterReplacesHandler(t *testing.T) {
	r := NewRegistry()
	def := ToolDefinition{Name: "tool", InputSchema: InputSchema{Type: "object"}}

	r.Register(def, func(ctx context.Context, arguments json.RawMessage) (any, error) {
		return "first", nil
	})
	r.Register(def, func(ctx context.Context, arguments json.RawMessage) (any, error) {
		return "second", nil
	})

	if got := len(r.List()); got != 1 {
		t.Fatalf("len(defs) = %d, want 1", got)
	}

	result, err := r.Call(context.Background(), "tool", nil)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result != "second" {
		t.Errorf("result = %v, want second", result)
	}
}

func TestRegistryCallUnknownTool(t *testing.T) {
	r := testRegistry()

	_, err := r.Call(context.Background(), "missing", nil)
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("error = %v, want ErrToolNotFound", err)
	}
}

func TestNewToolCallResultSuccess(t *testing.T) {
	result := newToolCallResult(map[string]any{"success": true}, nil)

	if result.IsError {
		t.Error("IsError = true, want false")
	}
	if len(result.Content) != 1 {
		t.Fatalf("len(Content) = %d, want 1", len(result.Content))
	}
	if result.Content[0].Type != "text" {
		t.Errorf("content type = %q, want text", result.Content[0].Type)
	}
	if !strings.Contains(result.Content[0].Text, `"success":true`) {
		t.Errorf("content text = %q, want success payload", result.Content[0].Text)
	}
}

func TestNewToolCallResultError(t *testing.T) {
	result := newToolCallResult(nil, errors.New("file lookup failed"))

	if !result.IsError {
		t.Error("IsError = false, want true")
	}

	var payload struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(result.Content[0].Text), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.Success {
		t.Error("success = true, want false")
	}
	if payload.Error != "file lookup failed" {
		t.Errorf("error = %q, want original message", payload.Error)
	}
}

func TestNewToolCallResultDiscardsPayloadOnError(t *testing.T) {
	result := newToolCallResult(map[string]any{"secret": "value"}, errors.New("boom"))

	if strings.Contains(result.Content[0].Text, "secret") {
		t.Errorf("content text = %q, should not leak payload", result.Content[0].Text)
	}
}

package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/osaurus-ai/osaurus/internal/registry"
	"github.com/osaurus-ai/osaurus/internal/wire"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := registry.New()
	err := reg.Register(wire.ToolSpec{
		Name:        "echo",
		Description: "echoes input",
		Parameters:  wire.Object(map[string]wire.Value{"type": wire.String("object")}),
		Policy:      wire.PolicyAuto,
	}, func(ctx context.Context, cc registry.CallerContext, argumentsJSON string) ([]byte, error) {
		return []byte(argumentsJSON), nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return New(reg, ServerInfo{Name: "osaurus", Version: "test"})
}

func TestDispatchToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.Dispatch(context.Background(), JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	var result toolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(result.Tools) != 1 || result.Tools[0].Name != "echo" {
		t.Fatalf("tools = %+v", result.Tools)
	}
}

func TestDispatchToolsCall(t *testing.T) {
	s := newTestServer(t)
	params, _ := json.Marshal(toolsCallParams{Name: "echo", Arguments: json.RawMessage(`{"x":1}`)})
	resp := s.Dispatch(context.Background(), JSONRPCRequest{JSONRPC: "2.0", ID: 2, Method: "tools/call", Params: params})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	var result toolsCallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.IsError || len(result.Content) != 1 || result.Content[0].Text != `{"x":1}` {
		t.Fatalf("result = %+v", result)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	s := newTestServer(t)
	params, _ := json.Marshal(toolsCallParams{Name: "missing"})
	resp := s.Dispatch(context.Background(), JSONRPCRequest{JSONRPC: "2.0", ID: 3, Method: "tools/call", Params: params})
	if resp.Error == nil || resp.Error.Code != ErrCodeToolNotFound {
		t.Fatalf("expected ErrCodeToolNotFound, got %+v", resp.Error)
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	s := newTestServer(t)
	resp := s.Dispatch(context.Background(), JSONRPCRequest{JSONRPC: "2.0", ID: 4, Method: "bogus"})
	if resp.Error == nil || resp.Error.Code != ErrCodeMethodNotFound {
		t.Fatalf("expected ErrCodeMethodNotFound, got %+v", resp.Error)
	}
}

package gateway

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/osaurus-ai/osaurus/internal/backend"
	"github.com/osaurus-ai/osaurus/internal/mcpserver"
	"github.com/osaurus-ai/osaurus/internal/metrics"
	"github.com/osaurus-ai/osaurus/internal/registry"
	"github.com/osaurus-ai/osaurus/internal/wire"
)

func newTestServer(events []wire.BackendEvent) *Server {
	reg := registry.New()
	resolver := backend.StaticResolver{B: backend.Fake{Events: events}}
	mcp := mcpserver.New(reg, mcpserver.ServerInfo{Name: "osaurus-test", Version: "0.0.0-test"})
	return New(reg, resolver, mcp, []string{wire.ModelSentinel, "llama"}, 5*time.Second, nil, metrics.New())
}

func TestChatCompletionsNonStreaming(t *testing.T) {
	s := newTestServer([]wire.BackendEvent{
		{Kind: wire.BackendTokenChunk, Text: "hel"},
		{Kind: wire.BackendTokenChunk, Text: "lo"},
		{Kind: wire.BackendFinish, FinishReason: wire.FinishStop},
	})

	body := strings.NewReader(`{"model":"foundation","messages":[{"role":"user","content":"hi"}]}`)
	req := httptest.NewRequest("POST", "/chat/completions", body)
	rec := httptest.NewRecorder()

	s.ChatCompletions(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp openAINonStreamResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Choices[0].Message.Content != "hello" {
		t.Fatalf("content = %q, want %q", resp.Choices[0].Message.Content, "hello")
	}
	if resp.Choices[0].FinishReason != string(wire.FinishStop) {
		t.Fatalf("finish_reason = %q", resp.Choices[0].FinishReason)
	}
	if s.ActiveRequests() != 0 {
		t.Fatalf("active requests should settle back to 0, got %d", s.ActiveRequests())
	}
}

func TestModelsListsConfiguredIDs(t *testing.T) {
	s := newTestServer(nil)
	req := httptest.NewRequest("GET", "/models", nil)
	rec := httptest.NewRecorder()

	s.Models(rec, req)

	var out openAIModelList
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Data) != 2 || out.Data[0].ID != wire.ModelSentinel {
		t.Fatalf("unexpected model list: %+v", out.Data)
	}
}

func TestMCPHealthReportsToolCount(t *testing.T) {
	s := newTestServer(nil)
	if err := s.Registry.RegisterBatchTool(); err != nil {
		t.Fatalf("register batch tool: %v", err)
	}

	req := httptest.NewRequest("GET", "/mcp/health", nil)
	rec := httptest.NewRecorder()
	s.MCPHealth(rec, req)

	var out mcpHealthDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ToolCount != 1 {
		t.Fatalf("tool_count = %d, want 1", out.ToolCount)
	}
	if out.LivePluginCount != 0 {
		t.Fatalf("live_plugin_count = %d, want 0 with no plugin loader attached", out.LivePluginCount)
	}
}

package wire

import (
	"strings"
	"testing"
)

func TestDecodeOpenAIRequestBasic(t *testing.T) {
	body := `{
		"model": "foundation",
		"messages": [{"role":"user","content":"hi"}],
		"stream": true,
		"stop": ["END"]
	}`
	req, err := DecodeOpenAIRequest(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Dialect != DialectOpenAI {
		t.Fatalf("dialect = %v", req.Dialect)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "hi" {
		t.Fatalf("messages = %+v", req.Messages)
	}
	if !req.Params.Stream || len(req.Params.Stop) != 1 {
		t.Fatalf("params = %+v", req.Params)
	}
}

func TestDecodeOpenAIRequestDefaultsModel(t *testing.T) {
	req, err := DecodeOpenAIRequest(strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.ModelID != ModelSentinel {
		t.Fatalf("model = %q, want sentinel", req.ModelID)
	}
}

func TestDecodeAnthropicRequestContentBlocks(t *testing.T) {
	body := `{
		"model": "foundation",
		"system": "be terse",
		"max_tokens": 100,
		"messages": [
			{"role":"user","content":[{"type":"text","text":"hi"}]}
		],
		"tools": [{"name":"get_weather","input_schema":{"type":"object"}}]
	}`
	req, err := DecodeAnthropicRequest(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Dialect != DialectAnthropic {
		t.Fatalf("dialect = %v", req.Dialect)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected system + user messages, got %+v", req.Messages)
	}
	if req.Messages[0].Role != RoleSystem || req.Messages[0].Content != "be terse" {
		t.Fatalf("system message = %+v", req.Messages[0])
	}
	if req.Messages[1].Content != "hi" {
		t.Fatalf("user message = %+v", req.Messages[1])
	}
	if len(req.Tools) != 1 || req.Tools[0].Name != "get_weather" {
		t.Fatalf("tools = %+v", req.Tools)
	}
	if req.Params.MaxTokens == nil || *req.Params.MaxTokens != 100 {
		t.Fatalf("max_tokens = %+v", req.Params.MaxTokens)
	}
}

func TestDecodeAnthropicRequestStringContent(t *testing.T) {
	req, err := DecodeAnthropicRequest(strings.NewReader(`{"model":"foundation","max_tokens":10,"messages":[{"role":"user","content":"plain"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Messages[0].Content != "plain" {
		t.Fatalf("content = %q", req.Messages[0].Content)
	}
}

func TestDecodeOllamaRequestDefaultsStreamTrue(t *testing.T) {
	req, err := DecodeOllamaRequest(strings.NewReader(`{"model":"foundation","messages":[{"role":"user","content":"hi"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !req.Params.Stream {
		t.Fatalf("expected stream to default true")
	}
	if req.Dialect != DialectOllama {
		t.Fatalf("dialect = %v", req.Dialect)
	}
}

func TestDecodeOllamaRequestExplicitStreamFalse(t *testing.T) {
	req, err := DecodeOllamaRequest(strings.NewReader(`{"model":"foundation","messages":[{"role":"user","content":"hi"}],"stream":false}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Params.Stream {
		t.Fatalf("expected stream=false to be honored")
	}
}

func TestDecodeOllamaRequestToolCallRoundTrip(t *testing.T) {
	body := `{
		"model":"foundation",
		"messages":[{"role":"assistant","content":"","tool_calls":[{"function":{"name":"lookup","arguments":{"q":"x"}}}]}]
	}`
	req, err := DecodeOllamaRequest(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(req.Messages[0].ToolCalls) != 1 || req.Messages[0].ToolCalls[0].Name != "lookup" {
		t.Fatalf("tool calls = %+v", req.Messages[0].ToolCalls)
	}
}

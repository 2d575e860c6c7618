package gateway

import (
	"net/http"

	"github.com/osaurus-ai/osaurus/internal/apperr"
	"github.com/osaurus-ai/osaurus/internal/router"
	"github.com/osaurus-ai/osaurus/internal/wire"
	"github.com/osaurus-ai/osaurus/internal/writer"
)

// ChatCompletions serves POST /chat/completions (OpenAI dialect).
func (s *Server) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, wire.DecodeOpenAIRequest, openAIErrorEnvelope, newOpenAIWriter)
}

// Messages serves POST /messages (Anthropic dialect).
func (s *Server) Messages(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, wire.DecodeAnthropicRequest, anthropicErrorEnvelope, newAnthropicWriter)
}

// Chat serves POST /chat (Ollama dialect, NDJSON).
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, wire.DecodeOllamaRequest, ollamaErrorEnvelope, newOllamaWriter)
}

func openAIErrorEnvelope(kind apperr.Kind, message string) any {
	return wire.NewOpenAIError(kind, message)
}

func anthropicErrorEnvelope(kind apperr.Kind, message string) any {
	return wire.NewAnthropicError(kind, message)
}

func ollamaErrorEnvelope(kind apperr.Kind, message string) any {
	return wire.NewOllamaError(kind, message)
}

func newOpenAIWriter(w http.ResponseWriter, id, model string) eventWriter {
	return writer.NewOpenAIWriter(w, id, model)
}

func newAnthropicWriter(w http.ResponseWriter, id, model string) eventWriter {
	return writer.NewAnthropicWriter(w, id, model)
}

func newOllamaWriter(w http.ResponseWriter, _, model string) eventWriter {
	return writer.NewOllamaWriter(w, model)
}

type mcpHealthDetail struct {
	Status            string `json:"status"`
	ToolCount         int    `json:"tool_count"`
	LivePluginCount   int    `json:"live_plugin_count"`
}

// MCPHealth serves GET /mcp/health, reporting registered tool count and
// live plugin-loader count beyond a bare probe (spec §9 "/mcp/health
// detail").
func (s *Server) MCPHealth(w http.ResponseWriter, r *http.Request) {
	livePlugins := 0
	if s.PluginLoader != nil {
		livePlugins = len(s.PluginLoader.Loaded())
	}
	writeJSON(w, http.StatusOK, mcpHealthDetail{
		Status:          "ok",
		ToolCount:       len(s.Registry.List()),
		LivePluginCount: livePlugins,
	})
}

// MCPTools serves GET /mcp/tools.
func (s *Server) MCPTools(w http.ResponseWriter, r *http.Request) { s.MCPHTTP.Tools(w, r) }

// MCPCall serves POST /mcp/call.
func (s *Server) MCPCall(w http.ResponseWriter, r *http.Request) { s.MCPHTTP.Call(w, r) }

// Handlers assembles the router.Handlers bound to this Server, for use
// with router.New.
func (s *Server) Handlers() router.Handlers {
	return router.Handlers{
		Banner:          s.Banner,
		Health:          s.Health,
		Models:          s.Models,
		Tags:            s.Tags,
		ChatCompletions: s.ChatCompletions,
		Messages:        s.Messages,
		Chat:            s.Chat,
		Show:            s.Show,
		MCPHealth:       s.MCPHealth,
		MCPTools:        s.MCPTools,
		MCPCall:         s.MCPCall,
		Metrics:         s.Metrics.Handler(),
	}
}

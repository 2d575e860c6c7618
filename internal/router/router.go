package router

import "net/http"

// Handlers holds one handler per static route in the §4.B table. All
// dialect decoding/encoding and MCP logic lives in the handlers; the
// router only normalizes paths, dispatches by (method, path), and
// applies CORS.
type Handlers struct {
	Banner          http.HandlerFunc
	Health          http.HandlerFunc
	Models          http.HandlerFunc
	Tags            http.HandlerFunc
	ChatCompletions http.HandlerFunc // OpenAI dialect
	Messages        http.HandlerFunc // Anthropic dialect
	Chat            http.HandlerFunc // Ollama dialect (NDJSON)
	Show            http.HandlerFunc
	MCPHealth       http.HandlerFunc
	MCPTools        http.HandlerFunc
	MCPCall         http.HandlerFunc

	// Metrics serves GET /metrics (spec §4.J ambient observability). Nil
	// disables the route entirely rather than registering a 404 handler.
	Metrics http.Handler
}

// New builds the top-level handler: CORS -> HEAD short-circuit -> path
// normalization -> static method/path dispatch.
func New(cfg CORSConfig, h Handlers) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Banner)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /models", h.Models)
	mux.HandleFunc("GET /tags", h.Tags)
	mux.HandleFunc("POST /chat/completions", h.ChatCompletions)
	mux.HandleFunc("POST /messages", h.Messages)
	mux.HandleFunc("POST /chat", h.Chat)
	mux.HandleFunc("POST /show", h.Show)
	mux.HandleFunc("GET /mcp/health", h.MCPHealth)
	mux.HandleFunc("GET /mcp/tools", h.MCPTools)
	mux.HandleFunc("POST /mcp/call", h.MCPCall)
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}

	dispatch := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		r.URL.Path = Normalize(r.URL.Path)
		mux.ServeHTTP(w, r)
	})

	return withCORS(cfg, dispatch)
}

package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/osaurus-ai/osaurus/internal/registry"
)

// Server dispatches JSON-RPC method calls against a tool registry. It is
// transport-agnostic; Stdio and HTTP wrap it.
type Server struct {
	reg     *registry.Registry
	info    ServerInfo
	caller  registry.CallerContext
}

func New(reg *registry.Registry, info ServerInfo) *Server {
	return &Server{reg: reg, info: info, caller: registry.CallerContext{}}
}

// Dispatch handles one JSON-RPC request and returns its response.
// Notifications (ID == nil) still produce a response struct; callers on
// the stdio transport should simply not write it back per JSON-RPC
// convention, since this package does not distinguish requests from
// notifications beyond that.
func (s *Server) Dispatch(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return s.reply(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      s.info,
		})
	case "tools/list":
		return s.reply(req.ID, toolsListResult{Tools: s.listTools()})
	case "tools/call":
		return s.callTool(ctx, req)
	case "ping":
		return s.reply(req.ID, struct{}{})
	default:
		return s.errorReply(req.ID, ErrCodeMethodNotFound, "method not found: "+req.Method)
	}
}

func (s *Server) listTools() []MCPTool {
	specs := s.reg.List()
	out := make([]MCPTool, 0, len(specs))
	for _, spec := range specs {
		schema, _ := spec.Parameters.MarshalJSON()
		if len(schema) == 0 || string(schema) == "null" {
			schema = []byte(`{}`)
		}
		out = append(out, MCPTool{Name: spec.Name, Description: spec.Description, InputSchema: schema})
	}
	return out
}

func (s *Server) callTool(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorReply(req.ID, ErrCodeInvalidParams, "invalid tools/call params")
	}
	if _, ok := s.reg.Get(params.Name); !ok {
		return s.errorReply(req.ID, ErrCodeToolNotFound, "tool not found: "+params.Name)
	}

	argsJSON := string(params.Arguments)
	if argsJSON == "" {
		argsJSON = "{}"
	}
	result, err := s.reg.Execute(ctx, params.Name, argsJSON, s.caller)
	if err != nil {
		return s.reply(req.ID, toolsCallResult{
			Content: []toolResultContent{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
	}
	return s.reply(req.ID, toolsCallResult{Content: []toolResultContent{{Type: "text", Text: string(result)}}})
}

func (s *Server) reply(id any, result any) JSONRPCResponse {
	data, err := json.Marshal(result)
	if err != nil {
		return s.errorReply(id, ErrCodeInternalError, "failed to marshal result")
	}
	return JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: data}
}

func (s *Server) errorReply(id any, code int, message string) JSONRPCResponse {
	return JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &JSONRPCError{Code: code, Message: message}}
}

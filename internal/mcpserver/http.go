package mcpserver

import (
	"encoding/json"
	"net/http"
)

// HTTPHandlers adapts Server onto the three /mcp/* routes the router
// dispatches to directly (spec §4.B), bypassing the JSON-RPC envelope
// for a plainer REST-ish shape while still invoking the same Dispatch
// logic underneath.
type HTTPHandlers struct {
	server *Server
}

func NewHTTPHandlers(server *Server) HTTPHandlers {
	return HTTPHandlers{server: server}
}

type healthResponse struct {
	Status string `json:"status"`
	Tools  int    `json:"tool_count"`
}

func (h HTTPHandlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Tools: len(h.server.listTools())})
}

func (h HTTPHandlers) Tools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toolsListResult{Tools: h.server.listTools()})
}

type callRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (h HTTPHandlers) Call(w http.ResponseWriter, r *http.Request) {
	var body callRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	params, _ := json.Marshal(toolsCallParams{Name: body.Name, Arguments: body.Arguments})
	resp := h.server.Dispatch(r.Context(), JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp.Error != nil {
		writeJSON(w, http.StatusBadRequest, resp.Error)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(resp.Result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

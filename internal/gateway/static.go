package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/osaurus-ai/osaurus/internal/wire"
)

// Banner serves the plain-text GET / banner (spec §4.B).
func (s *Server) Banner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("osaurus is running\n"))
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health serves GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Timestamp: time.Now().UTC().Format(time.RFC3339)})
}

type openAIModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type openAIModelList struct {
	Object string        `json:"object"`
	Data   []openAIModel `json:"data"`
}

// Models serves GET /models in OpenAI shape, prepending the sentinel
// "foundation" entry when available (spec §4.B).
func (s *Server) Models(w http.ResponseWriter, r *http.Request) {
	data := make([]openAIModel, 0, len(s.ModelIDs)+1)
	hasFoundation := false
	for _, id := range s.ModelIDs {
		if id == wire.ModelSentinel {
			hasFoundation = true
		}
	}
	if hasFoundation {
		data = append(data, openAIModel{ID: wire.ModelSentinel, Object: "model", OwnedBy: "osaurus"})
	}
	for _, id := range s.ModelIDs {
		if id == wire.ModelSentinel {
			continue
		}
		data = append(data, openAIModel{ID: id, Object: "model", OwnedBy: "osaurus"})
	}
	writeJSON(w, http.StatusOK, openAIModelList{Object: "list", Data: data})
}

// Tags serves GET /tags in the Ollama model-list shape.
func (s *Server) Tags(w http.ResponseWriter, r *http.Request) {
	entries := make([]wire.OllamaModelEntry, 0, len(s.ModelIDs))
	for _, id := range s.ModelIDs {
		entries = append(entries, wire.OllamaModelEntry{Name: id, Model: id})
	}
	writeJSON(w, http.StatusOK, wire.OllamaTagsResponse{Models: entries})
}

type showRequest struct {
	Model string `json:"model"`
	Name  string `json:"name"`
}

type showResponse struct {
	Model     string `json:"model"`
	ModelInfo struct {
		Available bool `json:"available"`
	} `json:"model_info"`
}

// Show serves POST /show with per-model metadata. Model weight layout
// and capability introspection are out of scope (spec §1); this reports
// only whether the requested id is one of the configured models.
func (s *Server) Show(w http.ResponseWriter, r *http.Request) {
	var req showRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	model := req.Model
	if model == "" {
		model = req.Name
	}
	resp := showResponse{Model: model}
	for _, id := range s.ModelIDs {
		if id == model {
			resp.ModelInfo.Available = true
			break
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

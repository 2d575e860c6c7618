package wire

import (
	"encoding/json"
	"io"

	"github.com/osaurus-ai/osaurus/internal/apperr"
)

// Ollama has no Go client in the example corpus, so this dialect is
// hand-rolled from its documented /api/chat and /api/tags wire shapes.
// Streaming tool-call deltas are out of scope (Non-goals): the streamed
// NDJSON carries text only, and tool_calls appear only in a
// non-streaming response body.

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function ollamaToolCallFn `json:"function"`
}

type ollamaToolCallFn struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type ollamaToolDef struct {
	Type     string            `json:"type"`
	Function ollamaFunctionDef `json:"function"`
}

type ollamaFunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   *bool           `json:"stream,omitempty"`
	Tools    []ollamaToolDef `json:"tools,omitempty"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

// DecodeOllamaRequest decodes an Ollama /api/chat body into the Internal
// Request. Ollama streams by default (stream defaults to true unless
// explicitly set false).
func DecodeOllamaRequest(body io.Reader) (Request, error) {
	var raw ollamaChatRequest
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return Request{}, apperr.Wrap(apperr.InvalidRequest, "invalid Ollama request body", err)
	}

	stream := true
	if raw.Stream != nil {
		stream = *raw.Stream
	}

	req := Request{
		ModelID: raw.Model,
		Dialect: DialectOllama,
		Params: Params{
			Stream:      stream,
			N:           1,
			Stop:        raw.Options.Stop,
			Temperature: raw.Options.Temperature,
			TopP:        raw.Options.TopP,
			MaxTokens:   raw.Options.NumPredict,
		},
		ToolChoice: ToolChoice{Kind: ToolChoiceAuto},
	}
	if req.ModelID == "" {
		req.ModelID = ModelSentinel
	}

	for _, m := range raw.Messages {
		msg := Message{Role: Role(m.Role), Content: m.Content}
		for _, tc := range m.ToolCalls {
			argsJSON, _ := json.Marshal(tc.Function.Arguments)
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				Name:          tc.Function.Name,
				ArgumentsJSON: string(argsJSON),
			})
		}
		req.Messages = append(req.Messages, msg)
	}

	for _, t := range raw.Tools {
		params, _ := ParseValue(t.Function.Parameters)
		req.Tools = append(req.Tools, ToolSpec{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  params,
			Policy:      PolicyAuto,
			Provenance:  Provenance{Kind: ProvenanceBuiltin},
		})
	}

	return req, nil
}

// OllamaErrorEnvelope is Ollama's flat error body shape.
type OllamaErrorEnvelope struct {
	Error string `json:"error"`
}

func NewOllamaError(_ apperr.Kind, message string) OllamaErrorEnvelope {
	return OllamaErrorEnvelope{Error: message}
}

// OllamaModelEntry describes one entry in /api/tags and /models.
type OllamaModelEntry struct {
	Name       string `json:"name"`
	Model      string `json:"model"`
	ModifiedAt string `json:"modified_at"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
}

// OllamaTagsResponse is the /api/tags envelope.
type OllamaTagsResponse struct {
	Models []OllamaModelEntry `json:"models"`
}

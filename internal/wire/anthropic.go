package wire

import (
	"encoding/json"
	"io"

	"github.com/osaurus-ai/osaurus/internal/apperr"
)

// Anthropic's Messages API request/response shapes are hand-written here
// rather than imported from anthropics/anthropic-sdk-go: that SDK's
// request types are output-oriented builders using param.Field wrappers
// meant for *calling* the Anthropic API, not for decoding an inbound
// request body, and its streaming event types come bundled with their
// own client-side accumulator. Plain structs decode this dialect's wire
// JSON directly with encoding/json, which is all a server-side codec
// needs (see DESIGN.md).

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// tool_use block (assistant turn echoed back by some clients)
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result block (user turn)
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type anthropicMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type anthropicToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      json.RawMessage    `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	TopP        *float64           `json:"top_p,omitempty"`
	StopSeq     []string           `json:"stop_sequences,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
	Tools       []anthropicToolDef `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
}

// DecodeAnthropicRequest decodes an Anthropic Messages API body into the
// Internal Request.
func DecodeAnthropicRequest(body io.Reader) (Request, error) {
	var raw anthropicRequest
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return Request{}, apperr.Wrap(apperr.InvalidRequest, "invalid Anthropic request body", err)
	}

	req := Request{
		ModelID: raw.Model,
		Dialect: DialectAnthropic,
		Params: Params{
			Stop:   raw.StopSeq,
			Stream: raw.Stream,
			N:      1,
			MaxTokens: func() *int {
				if raw.MaxTokens > 0 {
					v := raw.MaxTokens
					return &v
				}
				return nil
			}(),
			Temperature: raw.Temperature,
			TopP:        raw.TopP,
		},
	}
	if req.ModelID == "" {
		req.ModelID = ModelSentinel
	}

	if len(raw.System) > 0 {
		if text := decodeAnthropicSystemPrompt(raw.System); text != "" {
			req.Messages = append(req.Messages, Message{Role: RoleSystem, Content: text})
		}
	}

	for _, m := range raw.Messages {
		req.Messages = append(req.Messages, anthropicMessageToInternal(m))
	}

	for _, t := range raw.Tools {
		params, _ := ParseValue(t.InputSchema)
		req.Tools = append(req.Tools, ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
			Policy:      PolicyAuto,
			Provenance:  Provenance{Kind: ProvenanceBuiltin},
		})
	}
	req.ToolChoice = decodeAnthropicToolChoice(raw.ToolChoice)

	return req, nil
}

func decodeAnthropicSystemPrompt(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []anthropicContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var out string
		for _, b := range blocks {
			if b.Type == "text" || b.Type == "" {
				out += b.Text
			}
		}
		return out
	}
	return ""
}

func anthropicMessageToInternal(m anthropicMessage) Message {
	msg := Message{Role: Role(m.Role)}

	var asString string
	if err := json.Unmarshal(m.Content, &asString); err == nil {
		msg.Content = asString
		return msg
	}

	var blocks []anthropicContentBlock
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return msg
	}
	var text string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			text += b.Text
		case "tool_use":
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:            b.ID,
				Name:          b.Name,
				ArgumentsJSON: string(b.Input),
			})
		case "tool_result":
			msg.ToolCallID = b.ToolUseID
			text += b.Content
		}
	}
	msg.Content = text
	return msg
}

func decodeAnthropicToolChoice(c *anthropicToolChoice) ToolChoice {
	if c == nil {
		return ToolChoice{Kind: ToolChoiceAuto}
	}
	switch c.Type {
	case "none":
		return ToolChoice{Kind: ToolChoiceNone}
	case "tool":
		return ToolChoice{Kind: ToolChoiceNamed, Name: c.Name}
	default:
		return ToolChoice{Kind: ToolChoiceAuto}
	}
}

// AnthropicErrorEnvelope is the Anthropic error body shape.
type AnthropicErrorEnvelope struct {
	Type  string             `json:"type"`
	Error AnthropicErrorBody `json:"error"`
}

type AnthropicErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewAnthropicError(kind apperr.Kind, message string) AnthropicErrorEnvelope {
	return AnthropicErrorEnvelope{
		Type:  "error",
		Error: AnthropicErrorBody{Type: string(kind), Message: message},
	}
}

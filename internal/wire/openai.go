package wire

import (
	"encoding/json"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/osaurus-ai/osaurus/internal/apperr"
)

// DecodeOpenAIRequest decodes an OpenAI chat-completions body into the
// Internal Request. It reuses go-openai's wire structs (which already
// implement the string-or-parts content union and the three tool_choice
// shapes) rather than hand-rolling parallel ones.
func DecodeOpenAIRequest(body io.Reader) (Request, error) {
	var raw openai.ChatCompletionRequest
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return Request{}, apperr.Wrap(apperr.InvalidRequest, "invalid OpenAI request body", err)
	}

	req := Request{
		ModelID: raw.Model,
		Dialect: DialectOpenAI,
		Params: Params{
			Stop:   raw.Stop,
			Stream: raw.Stream,
			N:      1,
		},
	}
	if raw.Temperature != 0 {
		t := float64(raw.Temperature)
		req.Params.Temperature = &t
	}
	if raw.TopP != 0 {
		p := float64(raw.TopP)
		req.Params.TopP = &p
	}
	if raw.MaxTokens != 0 {
		m := raw.MaxTokens
		req.Params.MaxTokens = &m
	}
	if raw.FrequencyPenalty != 0 {
		f := float64(raw.FrequencyPenalty)
		req.Params.FrequencyPenalty = &f
	}
	if raw.PresencePenalty != 0 {
		p := float64(raw.PresencePenalty)
		req.Params.PresencePenalty = &p
	}
	if req.ModelID == "" {
		req.ModelID = ModelSentinel
	}

	for _, m := range raw.Messages {
		req.Messages = append(req.Messages, openAIMessageToInternal(m))
	}

	for _, t := range raw.Tools {
		if t.Function == nil {
			continue
		}
		params, _ := ParseValue(functionParametersJSON(t.Function.Parameters))
		req.Tools = append(req.Tools, ToolSpec{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  params,
			Policy:      PolicyAuto,
			Provenance:  Provenance{Kind: ProvenanceBuiltin},
		})
	}
	req.ToolChoice = decodeOpenAIToolChoice(raw.ToolChoice)

	return req, nil
}

func functionParametersJSON(params any) []byte {
	if params == nil {
		return []byte(`{}`)
	}
	data, err := json.Marshal(params)
	if err != nil {
		return []byte(`{}`)
	}
	return data
}

func openAIMessageToInternal(m openai.ChatCompletionMessage) Message {
	content := m.Content
	if content == "" && len(m.MultiContent) > 0 {
		content = concatMultiContent(m.MultiContent)
	}

	msg := Message{
		Role:       Role(m.Role),
		Content:    content,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:            tc.ID,
			Name:          tc.Function.Name,
			ArgumentsJSON: tc.Function.Arguments,
		})
	}
	return msg
}

// concatMultiContent concatenates text parts in order, dropping
// non-text parts (images, etc.), per §4.A.
func concatMultiContent(parts []openai.ChatMessagePart) string {
	var out []byte
	for _, p := range parts {
		if p.Text == "" {
			continue
		}
		out = append(out, p.Text...)
	}
	return string(out)
}

func decodeOpenAIToolChoice(raw any) ToolChoice {
	switch v := raw.(type) {
	case nil:
		return ToolChoice{Kind: ToolChoiceAuto}
	case string:
		switch v {
		case "none":
			return ToolChoice{Kind: ToolChoiceNone}
		default:
			return ToolChoice{Kind: ToolChoiceAuto}
		}
	case openai.ToolChoice:
		if v.Function.Name != "" {
			return ToolChoice{Kind: ToolChoiceNamed, Name: v.Function.Name}
		}
		return ToolChoice{Kind: ToolChoiceAuto}
	case map[string]any:
		if fn, ok := v["function"].(map[string]any); ok {
			if name, ok := fn["name"].(string); ok && name != "" {
				return ToolChoice{Kind: ToolChoiceNamed, Name: name}
			}
		}
		return ToolChoice{Kind: ToolChoiceAuto}
	default:
		return ToolChoice{Kind: ToolChoiceAuto}
	}
}

// OpenAIErrorEnvelope is the standard OpenAI error body shape, used both
// for the OpenAI dialect and as the default when the dialect is unknown
// (spec §4.A).
type OpenAIErrorEnvelope struct {
	Error OpenAIErrorBody `json:"error"`
}

type OpenAIErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

func NewOpenAIError(kind apperr.Kind, message string) OpenAIErrorEnvelope {
	return OpenAIErrorEnvelope{Error: OpenAIErrorBody{Message: message, Type: string(kind)}}
}

func (e OpenAIErrorEnvelope) String() string {
	data, _ := json.Marshal(e)
	return string(data)
}

package writer

import (
	"io"
	"net/http"

	"github.com/osaurus-ai/osaurus/internal/apperr"
	"github.com/osaurus-ai/osaurus/internal/wire"
)

// OpenAI streams as a sequence of chat.completion.chunk objects framed as
// bare `data: ...` SSE lines (no named event), terminated by `data: [DONE]`.

type openAIDelta struct {
	Role      string            `json:"role,omitempty"`
	Content   *string           `json:"content,omitempty"`
	ToolCalls []openAIDeltaTool `json:"tool_calls,omitempty"`
}

type openAIDeltaTool struct {
	Index    int                 `json:"index"`
	ID       string              `json:"id,omitempty"`
	Type     string              `json:"type,omitempty"`
	Function openAIDeltaFunction `json:"function"`
}

type openAIDeltaFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type openAIChoice struct {
	Index        int          `json:"index"`
	Delta        openAIDelta  `json:"delta"`
	FinishReason *string      `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Model   string         `json:"model"`
	Choices []openAIChoice `json:"choices"`
	Usage   *openAIUsage   `json:"usage,omitempty"`
}

// OpenAIWriter frames GenerationEvents as OpenAI chat.completion.chunk SSE.
type OpenAIWriter struct {
	w       io.Writer
	id      string
	model   string
	usage   openAIUsage
}

func NewOpenAIWriter(w http.ResponseWriter, id, model string) *OpenAIWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &OpenAIWriter{w: w, id: id, model: model}
}

func (ow *OpenAIWriter) Write(ev wire.GenerationEvent) error {
	switch ev.Kind {
	case wire.EventRoleStart:
		empty := ""
		return ow.emit(openAIChoice{Delta: openAIDelta{Role: string(ev.Role), Content: &empty}, FinishReason: nil})
	case wire.EventContentDelta:
		text := ev.Text
		return ow.emit(openAIChoice{Delta: openAIDelta{Content: &text}, FinishReason: nil})
	case wire.EventToolCallDelta:
		return ow.emit(openAIChoice{
			Delta: openAIDelta{ToolCalls: []openAIDeltaTool{{
				Index:    ev.ToolIndex,
				ID:       ev.ToolID,
				Type:     "function",
				Function: openAIDeltaFunction{Name: ev.ToolName, Arguments: ev.ArgsChunk},
			}}},
			FinishReason: nil,
		})
	case wire.EventUsage:
		ow.usage = openAIUsage{
			PromptTokens:     ev.PromptTokens,
			CompletionTokens: ev.CompletionTokens,
			TotalTokens:      ev.PromptTokens + ev.CompletionTokens,
		}
		return nil
	case wire.EventFinish:
		if ev.Err != nil {
			// §4.G: a mid-stream error gets one error-shaped payload in the
			// current framing, then the stream closes — no success chunk,
			// no [DONE].
			if err := writeSSE(ow.w, "", marshalLine(wire.NewOpenAIError(apperr.KindOf(ev.Err), ev.Err.Error()))); err != nil {
				return err
			}
			flush(ow.w)
			return nil
		}
		reason := string(ev.FinishReason)
		chunk := openAIChunk{
			ID: ow.id, Object: "chat.completion.chunk", Model: ow.model,
			Choices: []openAIChoice{{Delta: openAIDelta{}, FinishReason: &reason}},
		}
		if ow.usage != (openAIUsage{}) {
			chunk.Usage = &ow.usage
		}
		if err := writeSSE(ow.w, "", marshalLine(chunk)); err != nil {
			return err
		}
		flush(ow.w)
		if err := writeSSE(ow.w, "", []byte("[DONE]")); err != nil {
			return err
		}
		flush(ow.w)
		return nil
	}
	return nil
}

func (ow *OpenAIWriter) emit(choice openAIChoice) error {
	chunk := openAIChunk{ID: ow.id, Object: "chat.completion.chunk", Model: ow.model, Choices: []openAIChoice{choice}}
	if err := writeSSE(ow.w, "", marshalLine(chunk)); err != nil {
		return err
	}
	flush(ow.w)
	return nil
}

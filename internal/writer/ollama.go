package writer

import (
	"io"
	"net/http"

	"github.com/osaurus-ai/osaurus/internal/apperr"
	"github.com/osaurus-ai/osaurus/internal/wire"
)

// Ollama streams NDJSON: one complete JSON object per line, no SSE
// envelope, terminated by an object with "done": true carrying the
// aggregate duration/token counters. Per Non-goals, tool-call deltas
// are never streamed on this dialect: they are dropped, and the terminal
// line carries no tool calls.

type ollamaStreamMessage struct {
	Role      string                  `json:"role,omitempty"`
	Content   string                  `json:"content"`
	ToolCalls []ollamaStreamToolCall `json:"tool_calls,omitempty"`
}

type ollamaStreamToolCall struct {
	Function ollamaStreamToolCallFn `json:"function"`
}

type ollamaStreamToolCallFn struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type ollamaChunk struct {
	Model              string              `json:"model"`
	Message            ollamaStreamMessage `json:"message"`
	Done               bool                `json:"done"`
	DoneReason         string              `json:"done_reason,omitempty"`
	PromptEvalCount    int                 `json:"prompt_eval_count,omitempty"`
	EvalCount          int                 `json:"eval_count,omitempty"`
}

func ollamaDoneReason(r wire.FinishReason) string {
	switch r {
	case wire.FinishLength:
		return "length"
	case wire.FinishToolCalls:
		return "tool_calls"
	default:
		return "stop"
	}
}

// OllamaWriter frames GenerationEvents as Ollama NDJSON lines.
type OllamaWriter struct {
	w         io.Writer
	model     string
	role      string
	toolCalls []ollamaStreamToolCall
	usage     struct{ prompt, completion int }
}

func NewOllamaWriter(w http.ResponseWriter, model string) *OllamaWriter {
	w.Header().Set("Content-Type", "application/x-ndjson")
	return &OllamaWriter{w: w, model: model}
}

func (ow *OllamaWriter) writeLine(c ollamaChunk) error {
	if _, err := ow.w.Write(append(marshalLine(c), '\n')); err != nil {
		return err
	}
	flush(ow.w)
	return nil
}

func (ow *OllamaWriter) Write(ev wire.GenerationEvent) error {
	switch ev.Kind {
	case wire.EventRoleStart:
		ow.role = string(ev.Role)
		return nil
	case wire.EventContentDelta:
		return ow.writeLine(ollamaChunk{
			Model:   ow.model,
			Message: ollamaStreamMessage{Role: ow.role, Content: ev.Text},
			Done:    false,
		})
	case wire.EventToolCallDelta:
		// Dropped silently; the Ollama stream carries text only.
		return nil
	case wire.EventUsage:
		ow.usage.prompt = ev.PromptTokens
		ow.usage.completion = ev.CompletionTokens
		return nil
	case wire.EventFinish:
		if ev.Err != nil {
			// §4.G: write one error-shaped NDJSON line and close cleanly —
			// returning a Go error here would read as a client disconnect
			// to the gateway and drop the connection with no terminator.
			if _, err := ow.w.Write(append(marshalLine(wire.NewOllamaError(apperr.KindOf(ev.Err), ev.Err.Error())), '\n')); err != nil {
				return err
			}
			flush(ow.w)
			return nil
		}
		msg := ollamaStreamMessage{Role: ow.role, ToolCalls: ow.toolCalls}
		return ow.writeLine(ollamaChunk{
			Model: ow.model, Message: msg, Done: true,
			DoneReason:      ollamaDoneReason(ev.FinishReason),
			PromptEvalCount: ow.usage.prompt, EvalCount: ow.usage.completion,
		})
	}
	return nil
}

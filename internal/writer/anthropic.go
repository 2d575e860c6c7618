package writer

import (
	"io"
	"net/http"

	"github.com/osaurus-ai/osaurus/internal/apperr"
	"github.com/osaurus-ai/osaurus/internal/wire"
)

// Anthropic's Messages API streams a typed SSE event taxonomy:
// message_start -> content_block_start -> content_block_delta* ->
// content_block_stop -> message_delta -> message_stop. Each frame names
// its event and carries a matching JSON payload.

type anthropicMessageStart struct {
	Type    string            `json:"type"`
	Message anthropicMsgShell `json:"message"`
}

type anthropicMsgShell struct {
	ID      string              `json:"id"`
	Type    string              `json:"type"`
	Role    string              `json:"role"`
	Model   string              `json:"model"`
	Content []struct{}          `json:"content"`
	Usage   anthropicUsageShell `json:"usage"`
}

type anthropicUsageShell struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicBlockStart struct {
	Type         string             `json:"type"`
	Index        int                `json:"index"`
	ContentBlock anthropicBlockBody `json:"content_block"`
}

type anthropicBlockBody struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Input any    `json:"input,omitempty"`
}

type anthropicBlockDelta struct {
	Type  string            `json:"type"`
	Index int               `json:"index"`
	Delta anthropicDeltaBody `json:"delta"`
}

type anthropicDeltaBody struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

type anthropicBlockStop struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

type anthropicMessageDelta struct {
	Type  string                  `json:"type"`
	Delta anthropicMessageDeltaBody `json:"delta"`
	Usage anthropicUsageShell     `json:"usage"`
}

type anthropicMessageDeltaBody struct {
	StopReason string `json:"stop_reason"`
}

type anthropicMessageStop struct {
	Type string `json:"type"`
}

func anthropicStopReason(r wire.FinishReason) string {
	switch r {
	case wire.FinishLength:
		return "max_tokens"
	case wire.FinishToolCalls:
		return "tool_use"
	default:
		return "end_turn"
	}
}

// AnthropicWriter frames GenerationEvents as Anthropic's typed SSE taxonomy.
type AnthropicWriter struct {
	w             io.Writer
	id, model     string
	blockOpen     bool
	blockIndex    int
	toolBlockOpen bool
	usage         anthropicUsageShell
}

func NewAnthropicWriter(w http.ResponseWriter, id, model string) *AnthropicWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &AnthropicWriter{w: w, id: id, model: model}
}

func (aw *AnthropicWriter) frame(event string, payload any) error {
	if err := writeSSE(aw.w, event, marshalLine(payload)); err != nil {
		return err
	}
	flush(aw.w)
	return nil
}

func (aw *AnthropicWriter) Write(ev wire.GenerationEvent) error {
	switch ev.Kind {
	case wire.EventRoleStart:
		return aw.frame("message_start", anthropicMessageStart{
			Type: "message_start",
			Message: anthropicMsgShell{
				ID: aw.id, Type: "message", Role: string(ev.Role), Model: aw.model,
			},
		})
	case wire.EventContentDelta:
		if !aw.blockOpen {
			aw.blockOpen = true
			if err := aw.frame("content_block_start", anthropicBlockStart{
				Type: "content_block_start", Index: aw.blockIndex,
				ContentBlock: anthropicBlockBody{Type: "text"},
			}); err != nil {
				return err
			}
		}
		return aw.frame("content_block_delta", anthropicBlockDelta{
			Type: "content_block_delta", Index: aw.blockIndex,
			Delta: anthropicDeltaBody{Type: "text_delta", Text: ev.Text},
		})
	case wire.EventToolCallDelta:
		if aw.blockOpen && !aw.toolBlockOpen {
			if err := aw.frame("content_block_stop", anthropicBlockStop{Type: "content_block_stop", Index: aw.blockIndex}); err != nil {
				return err
			}
			aw.blockIndex++
			aw.blockOpen = false
		}
		if !aw.toolBlockOpen {
			aw.toolBlockOpen = true
			if err := aw.frame("content_block_start", anthropicBlockStart{
				Type: "content_block_start", Index: aw.blockIndex,
				ContentBlock: anthropicBlockBody{Type: "tool_use", ID: ev.ToolID, Name: ev.ToolName},
			}); err != nil {
				return err
			}
		}
		return aw.frame("content_block_delta", anthropicBlockDelta{
			Type: "content_block_delta", Index: aw.blockIndex,
			Delta: anthropicDeltaBody{Type: "input_json_delta", PartialJSON: ev.ArgsChunk},
		})
	case wire.EventUsage:
		aw.usage = anthropicUsageShell{InputTokens: ev.PromptTokens, OutputTokens: ev.CompletionTokens}
		return nil
	case wire.EventFinish:
		if ev.Err != nil {
			// §4.G: a mid-stream error replaces the normal block-stop /
			// message_delta / message_stop sequence with a single typed
			// error event, then the stream closes.
			return aw.frame("error", wire.NewAnthropicError(apperr.KindOf(ev.Err), ev.Err.Error()))
		}
		if aw.blockOpen || aw.toolBlockOpen {
			if err := aw.frame("content_block_stop", anthropicBlockStop{Type: "content_block_stop", Index: aw.blockIndex}); err != nil {
				return err
			}
		}
		if err := aw.frame("message_delta", anthropicMessageDelta{
			Type:  "message_delta",
			Delta: anthropicMessageDeltaBody{StopReason: anthropicStopReason(ev.FinishReason)},
			Usage: aw.usage,
		}); err != nil {
			return err
		}
		return aw.frame("message_stop", anthropicMessageStop{Type: "message_stop"})
	}
	return nil
}

package gateway

import (
	"net/http"
	"time"

	"github.com/osaurus-ai/osaurus/internal/apperr"
	"github.com/osaurus-ai/osaurus/internal/wire"
)

// accumulated collects a full generation's events into one in-memory
// result, the shape every non-streaming dialect response is built from.
type accumulated struct {
	role             wire.Role
	content          string
	toolCalls        []wire.ToolCall
	promptTokens     int
	completionTokens int
	finish           wire.FinishReason
	err              error
}

// accumulate drains a generation-event channel to completion, mirroring
// what each writer does incrementally but collapsed into one value for
// a non-streaming response body (spec §4.F: non-streaming responses are
// "as if the whole stream had been buffered").
func accumulate(events <-chan wire.GenerationEvent) accumulated {
	var acc accumulated
	var open map[int]*wire.ToolCall
	for ev := range events {
		switch ev.Kind {
		case wire.EventRoleStart:
			acc.role = ev.Role
		case wire.EventContentDelta:
			acc.content += ev.Text
		case wire.EventToolCallDelta:
			if open == nil {
				open = make(map[int]*wire.ToolCall)
			}
			tc, ok := open[ev.ToolIndex]
			if !ok {
				tc = &wire.ToolCall{ID: ev.ToolID, Name: ev.ToolName}
				open[ev.ToolIndex] = tc
				acc.toolCalls = append(acc.toolCalls, *tc)
			}
			tc.ArgumentsJSON += ev.ArgsChunk
			acc.toolCalls[len(acc.toolCalls)-1].ArgumentsJSON = tc.ArgumentsJSON
		case wire.EventUsage:
			acc.promptTokens = ev.PromptTokens
			acc.completionTokens = ev.CompletionTokens
		case wire.EventFinish:
			acc.finish = ev.FinishReason
			acc.err = ev.Err
		}
	}
	return acc
}

// bufferEvents accumulates the full generation and writes one
// dialect-shaped JSON body, selected by req.Dialect (spec §4.A: every
// dialect supports a non-streaming mode even though each streams by a
// different wire format).
func (s *Server) bufferEvents(w http.ResponseWriter, events <-chan wire.GenerationEvent, req wire.Request, responseID string) {
	acc := accumulate(events)
	if acc.err != nil {
		writeJSON(w, apperr.HTTPStatus(apperr.KindOf(acc.err)), dialectErrorBody(req.Dialect, acc.err.Error()))
		return
	}

	switch req.Dialect {
	case wire.DialectAnthropic:
		writeJSON(w, http.StatusOK, anthropicNonStreamBody(acc, responseID, req.ModelID))
	case wire.DialectOllama:
		writeJSON(w, http.StatusOK, ollamaNonStreamBody(acc, req.ModelID))
	default:
		writeJSON(w, http.StatusOK, openAINonStreamBody(acc, responseID, req.ModelID))
	}
}

func dialectErrorBody(d wire.Dialect, message string) any {
	switch d {
	case wire.DialectAnthropic:
		return wire.NewAnthropicError(apperr.UpstreamFailure, message)
	case wire.DialectOllama:
		return wire.NewOllamaError(apperr.UpstreamFailure, message)
	default:
		return wire.NewOpenAIError(apperr.UpstreamFailure, message)
	}
}

type openAINonStreamMessage struct {
	Role      string               `json:"role"`
	Content   string               `json:"content"`
	ToolCalls []openAINonStreamCall `json:"tool_calls,omitempty"`
}

type openAINonStreamCall struct {
	ID       string                   `json:"id"`
	Type     string                   `json:"type"`
	Function openAINonStreamFunction `json:"function"`
}

type openAINonStreamFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAINonStreamChoice struct {
	Index        int                     `json:"index"`
	Message      openAINonStreamMessage `json:"message"`
	FinishReason string                  `json:"finish_reason"`
}

type openAINonStreamUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAINonStreamResponse struct {
	ID      string                   `json:"id"`
	Object  string                   `json:"object"`
	Created int64                    `json:"created"`
	Model   string                   `json:"model"`
	Choices []openAINonStreamChoice `json:"choices"`
	Usage   openAINonStreamUsage    `json:"usage"`
}

func openAINonStreamBody(acc accumulated, id, model string) openAINonStreamResponse {
	msg := openAINonStreamMessage{Role: string(acc.role), Content: acc.content}
	for _, tc := range acc.toolCalls {
		msg.ToolCalls = append(msg.ToolCalls, openAINonStreamCall{
			ID: tc.ID, Type: "function",
			Function: openAINonStreamFunction{Name: tc.Name, Arguments: tc.ArgumentsJSON},
		})
	}
	return openAINonStreamResponse{
		ID: id, Object: "chat.completion", Created: time.Now().Unix(), Model: model,
		Choices: []openAINonStreamChoice{{Message: msg, FinishReason: string(acc.finish)}},
		Usage: openAINonStreamUsage{
			PromptTokens: acc.promptTokens, CompletionTokens: acc.completionTokens,
			TotalTokens: acc.promptTokens + acc.completionTokens,
		},
	}
}

type anthropicNonStreamBlock struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Input any    `json:"input,omitempty"`
}

type anthropicNonStreamUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicNonStreamResponse struct {
	ID         string                    `json:"id"`
	Type       string                    `json:"type"`
	Role       string                    `json:"role"`
	Model      string                    `json:"model"`
	Content    []anthropicNonStreamBlock `json:"content"`
	StopReason string                    `json:"stop_reason"`
	Usage      anthropicNonStreamUsage   `json:"usage"`
}

func anthropicNonStreamBody(acc accumulated, id, model string) anthropicNonStreamResponse {
	var blocks []anthropicNonStreamBlock
	if acc.content != "" {
		blocks = append(blocks, anthropicNonStreamBlock{Type: "text", Text: acc.content})
	}
	for _, tc := range acc.toolCalls {
		input, _ := wire.ParseValue([]byte(tc.ArgumentsJSON))
		blocks = append(blocks, anthropicNonStreamBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: input})
	}
	return anthropicNonStreamResponse{
		ID: id, Type: "message", Role: string(acc.role), Model: model,
		Content:    blocks,
		StopReason: anthropicStopReasonForAPI(acc.finish),
		Usage:      anthropicNonStreamUsage{InputTokens: acc.promptTokens, OutputTokens: acc.completionTokens},
	}
}

// anthropicStopReasonForAPI mirrors writer.anthropicStopReason without
// exporting that helper across package boundaries.
func anthropicStopReasonForAPI(r wire.FinishReason) string {
	switch r {
	case wire.FinishLength:
		return "max_tokens"
	case wire.FinishToolCalls:
		return "tool_use"
	default:
		return "end_turn"
	}
}

type ollamaNonStreamMessage struct {
	Role      string                  `json:"role"`
	Content   string                  `json:"content"`
	ToolCalls []ollamaNonStreamCall `json:"tool_calls,omitempty"`
}

type ollamaNonStreamCall struct {
	Function ollamaNonStreamFunction `json:"function"`
}

type ollamaNonStreamFunction struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

type ollamaNonStreamResponse struct {
	Model           string                  `json:"model"`
	Message         ollamaNonStreamMessage `json:"message"`
	Done            bool                    `json:"done"`
	DoneReason      string                  `json:"done_reason,omitempty"`
	PromptEvalCount int                     `json:"prompt_eval_count,omitempty"`
	EvalCount       int                     `json:"eval_count,omitempty"`
}

func ollamaNonStreamBody(acc accumulated, model string) ollamaNonStreamResponse {
	msg := ollamaNonStreamMessage{Role: string(acc.role), Content: acc.content}
	for _, tc := range acc.toolCalls {
		args, _ := wire.ParseValue([]byte(tc.ArgumentsJSON))
		msg.ToolCalls = append(msg.ToolCalls, ollamaNonStreamCall{
			Function: ollamaNonStreamFunction{Name: tc.Name, Arguments: args},
		})
	}
	doneReason := "stop"
	switch acc.finish {
	case wire.FinishLength:
		doneReason = "length"
	case wire.FinishToolCalls:
		doneReason = "tool_calls"
	}
	return ollamaNonStreamResponse{
		Model: model, Message: msg, Done: true, DoneReason: doneReason,
		PromptEvalCount: acc.promptTokens, EvalCount: acc.completionTokens,
	}
}

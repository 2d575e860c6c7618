package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/osaurus-ai/osaurus/internal/wire"
)

func collect(events <-chan wire.GenerationEvent) []wire.GenerationEvent {
	var out []wire.GenerationEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func contentConcat(events []wire.GenerationEvent) string {
	var sb strings.Builder
	for _, ev := range events {
		if ev.Kind == wire.EventContentDelta {
			sb.WriteString(ev.Text)
		}
	}
	return sb.String()
}

func TestHappyPathStreaming(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan wire.BackendEvent, 4)
	in <- wire.BackendEvent{Kind: wire.BackendTokenChunk, Text: "hel"}
	in <- wire.BackendEvent{Kind: wire.BackendTokenChunk, Text: "lo"}
	in <- wire.BackendEvent{Kind: wire.BackendFinish, FinishReason: wire.FinishStop}
	close(in)

	req := wire.Request{Dialect: wire.DialectOpenAI}
	events := collect(Run(ctx, cancel, in, req))

	if events[0].Kind != wire.EventRoleStart {
		t.Fatalf("expected RoleStart first, got %v", events[0].Kind)
	}
	if got := contentConcat(events); got != "hello" {
		t.Fatalf("expected content %q, got %q", "hello", got)
	}
	last := events[len(events)-1]
	if last.Kind != wire.EventFinish || last.FinishReason != wire.FinishStop {
		t.Fatalf("expected terminal Finish(stop), got %+v", last)
	}
}

func TestStopSequenceTruncation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan wire.BackendEvent, 4)
	in <- wire.BackendEvent{Kind: wire.BackendTokenChunk, Text: "abcENDxyz"}
	in <- wire.BackendEvent{Kind: wire.BackendFinish, FinishReason: wire.FinishStop}
	close(in)

	req := wire.Request{Dialect: wire.DialectOpenAI, Params: wire.Params{Stop: []string{"END"}}}
	events := collect(Run(ctx, cancel, in, req))

	got := contentConcat(events)
	if got != "abc" {
		t.Fatalf("expected exactly %q, got %q", "abc", got)
	}
	if strings.Contains(got, "END") {
		t.Fatalf("stop sequence leaked into output: %q", got)
	}
	last := events[len(events)-1]
	if last.Kind != wire.EventFinish || last.FinishReason != wire.FinishStop {
		t.Fatalf("expected Finish(stop), got %+v", last)
	}
}

func TestStopSequenceSpanningTokenBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan wire.BackendEvent, 4)
	in <- wire.BackendEvent{Kind: wire.BackendTokenChunk, Text: "abc"}
	in <- wire.BackendEvent{Kind: wire.BackendTokenChunk, Text: "EN"}
	in <- wire.BackendEvent{Kind: wire.BackendTokenChunk, Text: "D"}
	in <- wire.BackendEvent{Kind: wire.BackendFinish, FinishReason: wire.FinishStop}
	close(in)

	req := wire.Request{Dialect: wire.DialectOpenAI, Params: wire.Params{Stop: []string{"END"}}}
	events := collect(Run(ctx, cancel, in, req))

	got := contentConcat(events)
	if got != "abc" {
		t.Fatalf("expected exactly %q, got %q", "abc", got)
	}
	if strings.Contains(got, "EN") {
		t.Fatalf("partial stop sequence leaked across token boundary: %q", got)
	}
	last := events[len(events)-1]
	if last.Kind != wire.EventFinish || last.FinishReason != wire.FinishStop {
		t.Fatalf("expected Finish(stop), got %+v", last)
	}
}

func TestInlineToolCallDetection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan wire.BackendEvent, 4)
	in <- wire.BackendEvent{Kind: wire.BackendTokenChunk, Text: `thinking...`}
	in <- wire.BackendEvent{Kind: wire.BackendTokenChunk, Text: `{"name":"get_weather","arguments":{"city":"SF"}}`}
	in <- wire.BackendEvent{Kind: wire.BackendFinish, FinishReason: wire.FinishStop}
	close(in)

	req := wire.Request{
		Dialect: wire.DialectOpenAI,
		Tools: []wire.ToolSpec{
			{Name: "get_weather"},
		},
	}
	events := collect(Run(ctx, cancel, in, req))

	var toolEvent *wire.GenerationEvent
	for i := range events {
		if events[i].Kind == wire.EventToolCallDelta {
			toolEvent = &events[i]
		}
		if events[i].Kind == wire.EventContentDelta && strings.Contains(events[i].Text, `"name"`) {
			t.Fatalf("content delta leaked JSON object: %q", events[i].Text)
		}
	}
	if toolEvent == nil {
		t.Fatal("expected a ToolCallDelta event")
	}
	if toolEvent.ToolName != "get_weather" {
		t.Fatalf("expected tool name get_weather, got %q", toolEvent.ToolName)
	}
	if toolEvent.ArgsChunk != `{"city":"SF"}` {
		t.Fatalf("expected arguments %q, got %q", `{"city":"SF"}`, toolEvent.ArgsChunk)
	}
	last := events[len(events)-1]
	if last.Kind != wire.EventFinish || last.FinishReason != wire.FinishToolCalls {
		t.Fatalf("expected Finish(tool_calls), got %+v", last)
	}
}

func TestMonotonicEmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan wire.BackendEvent, 8)
	tokens := []string{"a", "bb", "ccc", "d"}
	for _, tok := range tokens {
		in <- wire.BackendEvent{Kind: wire.BackendTokenChunk, Text: tok}
	}
	in <- wire.BackendEvent{Kind: wire.BackendFinish, FinishReason: wire.FinishStop}
	close(in)

	req := wire.Request{Dialect: wire.DialectOpenAI}
	events := collect(Run(ctx, cancel, in, req))

	emitted := 0
	for _, ev := range events {
		if ev.Kind != wire.EventContentDelta {
			continue
		}
		if len(ev.Text) == 0 {
			t.Fatal("content delta must be non-empty")
		}
		emitted += len([]rune(ev.Text))
	}
	if emitted != len("abbcccd") {
		t.Fatalf("expected total emitted length %d, got %d", len("abbcccd"), emitted)
	}
}

func TestBufferPruningSafety(t *testing.T) {
	buf := NewRollingBuffer()
	chunk := strings.Repeat("x", 1000)
	emitted := 0
	for i := 0; i < 100; i++ { // 100_000 chars total, far past MaxBuffer
		buf.Append(chunk)
		if buf.Len() > MaxBuffer {
			t.Fatalf("buffer exceeded MaxBuffer: %d", buf.Len())
		}
		// Everything not yet emitted must still be retrievable.
		unemitted := buf.Slice(emitted, buf.GlobalLen())
		if len(unemitted) == 0 && buf.GlobalLen() > emitted {
			t.Fatalf("lost unemitted characters after prune at iteration %d", i)
		}
		emitted = buf.GlobalLen() // simulate immediate full emission each token
	}
}

func TestCancellationStopsConsumption(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan wire.BackendEvent)
	req := wire.Request{Dialect: wire.DialectOpenAI}
	events := Run(ctx, cancel, in, req)

	cancel()
	var last wire.GenerationEvent
	for ev := range events {
		last = ev
	}
	if last.Kind != wire.EventFinish || last.FinishReason != wire.FinishError {
		t.Fatalf("expected Finish(error) on cancellation, got %+v", last)
	}
}

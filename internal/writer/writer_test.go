package writer

import (
	"bufio"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/osaurus-ai/osaurus/internal/apperr"
	"github.com/osaurus-ai/osaurus/internal/wire"
)

func erroringEvents() []wire.GenerationEvent {
	return []wire.GenerationEvent{
		wire.RoleStartEvent(wire.RoleAssistant),
		wire.ContentDeltaEvent("hel"),
		wire.FinishEvent(wire.FinishError, apperr.New(apperr.Timeout, "request cancelled")),
	}
}

func sampleEvents() []wire.GenerationEvent {
	return []wire.GenerationEvent{
		wire.RoleStartEvent(wire.RoleAssistant),
		wire.ContentDeltaEvent("hel"),
		wire.ContentDeltaEvent("lo"),
		wire.UsageEvent(3, 2),
		wire.FinishEvent(wire.FinishStop, nil),
	}
}

func TestOpenAIWriterFramesDoneTerminator(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewOpenAIWriter(rec, "cmpl-1", "foundation")
	for _, ev := range sampleEvents() {
		if err := w.Write(ev); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	body := rec.Body.String()
	if !strings.Contains(body, "data: [DONE]") {
		t.Fatalf("expected terminal [DONE] frame, got: %s", body)
	}
	if !strings.Contains(body, `"content":"hel"`) {
		t.Fatalf("expected content delta frame, got: %s", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected SSE content type, got %q", ct)
	}
}

func TestOpenAIWriterFramesMidStreamError(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewOpenAIWriter(rec, "cmpl-1", "foundation")
	for _, ev := range erroringEvents() {
		if err := w.Write(ev); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	body := rec.Body.String()
	if strings.Contains(body, "[DONE]") {
		t.Fatalf("error path must not emit [DONE]: %s", body)
	}
	if !strings.Contains(body, `"type":"timeout"`) {
		t.Fatalf("expected error envelope with timeout kind, got: %s", body)
	}
}

func TestAnthropicWriterEmitsTypedTaxonomy(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewAnthropicWriter(rec, "msg-1", "foundation")
	for _, ev := range sampleEvents() {
		if err := w.Write(ev); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	body := rec.Body.String()
	for _, want := range []string{"message_start", "content_block_start", "content_block_delta", "content_block_stop", "message_delta", "message_stop"} {
		if !strings.Contains(body, "event: "+want) {
			t.Fatalf("expected event %q in output, got: %s", want, body)
		}
	}
}

func TestAnthropicWriterEmitsErrorEventMidStream(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewAnthropicWriter(rec, "msg-1", "foundation")
	for _, ev := range erroringEvents() {
		if err := w.Write(ev); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: error") {
		t.Fatalf("expected an error event, got: %s", body)
	}
	if strings.Contains(body, "event: message_stop") {
		t.Fatalf("error path must not emit the normal message_stop sequence: %s", body)
	}
	if !strings.Contains(body, `"type":"timeout"`) {
		t.Fatalf("expected error body with timeout kind, got: %s", body)
	}
}

func TestOllamaWriterEmitsNDJSONWithTerminalDone(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewOllamaWriter(rec, "foundation")
	for _, ev := range sampleEvents() {
		if err := w.Write(ev); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	var lines []map[string]any
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			t.Fatalf("line is not valid JSON: %q: %v", line, err)
		}
		lines = append(lines, obj)
	}
	if len(lines) == 0 {
		t.Fatal("expected at least one NDJSON line")
	}
	last := lines[len(lines)-1]
	if done, _ := last["done"].(bool); !done {
		t.Fatalf("expected terminal line to have done=true: %v", last)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("expected ndjson content type, got %q", ct)
	}
}

func TestOllamaWriterEmitsErrorLineInsteadOfDisconnecting(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewOllamaWriter(rec, "foundation")
	for _, ev := range erroringEvents() {
		if err := w.Write(ev); err != nil {
			t.Fatalf("Write must return nil on a mid-stream error so the gateway doesn't treat it as a client disconnect, got: %v", err)
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	var lines []map[string]any
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			t.Fatalf("line is not valid JSON: %q: %v", line, err)
		}
		lines = append(lines, obj)
	}
	if len(lines) == 0 {
		t.Fatal("expected at least one NDJSON line")
	}
	last := lines[len(lines)-1]
	if _, ok := last["error"]; !ok {
		t.Fatalf("expected terminal line to carry an error field, got: %v", last)
	}
	if _, ok := last["done"]; ok {
		t.Fatalf("error line should not look like a normal done:true terminator, got: %v", last)
	}
}

// Package writer frames dialect-neutral GenerationEvents back onto the
// wire in each dialect's native streaming shape: OpenAI/SSE, Anthropic's
// typed SSE event taxonomy, or Ollama's NDJSON. Framing is a thin,
// flush-per-event loop over http.ResponseWriter/http.Flusher, grounded
// on the sendSSE helper in the Go AI SDK's http-server example.
package writer

import (
	"encoding/json"
	"fmt"
	"io"
)

// writeSSE writes one Server-Sent Event frame: an optional named event
// line followed by a data line and the blank-line terminator.
func writeSSE(w io.Writer, event string, data []byte) error {
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}

func marshalLine(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(`{}`)
	}
	return data
}

type flusher interface {
	Flush()
}

func flush(w io.Writer) {
	if f, ok := w.(flusher); ok {
		f.Flush()
	}
}

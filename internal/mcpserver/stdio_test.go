package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestStdioTransportServesOneRequestPerLine(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n")
	var out bytes.Buffer
	transport := NewStdioTransport(s, in, &out, nil)

	if err := transport.Serve(context.Background()); err != nil {
		t.Fatalf("serve: %v", err)
	}

	var resp JSONRPCResponse
	line := strings.TrimSpace(out.String())
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		t.Fatalf("unmarshal response line %q: %v", line, err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestStdioTransportSkipsNotifications(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(`{"jsonrpc":"2.0","method":"tools/list"}` + "\n")
	var out bytes.Buffer
	transport := NewStdioTransport(s, in, &out, nil)

	if err := transport.Serve(context.Background()); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output for a notification, got %q", out.String())
	}
}

func TestStdioTransportReportsParseErrors(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader("not json\n")
	var out bytes.Buffer
	transport := NewStdioTransport(s, in, &out, nil)

	if err := transport.Serve(context.Background()); err != nil {
		t.Fatalf("serve: %v", err)
	}
	var resp JSONRPCResponse
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeParseError {
		t.Fatalf("expected parse error, got %+v", resp.Error)
	}
}

package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// StdioTransport serves one Server over newline-delimited JSON-RPC on an
// arbitrary reader/writer pair (os.Stdin/os.Stdout in production),
// grounded on the teacher's StdioTransport.readLoop bufio.Scanner idiom
// but inverted: this side reads requests and writes responses instead
// of writing requests and demuxing responses by pending ID.
type StdioTransport struct {
	server *Server
	in     *bufio.Scanner
	out    io.Writer
	logger *slog.Logger
}

func NewStdioTransport(server *Server, in io.Reader, out io.Writer, logger *slog.Logger) *StdioTransport {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	if logger == nil {
		logger = slog.Default()
	}
	return &StdioTransport{server: server, in: scanner, out: out, logger: logger.With("component", "mcp_stdio")}
}

// Serve reads one JSON-RPC request per line until ctx is canceled or the
// input is exhausted.
func (t *StdioTransport) Serve(ctx context.Context) error {
	for t.in.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := t.in.Bytes()
		if len(line) == 0 {
			continue
		}
		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			t.writeLine(JSONRPCResponse{JSONRPC: "2.0", Error: &JSONRPCError{Code: ErrCodeParseError, Message: "invalid JSON-RPC request"}})
			continue
		}
		resp := t.server.Dispatch(ctx, req)
		if req.ID == nil {
			continue // notification: no response on the wire
		}
		if err := t.writeLine(resp); err != nil {
			return fmt.Errorf("mcp stdio write: %w", err)
		}
	}
	return t.in.Err()
}

func (t *StdioTransport) writeLine(resp JSONRPCResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = t.out.Write(data)
	return err
}

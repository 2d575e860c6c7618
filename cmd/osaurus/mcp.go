package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/osaurus-ai/osaurus/internal/config"
	"github.com/osaurus-ai/osaurus/internal/installer"
	"github.com/osaurus-ai/osaurus/internal/mcpserver"
	"github.com/osaurus-ai/osaurus/internal/plugin"
	"github.com/osaurus-ai/osaurus/internal/registry"
)

func buildMcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tool registry over the Model Context Protocol",
	}
	cmd.AddCommand(buildMcpServeCmd(), buildMcpProxyCmd())
	return cmd
}

// buildMcpServeCmd loads the tool registry directly from the configured
// tools root (builtin batch tool plus every plugin whose `current`
// symlink resolves) and serves it over stdio JSON-RPC, without starting
// the HTTP gateway (spec §4.H: "stdio ... newline-delimited JSON-RPC").
func buildMcpServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve this process's own tool registry over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("component", "cmd.mcp")

			reg := registry.New()
			if err := reg.RegisterBatchTool(); err != nil {
				return fmt.Errorf("register batch tool: %w", err)
			}

			loader := plugin.NewLoader(reg)
			store := installer.NewStore(cfg.Tools.Root, logger)
			for _, pluginID := range store.ListPlugins() {
				version, ok := store.Current(pluginID)
				if !ok {
					continue
				}
				libPath, err := store.DylibPath(pluginID, version)
				if err != nil {
					logger.Warn("skipping plugin with unresolvable library path", "plugin_id", pluginID, "error", err)
					continue
				}
				if _, err := loader.Load(libPath); err != nil {
					logger.Warn("failed to load plugin", "plugin_id", pluginID, "error", err)
				}
			}

			server := mcpserver.New(reg, mcpserver.ServerInfo{Name: "osaurus", Version: version})
			transport := mcpserver.NewStdioTransport(server, os.Stdin, os.Stdout, logger)
			return transport.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file (optional)")
	return cmd
}

// buildMcpProxyCmd forwards ListTools/CallTool over stdio JSON-RPC to a
// running gateway's /mcp/* HTTP endpoints, per spec §4.H: "An external
// CLI process may also act as an MCP stdio proxy ...; the behavior
// specified here is identical whether served directly or proxied."
func buildMcpProxyCmd() *cobra.Command {
	var endpoint string
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Forward stdio JSON-RPC calls to a running gateway's HTTP MCP endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("component", "cmd.mcp.proxy")
			p := &stdioProxy{
				endpoint: endpoint,
				client:   &http.Client{Timeout: 30 * time.Second},
				out:      os.Stdout,
				logger:   logger,
			}
			return p.run(cmd.Context(), os.Stdin)
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "http://127.0.0.1:1337", "Base URL of the running gateway")
	return cmd
}

type stdioProxy struct {
	endpoint string
	client   *http.Client
	out      io.Writer
	logger   *slog.Logger
}

func (p *stdioProxy) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var req mcpserver.JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			p.writeError(nil, mcpserver.ErrCodeParseError, "invalid JSON-RPC request")
			continue
		}
		resp := p.dispatch(ctx, req)
		if req.ID == nil {
			continue
		}
		if err := p.writeResponse(resp); err != nil {
			return fmt.Errorf("mcp proxy stdio write: %w", err)
		}
	}
	return scanner.Err()
}

func (p *stdioProxy) dispatch(ctx context.Context, req mcpserver.JSONRPCRequest) mcpserver.JSONRPCResponse {
	switch req.Method {
	case "tools/list":
		return p.proxyToolsList(ctx, req.ID)
	case "tools/call":
		return p.proxyToolsCall(ctx, req)
	case "ping", "initialize":
		return mcpserver.JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}
	default:
		return mcpserver.JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: &mcpserver.JSONRPCError{
			Code: mcpserver.ErrCodeMethodNotFound, Message: "method not found: " + req.Method,
		}}
	}
}

func (p *stdioProxy) proxyToolsList(ctx context.Context, id any) mcpserver.JSONRPCResponse {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/mcp/tools", nil)
	if err != nil {
		return p.internalError(id, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return p.internalError(id, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.internalError(id, err)
	}
	return mcpserver.JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: body}
}

func (p *stdioProxy) proxyToolsCall(ctx context.Context, req mcpserver.JSONRPCRequest) mcpserver.JSONRPCResponse {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/mcp/call", bytes.NewReader(req.Params))
	if err != nil {
		return p.internalError(req.ID, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return p.internalError(req.ID, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.internalError(req.ID, err)
	}
	if resp.StatusCode >= 400 {
		return mcpserver.JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: &mcpserver.JSONRPCError{
			Code: mcpserver.ErrCodeInternalError, Message: string(body),
		}}
	}
	return mcpserver.JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: body}
}

func (p *stdioProxy) internalError(id any, err error) mcpserver.JSONRPCResponse {
	return mcpserver.JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &mcpserver.JSONRPCError{
		Code: mcpserver.ErrCodeInternalError, Message: err.Error(),
	}}
}

func (p *stdioProxy) writeError(id any, code int, msg string) {
	p.writeResponse(mcpserver.JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &mcpserver.JSONRPCError{Code: code, Message: msg}})
}

func (p *stdioProxy) writeResponse(resp mcpserver.JSONRPCResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = p.out.Write(data)
	return err
}

// Package gateway wires the dialect codecs (internal/wire), the
// streaming pipeline (internal/pipeline), the response writers
// (internal/writer), the tool registry (internal/registry), and the MCP
// server (internal/mcpserver) into the concrete http.HandlerFuncs the
// router (internal/router) dispatches to. It plays the role of the
// teacher's internal/gateway package: the place request handling,
// backend dispatch, and tool execution meet.
package gateway

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/osaurus-ai/osaurus/internal/backend"
	"github.com/osaurus-ai/osaurus/internal/mcpserver"
	"github.com/osaurus-ai/osaurus/internal/metrics"
	"github.com/osaurus-ai/osaurus/internal/plugin"
	"github.com/osaurus-ai/osaurus/internal/registry"
)

// Server holds every dependency a request handler needs. It is built
// once at startup by the lifecycle supervisor and is safe for
// concurrent use across connections (spec §9: no process-wide mutable
// singletons — this struct is the single explicit, injectable service
// the supervisor owns and hands to handlers).
type Server struct {
	Registry *registry.Registry
	Resolver backend.Resolver
	MCP      *mcpserver.Server
	MCPHTTP  mcpserver.HTTPHandlers
	Logger   *slog.Logger
	Metrics  *metrics.Metrics

	// PluginLoader backs the live-plugin count reported by GET
	// /mcp/health (spec §9's supplemented "/mcp/health detail"). May be
	// nil when no external plugin loader is configured.
	PluginLoader *plugin.Loader

	// ModelIDs is the static list of model ids this instance advertises
	// (model discovery/download is out of scope per spec §1; this is
	// injected configuration, not discovered).
	ModelIDs []string

	// NonStreamTimeout bounds a request whose own params.stream is
	// false and that carries no explicit timeout (spec §5).
	NonStreamTimeout time.Duration

	activeRequests atomic.Int64
}

// New builds a Server from its dependencies.
func New(reg *registry.Registry, resolver backend.Resolver, mcp *mcpserver.Server, models []string, nonStreamTimeout time.Duration, logger *slog.Logger, mtr *metrics.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if mtr == nil {
		mtr = metrics.New()
	}
	return &Server{
		Registry:         reg,
		Resolver:         resolver,
		MCP:              mcp,
		MCPHTTP:          mcpserver.NewHTTPHandlers(mcp),
		ModelIDs:         models,
		NonStreamTimeout: nonStreamTimeout,
		Logger:           logger.With("component", "gateway"),
		Metrics:          mtr,
	}
}

// ActiveRequests returns the current in-flight request count (spec
// §4.I: exposed to UI/telemetry). The same count feeds the Prometheus
// active-requests gauge; GET /health does not report it.
func (s *Server) ActiveRequests() int64 { return s.activeRequests.Load() }

// beginRequest/endRequest bracket one HTTP request's lifetime; endRequest
// must run exactly once, on final writer flush (spec §3's Request
// lifecycle and §4.I's active_request_count semantics).
func (s *Server) beginRequest() {
	s.activeRequests.Add(1)
	s.Metrics.ActiveRequests.Set(float64(s.activeRequests.Load()))
}

func (s *Server) endRequest() {
	s.activeRequests.Add(-1)
	s.Metrics.ActiveRequests.Set(float64(s.activeRequests.Load()))
}

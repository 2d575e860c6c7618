// Package backend defines the contract-only interface to an inference
// backend (MLX runtime, Apple Foundation model, remote OpenAI-compatible
// provider, ...). Backends themselves are out of scope for this core;
// this package only specifies "given a prompt and parameters, yield a
// lazy, cancellable sequence of token chunks plus optional structured
// tool-invocation events."
package backend

import (
	"context"

	"github.com/osaurus-ai/osaurus/internal/wire"
)

// Backend generates a response for a request and streams BackendEvents
// on the returned channel. The channel is closed when generation ends
// (naturally or via ctx cancellation). Implementations must stop
// producing once ctx is done.
type Backend interface {
	Generate(ctx context.Context, req wire.Request) (<-chan wire.BackendEvent, error)
}

// Resolver maps a model id to a Backend, returning apperr.UnknownModel
// when no backend serves the requested model.
type Resolver interface {
	Resolve(modelID string) (Backend, error)
}

// StaticResolver resolves every request to a single Backend regardless
// of model id — the common case for a single local-inference runtime.
type StaticResolver struct {
	B Backend
}

func (s StaticResolver) Resolve(string) (Backend, error) { return s.B, nil }

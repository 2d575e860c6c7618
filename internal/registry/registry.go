// Package registry implements the tool registry (spec §4.C): a
// name->tool map with per-tool permission policy, JSON-Schema argument
// validation, and invocation, grounded on the teacher's
// internal/agent/tool_registry.go RWMutex-snapshot idiom.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/osaurus-ai/osaurus/internal/apperr"
	"github.com/osaurus-ai/osaurus/internal/wire"
)

// Handler executes one tool invocation.
type Handler func(ctx context.Context, cc CallerContext, argumentsJSON string) ([]byte, error)

// ApprovalHook is consulted when a tool's policy is "ask". It returns
// true to approve the invocation.
type ApprovalHook func(ctx context.Context, cc CallerContext, toolName string) bool

// CallerContext is the explicit bundle threaded into a tool handler at
// invoke time, replacing the teacher's task-local storage idiom (spec §9).
type CallerContext struct {
	BatchID  string
	Approval ApprovalHook
}

type entry struct {
	spec    wire.ToolSpec
	handler Handler
	schema  *jsonschema.Schema
}

// Registry is a process-wide, thread-safe name->tool map.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a tool. Returns apperr.DuplicateName if name collides.
// The parameter schema is compiled once here so Execute never pays
// compilation cost.
func (r *Registry) Register(spec wire.ToolSpec, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[spec.Name]; exists {
		return apperr.New(apperr.DuplicateName, fmt.Sprintf("tool already registered: %s", spec.Name))
	}
	schema, err := compileSchema(spec.Name, spec.Parameters)
	if err != nil {
		return apperr.Wrap(apperr.InvalidRequest, "invalid tool parameter schema", err)
	}
	r.entries[spec.Name] = entry{spec: spec, handler: handler, schema: schema}
	return nil
}

// Unregister removes a tool by name. Idempotent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// List returns a snapshot of the registered tool specs.
func (r *Registry) List() []wire.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]wire.ToolSpec, 0, len(r.entries))
	for _, e := range r.entries {
		specs = append(specs, e.spec)
	}
	return specs
}

// Get returns one tool spec by name.
func (r *Registry) Get(name string) (wire.ToolSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.spec, ok
}

// Execute validates arguments, enforces the tool's permission policy,
// and invokes its handler. The registry lock is never held across the
// handler call (spec §5 locking discipline: clone and release first).
func (r *Registry) Execute(ctx context.Context, name string, argumentsJSON string, cc CallerContext) ([]byte, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, apperr.New(apperr.InvalidRequest, fmt.Sprintf("tool not found: %s", name))
	}

	switch e.spec.Policy {
	case wire.PolicyDeny:
		return nil, apperr.New(apperr.PolicyDenied, fmt.Sprintf("tool %s is denied by policy", name))
	case wire.PolicyAsk:
		if cc.Approval == nil || !cc.Approval(ctx, cc, name) {
			return nil, apperr.New(apperr.PolicyDenied, fmt.Sprintf("tool %s was not approved", name))
		}
	}

	if err := validateArguments(e.schema, argumentsJSON); err != nil {
		return nil, apperr.Wrap(apperr.InvalidArguments, fmt.Sprintf("invalid arguments for tool %s", name), err)
	}

	return e.handler(ctx, cc, argumentsJSON)
}

func compileSchema(name string, params wire.Value) (*jsonschema.Schema, error) {
	data, err := params.MarshalJSON()
	if err != nil {
		return nil, err
	}
	// An empty/null schema means "accept anything".
	if string(data) == "null" {
		data = []byte(`{}`)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name+".json", mustDecode(data)); err != nil {
		return nil, err
	}
	return compiler.Compile(name + ".json")
}

func mustDecode(data []byte) any {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return map[string]any{}
	}
	return v
}

func validateArguments(schema *jsonschema.Schema, argumentsJSON string) error {
	if argumentsJSON == "" {
		argumentsJSON = "{}"
	}
	var v any
	if err := json.Unmarshal([]byte(argumentsJSON), &v); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if schema == nil {
		return nil
	}
	return schema.Validate(v)
}

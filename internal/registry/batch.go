package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"

	"github.com/osaurus-ai/osaurus/internal/apperr"
	"github.com/osaurus-ai/osaurus/internal/wire"
)

// BatchToolName is the registry-level tool name for batched execution.
const BatchToolName = "batch"

// MaxBatchOperations bounds the number of operations a single batch call
// may contain (spec §4.C).
const MaxBatchOperations = 30

// DeniedFromBatch lists tools that must never be reachable through the
// batch tool, at minimum shell execution and the batch tool itself.
var DeniedFromBatch = map[string]bool{
	"shell":     true,
	"exec":      true,
	BatchToolName: true,
}

type batchOperation struct {
	Tool string          `json:"tool" jsonschema_description:"Name of a previously registered tool to invoke."`
	Args json.RawMessage `json:"args" jsonschema:"type=object" jsonschema_description:"Arguments for the tool, in that tool's own JSON shape."`
}

// batchRequest doubles as the source struct for the batch tool's own
// parameter schema: reflected once via invopop/jsonschema at package
// init rather than hand-written, the same way the teacher reflects its
// Config struct into a JSON Schema document (internal/config/schema.go).
type batchRequest struct {
	Operations []batchOperation `json:"operations" jsonschema:"required" jsonschema_description:"Bounded sequence of tool operations to run in order."`
}

var batchParamsSchema = reflectSchema(&batchRequest{})

func reflectSchema(v any) wire.Value {
	r := &jsonschema.Reflector{ExpandedStruct: true}
	schema := r.Reflect(v)
	data, err := json.Marshal(schema)
	if err != nil {
		return wire.Object(map[string]wire.Value{"type": wire.String("object")})
	}
	val, err := wire.ParseValue(data)
	if err != nil {
		return wire.Object(map[string]wire.Value{"type": wire.String("object")})
	}
	return val
}

// BatchStepResult is the structured per-step result of one batch operation.
type BatchStepResult struct {
	Tool    string `json:"tool"`
	Ok      bool   `json:"ok"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BatchResult is the structured result the batch tool returns.
type BatchResult struct {
	BatchID string            `json:"batch_id"`
	Steps   []BatchStepResult `json:"steps"`
}

// RegisterBatchTool installs the batch tool on r. It is a registry-level
// tool rather than a plugin-provided one because it needs direct access
// to r.Execute for each sub-operation.
func (r *Registry) RegisterBatchTool() error {
	spec := wire.ToolSpec{
		Name:        BatchToolName,
		Description: "Execute a bounded sequence of tool operations in order, continuing past individual failures.",
		Parameters:  batchParamsSchema,
		Policy:      wire.PolicyAuto,
		Provenance:  wire.Provenance{Kind: wire.ProvenanceBuiltin},
	}
	return r.Register(spec, r.executeBatch)
}

func (r *Registry) executeBatch(ctx context.Context, cc CallerContext, argumentsJSON string) ([]byte, error) {
	var req batchRequest
	if err := json.Unmarshal([]byte(argumentsJSON), &req); err != nil {
		return nil, apperr.Wrap(apperr.InvalidArguments, "invalid batch arguments", err)
	}
	if len(req.Operations) > MaxBatchOperations {
		return nil, apperr.New(apperr.InvalidArguments, fmt.Sprintf("batch exceeds maximum of %d operations", MaxBatchOperations))
	}

	batchID := uuid.NewString()
	stepCC := CallerContext{BatchID: batchID, Approval: cc.Approval}

	result := BatchResult{BatchID: batchID, Steps: make([]BatchStepResult, 0, len(req.Operations))}
	for _, op := range req.Operations {
		step := BatchStepResult{Tool: op.Tool}
		if DeniedFromBatch[op.Tool] {
			step.Error = fmt.Sprintf("tool %s cannot be invoked from a batch", op.Tool)
			result.Steps = append(result.Steps, step)
			continue
		}
		out, err := r.Execute(ctx, op.Tool, string(op.Args), stepCC)
		if err != nil {
			step.Error = err.Error()
		} else {
			step.Ok = true
			step.Result = string(out)
		}
		result.Steps = append(result.Steps, step)
	}

	return json.Marshal(result)
}

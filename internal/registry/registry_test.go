package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/osaurus-ai/osaurus/internal/apperr"
	"github.com/osaurus-ai/osaurus/internal/wire"
)

func echoSpec(name string, policy wire.PermissionPolicy) wire.ToolSpec {
	return wire.ToolSpec{
		Name:   name,
		Policy: policy,
		Parameters: wire.Object(map[string]wire.Value{
			"type":     wire.String("object"),
			"required": wire.Array([]wire.Value{wire.String("msg")}),
			"properties": wire.Object(map[string]wire.Value{
				"msg": wire.Object(map[string]wire.Value{"type": wire.String("string")}),
			}),
		}),
	}
}

func echoHandler(_ context.Context, _ CallerContext, args string) ([]byte, error) {
	var in struct {
		Msg string `json:"msg"`
	}
	_ = json.Unmarshal([]byte(args), &in)
	return []byte(in.Msg), nil
}

func TestRegisterDuplicateName(t *testing.T) {
	r := New()
	if err := r.Register(echoSpec("echo", wire.PolicyAuto), echoHandler); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := r.Register(echoSpec("echo", wire.PolicyAuto), echoHandler)
	if apperr.KindOf(err) != apperr.DuplicateName {
		t.Fatalf("expected DuplicateName, got %v", err)
	}
}

func TestExecuteDeny(t *testing.T) {
	r := New()
	_ = r.Register(echoSpec("echo", wire.PolicyDeny), echoHandler)
	_, err := r.Execute(context.Background(), "echo", `{"msg":"hi"}`, CallerContext{})
	if apperr.KindOf(err) != apperr.PolicyDenied {
		t.Fatalf("expected PolicyDenied, got %v", err)
	}
}

func TestExecuteAskApprovedAndDenied(t *testing.T) {
	r := New()
	_ = r.Register(echoSpec("echo", wire.PolicyAsk), echoHandler)

	_, err := r.Execute(context.Background(), "echo", `{"msg":"hi"}`, CallerContext{
		Approval: func(context.Context, CallerContext, string) bool { return false },
	})
	if apperr.KindOf(err) != apperr.PolicyDenied {
		t.Fatalf("expected PolicyDenied when approval hook declines, got %v", err)
	}

	out, err := r.Execute(context.Background(), "echo", `{"msg":"hi"}`, CallerContext{
		Approval: func(context.Context, CallerContext, string) bool { return true },
	})
	if err != nil {
		t.Fatalf("expected success when approval hook approves: %v", err)
	}
	if string(out) != "hi" {
		t.Fatalf("expected %q, got %q", "hi", out)
	}
}

func TestExecuteInvalidArguments(t *testing.T) {
	r := New()
	_ = r.Register(echoSpec("echo", wire.PolicyAuto), echoHandler)
	_, err := r.Execute(context.Background(), "echo", `{}`, CallerContext{})
	if apperr.KindOf(err) != apperr.InvalidArguments {
		t.Fatalf("expected InvalidArguments for missing required field, got %v", err)
	}
}

func TestBatchToolExecutesAndDeniesSelf(t *testing.T) {
	r := New()
	_ = r.Register(echoSpec("echo", wire.PolicyAuto), echoHandler)
	if err := r.RegisterBatchTool(); err != nil {
		t.Fatalf("register batch tool: %v", err)
	}

	args := `{"operations":[{"tool":"echo","args":{"msg":"a"}},{"tool":"batch","args":{}},{"tool":"missing","args":{}}]}`
	out, err := r.Execute(context.Background(), BatchToolName, args, CallerContext{})
	if err != nil {
		t.Fatalf("batch execute: %v", err)
	}
	var result BatchResult
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("unmarshal batch result: %v", err)
	}
	if len(result.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(result.Steps))
	}
	if !result.Steps[0].Ok || result.Steps[0].Result != "a" {
		t.Fatalf("step 0 should succeed with result 'a', got %+v", result.Steps[0])
	}
	if result.Steps[1].Ok {
		t.Fatalf("batch must deny invoking itself, got %+v", result.Steps[1])
	}
	if result.Steps[2].Ok {
		t.Fatalf("missing tool should fail, got %+v", result.Steps[2])
	}
}

func TestBatchToolBoundsOperationCount(t *testing.T) {
	r := New()
	_ = r.Register(echoSpec("echo", wire.PolicyAuto), echoHandler)
	_ = r.RegisterBatchTool()

	ops := make([]map[string]any, 0, MaxBatchOperations+1)
	for i := 0; i <= MaxBatchOperations; i++ {
		ops = append(ops, map[string]any{"tool": "echo", "args": map[string]any{"msg": "x"}})
	}
	payload, _ := json.Marshal(map[string]any{"operations": ops})
	_, err := r.Execute(context.Background(), BatchToolName, string(payload), CallerContext{})
	if apperr.KindOf(err) != apperr.InvalidArguments {
		t.Fatalf("expected InvalidArguments for over-bound batch, got %v", err)
	}
}
